package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Encrypt seals a 32-byte private key under a password. The symmetric key is
// derived with scrypt over a fresh random salt, the key is sealed with
// AES-256-GCM under a fresh random nonce. Pure transform: no I/O, callers
// own persistence.
// password must be []byte for security (caller should zero it after use)
func Encrypt(privateKey []byte, password []byte, params Params) (*Bundle, error) {
	if len(privateKey) != KeyLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", KeyLen, len(privateKey))
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if !params.valid() {
		return nil, fmt.Errorf("invalid scrypt parameters")
	}

	// Generate salt and nonce
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Derive key from password
	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, privateKey, nil)

	return &Bundle{
		KDF:        kdfName,
		Cipher:     cipherName,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
		Params:     params,
	}, nil
}
