package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Decrypt re-derives the symmetric key from the password and the bundle's
// stored salt, then opens the ciphertext. The GCM tag check is the
// correctness mechanism: a wrong password or a tampered bundle fails with
// ErrDecryptionFailed, never garbage bytes.
// password must be []byte for security (caller should zero it after use)
func Decrypt(bundle *Bundle, password []byte) ([]byte, error) {
	if bundle == nil {
		return nil, ErrInvalidBundle
	}
	if bundle.KDF != kdfName {
		return nil, fmt.Errorf("%w: unknown kdf %q", ErrInvalidBundle, bundle.KDF)
	}
	if bundle.Cipher != cipherName {
		return nil, fmt.Errorf("%w: unknown cipher %q", ErrInvalidBundle, bundle.Cipher)
	}
	if !bundle.Params.valid() {
		return nil, fmt.Errorf("%w: bad kdf parameters", ErrInvalidBundle)
	}

	salt, err := base64.StdEncoding.DecodeString(bundle.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode salt", ErrInvalidBundle)
	}

	nonce, err := base64.StdEncoding.DecodeString(bundle.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode nonce", ErrInvalidBundle)
	}
	if len(nonce) != nonceLen {
		return nil, fmt.Errorf("%w: bad nonce length", ErrInvalidBundle)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(bundle.CipherText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext", ErrInvalidBundle)
	}

	// Derive key from password
	key, err := scrypt.Key(password, salt, bundle.Params.N, bundle.Params.R, bundle.Params.P, bundle.Params.KeyLen)
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

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(plaintext) != KeyLen {
		clear(plaintext)
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
