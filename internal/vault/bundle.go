package vault

import "errors"

const (
	kdfName    = "scrypt"
	cipherName = "aes-256-gcm"

	saltLen  = 32
	nonceLen = 12

	// KeyLen is the plaintext size the vault protects: a 32-byte ed25519 seed.
	KeyLen = 32
)

var (
	// ErrDecryptionFailed covers both a wrong password and a corrupted
	// bundle: the GCM tag check cannot tell them apart, and neither may
	// ever yield partial plaintext.
	ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted bundle")

	// ErrInvalidBundle is returned when a bundle's self-description does
	// not match what this vault writes.
	ErrInvalidBundle = errors.New("invalid wallet bundle")
)

// Params are the scrypt work factors baked into each bundle so that old
// bundles stay decryptable when defaults change.
type Params struct {
	N      int `json:"n"`
	R      int `json:"r"`
	P      int `json:"p"`
	KeyLen int `json:"keyLen"`
}

// DefaultParams returns the production scrypt parameters.
//
// N=2^18 (~256MB RAM, 0.5-2s) - optimal balance:
//   - Maximum security while remaining compatible with mobile devices
//   - Works on phones (4-16GB RAM) and desktops alike
//   - Brute-force attacks remain extremely expensive
//
// Note: N=2^20 (~1GB) offers the highest security but fails on mobile due to
// Android memory limits per app (~256-512MB typically)
func DefaultParams() Params {
	return Params{N: 1 << 18, R: 8, P: 1, KeyLen: 32}
}

// LightParams returns fast scrypt parameters (~4MB, ~100ms) for development
// and tests. Never use for real wallets.
func LightParams() Params {
	return Params{N: 1 << 12, R: 8, P: 6, KeyLen: 32}
}

func (p Params) valid() bool {
	return p.N > 1 && p.R > 0 && p.P > 0 && p.KeyLen == 32
}

// Bundle is the self-describing result of encrypting a private key under a
// password. Everything in it is public; only the password is secret.
// It round-trips through JSON for persistence in the local store.
type Bundle struct {
	KDF        string `json:"kdf"`
	Cipher     string `json:"cipher"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
	Params     Params `json:"params"`
}
