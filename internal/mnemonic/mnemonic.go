package mnemonic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

const (
	// Strength128 yields a 12-word phrase, Strength256 a 24-word one.
	Strength128 = 128
	Strength256 = 256

	// SeedLen is the byte length of a BIP39 seed.
	SeedLen = 64
)

// ErrInvalidMnemonic is returned when a phrase fails the BIP39 checksum
// or wordlist check. It is a user error, not a programming error.
var ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

// Generate produces a new random mnemonic phrase of the given strength
// (Strength128 or Strength256). Entropy comes from crypto/rand inside bip39.
func Generate(strength int) (string, error) {
	if strength != Strength128 && strength != Strength256 {
		return "", fmt.Errorf("unsupported mnemonic strength: %d", strength)
	}

	entropy, err := bip39.NewEntropy(strength)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to build mnemonic: %w", err)
	}

	return phrase, nil
}

// Validate reports whether phrase is a well-formed BIP39 mnemonic.
// Malformed input returns false, never an error, so callers can surface
// it as a user-facing validation failure.
func Validate(phrase string) bool {
	return bip39.IsMnemonicValid(Normalize(phrase))
}

// ToSeed derives the 64-byte BIP39 seed for a phrase. The passphrase is
// always empty: the user's written-down phrase is the whole backup.
// Returns ErrInvalidMnemonic if Validate would have returned false.
func ToSeed(phrase string) ([]byte, error) {
	phrase = Normalize(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(phrase, ""), nil
}

// Words splits a phrase into its normalized word sequence.
func Words(phrase string) []string {
	return strings.Fields(Normalize(phrase))
}

// Normalize lowercases a phrase and collapses whitespace so pasted
// input compares equal to the generated form.
func Normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(phrase))), " ")
}
