package derivation

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	// SolanaPath is the standard derivation path for the first Solana
	// account (coin type 501, account 0).
	SolanaPath = "m/44'/501'/0'/0'"

	// FirstHardenedIndex marks the start of the hardened index range.
	// Ed25519 derivation is hardened-only.
	FirstHardenedIndex = uint32(1) << 31

	// seedModifier is the SLIP-0010 master key HMAC key for ed25519 curves.
	seedModifier = "ed25519 seed"

	// SeedLen is the expected BIP39 seed length in bytes.
	SeedLen = 64

	// KeyLen is the ed25519 private seed length in bytes.
	KeyLen = 32
)

var (
	ErrInvalidPath  = errors.New("invalid derivation path")
	ErrInvalidSeed  = errors.New("seed must be 64 bytes")
	ErrHardenedOnly = errors.New("no public derivation for ed25519")

	pathRegex = regexp.MustCompile(`^m(/[0-9]+')+$`)
)

// Key is one node of the hardened derivation tree.
type Key struct {
	Key       []byte
	ChainCode []byte
}

// DerivedKey is the keypair obtained at the end of a derivation path.
// PrivateKey is the 32-byte ed25519 seed, not a full 64-byte Solana key;
// PublicKey is the base58 wallet address.
type DerivedKey struct {
	PrivateKey [KeyLen]byte
	PublicKey  string
}

// Derive walks a hardened BIP44-style path over a 64-byte seed and returns
// the resulting keypair. Identical seed and path always yield identical output.
func Derive(seed []byte, path string) (*DerivedKey, error) {
	if len(seed) != SeedLen {
		return nil, ErrInvalidSeed
	}

	key, err := DeriveForPath(path, seed)
	if err != nil {
		return nil, err
	}
	defer clear(key.Key)

	out := &DerivedKey{PublicKey: key.Address()}
	copy(out.PrivateKey[:], key.Key)
	return out, nil
}

// DeriveForPath derives the key node for a path in BIP44 format.
// Every segment must be hardened, as ed25519 requires.
func DeriveForPath(path string, seed []byte) (*Key, error) {
	if !isValidPath(path) {
		return nil, ErrInvalidPath
	}

	key, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(path, "/")
	for _, segment := range segments[1:] {
		i64, err := strconv.ParseUint(strings.TrimSuffix(segment, "'"), 10, 32)
		if err != nil {
			return nil, ErrInvalidPath
		}

		key, err = key.Derive(uint32(i64) + FirstHardenedIndex)
		if err != nil {
			return nil, err
		}
	}

	return key, nil
}

// NewMasterKey builds the derivation root from a seed per SLIP-0010.
func NewMasterKey(seed []byte) (*Key, error) {
	mac := hmac.New(sha512.New, []byte(seedModifier))
	if _, err := mac.Write(seed); err != nil {
		return nil, err
	}
	sum := mac.Sum(nil)
	return &Key{
		Key:       sum[:32],
		ChainCode: sum[32:],
	}, nil
}

// Derive produces the hardened child at index i.
func (k *Key) Derive(i uint32) (*Key, error) {
	if i < FirstHardenedIndex {
		return nil, ErrHardenedOnly
	}

	iBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(iBytes, i)
	data := append([]byte{0x0}, k.Key...)
	data = append(data, iBytes...)

	mac := hmac.New(sha512.New, k.ChainCode)
	if _, err := mac.Write(data); err != nil {
		return nil, err
	}
	sum := mac.Sum(nil)
	return &Key{
		Key:       sum[:32],
		ChainCode: sum[32:],
	}, nil
}

// PublicKey returns the ed25519 public key for this node.
func (k *Key) PublicKey() ed25519.PublicKey {
	priv := ed25519.NewKeyFromSeed(k.Key)
	return priv.Public().(ed25519.PublicKey)
}

// Address renders the node's public key as a base58 Solana address.
func (k *Key) Address() string {
	return solana.PublicKeyFromBytes(k.PublicKey()).String()
}

func isValidPath(path string) bool {
	if !pathRegex.MatchString(path) {
		return false
	}

	// Check for overflows
	segments := strings.Split(path, "/")
	for _, segment := range segments[1:] {
		if _, err := strconv.ParseUint(strings.TrimSuffix(segment, "'"), 10, 32); err != nil {
			return false
		}
	}

	return true
}
