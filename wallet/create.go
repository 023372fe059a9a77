package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/solmarket/wallet-core/internal/derivation"
	"github.com/solmarket/wallet-core/internal/mnemonic"
	"github.com/solmarket/wallet-core/internal/vault"
)

// VerifyWordCount is how many phrase positions the user must confirm
// before a freshly generated wallet is committed.
const VerifyWordCount = 4

// Options tune a flow instance. The zero value selects a 12-word phrase,
// the standard Solana path and production scrypt parameters.
type Options struct {
	Strength int
	Path     string
	Vault    vault.Params
}

func (o Options) withDefaults() Options {
	if o.Strength == 0 {
		o.Strength = mnemonic.Strength128
	}
	if o.Path == "" {
		o.Path = derivation.SolanaPath
	}
	if o.Vault == (vault.Params{}) {
		o.Vault = vault.DefaultParams()
	}
	return o
}

// PhraseDisplay is the create flow after setup: the phrase exists and must
// be shown to the user. The only transitions out are Acknowledge (the user
// explicitly confirms having written the phrase down) and Discard.
type PhraseDisplay struct {
	name   string
	words  []string
	key    *derivation.DerivedKey
	bundle *vault.Bundle
}

// BeginCreate runs the cryptographic half of the create flow: generate a
// mnemonic, derive the keypair, encrypt the private key under the password.
// Nothing is persisted until the verification gate has been passed.
// password must be []byte for security (caller should zero it after use)
func BeginCreate(name string, password []byte, opts Options) (*PhraseDisplay, error) {
	opts = opts.withDefaults()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("wallet name cannot be empty")
	}

	phrase, err := mnemonic.Generate(opts.Strength)
	if err != nil {
		return nil, err
	}

	key, bundle, err := deriveAndSeal(phrase, password, opts)
	if err != nil {
		return nil, err
	}

	return &PhraseDisplay{
		name:   name,
		words:  mnemonic.Words(phrase),
		key:    key,
		bundle: bundle,
	}, nil
}

// deriveAndSeal is the shared middle of both flows: phrase -> seed ->
// derived key -> encrypted bundle. The seed is wiped before returning.
func deriveAndSeal(phrase string, password []byte, opts Options) (*derivation.DerivedKey, *vault.Bundle, error) {
	seed, err := mnemonic.ToSeed(phrase)
	if err != nil {
		return nil, nil, err
	}
	defer clear(seed)

	key, err := derivation.Derive(seed, opts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("key derivation failed: %w", err)
	}

	bundle, err := vault.Encrypt(key.PrivateKey[:], password, opts.Vault)
	if err != nil {
		clear(key.PrivateKey[:])
		return nil, nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return key, bundle, nil
}

// Name returns the wallet name collected at setup.
func (p *PhraseDisplay) Name() string { return p.name }

// Words returns the recovery phrase for display.
func (p *PhraseDisplay) Words() []string {
	out := make([]string, len(p.words))
	copy(out, p.words)
	return out
}

// Acknowledge records the user's explicit confirmation that the phrase has
// been written down and moves the flow to verification. There is no way
// back: regenerating a phrase after one was shown would invalidate whatever
// the user already wrote down.
func (p *PhraseDisplay) Acknowledge() (*Verification, error) {
	positions, err := pickPositions(len(p.words), VerifyWordCount)
	if err != nil {
		return nil, err
	}

	choices := make([]string, len(positions))
	for i, pos := range positions {
		choices[i] = p.words[pos]
	}
	if err := shuffle(choices); err != nil {
		return nil, err
	}

	return &Verification{
		name:      p.name,
		words:     p.words,
		key:       p.key,
		bundle:    p.bundle,
		positions: positions,
		choices:   choices,
	}, nil
}

// Discard drops the flow and wipes its secret material.
func (p *PhraseDisplay) Discard() {
	clear(p.words)
	if p.key != nil {
		clear(p.key.PrivateKey[:])
	}
}

// Verification is the create flow's confirmation gate: a fixed number of
// random phrase positions, ascending, with the words presented in shuffled
// order. Failing the check is a safe no-op: the state, and the phrase, are
// preserved.
type Verification struct {
	name      string
	words     []string
	key       *derivation.DerivedKey
	bundle    *vault.Bundle
	positions []int
	choices   []string
}

// Positions returns the zero-based word positions to confirm, ascending.
func (v *Verification) Positions() []int {
	out := make([]int, len(v.positions))
	copy(out, v.positions)
	return out
}

// Choices returns the candidate words in their shuffled display order.
func (v *Verification) Choices() []string {
	out := make([]string, len(v.choices))
	copy(out, v.choices)
	return out
}

// Confirm checks the user's selection against the phrase. selected[i] must
// equal the phrase word at Positions()[i]. On success the wallet is ready
// to commit; on mismatch the verification state is unchanged.
func (v *Verification) Confirm(selected []string) (*PendingWallet, error) {
	if len(selected) != len(v.positions) {
		return nil, ErrVerificationMismatch
	}
	for i, pos := range v.positions {
		if strings.TrimSpace(strings.ToLower(selected[i])) != v.words[pos] {
			return nil, ErrVerificationMismatch
		}
	}

	qr, err := addressQR(v.key.PublicKey)
	if err != nil {
		return nil, err
	}

	return &PendingWallet{
		Name:      v.name,
		PublicKey: v.key.PublicKey,
		QR:        qr,
		bundle:    v.bundle,
	}, nil
}

// Discard drops the flow and wipes its secret material.
func (v *Verification) Discard() {
	clear(v.words)
	clear(v.choices)
	if v.key != nil {
		clear(v.key.PrivateKey[:])
	}
}

// pickPositions samples count distinct positions from [0, total) and
// returns them sorted ascending.
func pickPositions(total, count int) ([]int, error) {
	if count > total {
		count = total
	}
	seen := make(map[int]bool, count)
	positions := make([]int, 0, count)
	for len(positions) < count {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(total)))
		if err != nil {
			return nil, fmt.Errorf("failed to pick verification positions: %w", err)
		}
		pos := int(n.Int64())
		if seen[pos] {
			continue
		}
		seen[pos] = true
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions, nil
}

// shuffle is a Fisher-Yates shuffle over the display choices.
func shuffle(words []string) error {
	for i := len(words) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to shuffle choices: %w", err)
		}
		j := int(n.Int64())
		words[i], words[j] = words[j], words[i]
	}
	return nil
}
