package wallet

import (
	"errors"
	"strings"

	"github.com/solmarket/wallet-core/internal/mnemonic"
)

// ImportPreview is the import flow after input: the phrase validated, the
// keypair derived, the bundle sealed. The user confirms the derived address
// and name before anything is persisted. Unlike the create flow, going back
// to the input step is allowed: the user typed the phrase themselves and
// nothing was generated that could be lost.
type ImportPreview struct {
	name    string
	pubKey  string
	pending *PendingWallet
}

// BeginImport validates an existing recovery phrase and prepares the wallet
// it derives. An invalid phrase fails fast with mnemonic.ErrInvalidMnemonic
// before any derivation is attempted.
// password must be []byte for security (caller should zero it after use)
func BeginImport(phrase, name string, password []byte, opts Options) (*ImportPreview, error) {
	opts = opts.withDefaults()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("wallet name cannot be empty")
	}

	if !mnemonic.Validate(phrase) {
		return nil, mnemonic.ErrInvalidMnemonic
	}

	key, bundle, err := deriveAndSeal(phrase, password, opts)
	if err != nil {
		return nil, err
	}
	// The 32-byte seed stays only inside the bundle from here on.
	clear(key.PrivateKey[:])

	qr, err := addressQR(key.PublicKey)
	if err != nil {
		return nil, err
	}

	return &ImportPreview{
		name:   name,
		pubKey: key.PublicKey,
		pending: &PendingWallet{
			Name:      name,
			PublicKey: key.PublicKey,
			QR:        qr,
			bundle:    bundle,
		},
	}, nil
}

// Name returns the wallet name collected at input.
func (p *ImportPreview) Name() string { return p.name }

// PublicKey returns the derived wallet address for the user to confirm.
func (p *ImportPreview) PublicKey() string { return p.pubKey }

// Confirm accepts the previewed wallet for committing.
func (p *ImportPreview) Confirm() *PendingWallet {
	return p.pending
}

// Discard drops the preview. The encrypted bundle is garbage from here;
// the caller returns the user to the input step.
func (p *ImportPreview) Discard() {
	p.pending = nil
}
