package wallet

import (
	"context"

	"github.com/solmarket/wallet-core/internal/vault"
)

// LocalStore is the device-local storage the core writes encrypted bundles
// to. *store.Store satisfies it.
type LocalStore interface {
	SaveBundle(publicKey string, bundle *vault.Bundle) error
	MarkPending(publicKey, name string) error
	ClearPending(publicKey string) error
	ListPending() (map[string]string, error)
	ListWallets() ([]string, error)
}

// Registry is the marketplace backend's createWallet boundary call.
type Registry interface {
	CreateWallet(ctx context.Context, publicKey, name string) error
}

// PendingWallet is a flow's terminal state: verified (or preview-confirmed)
// and ready to commit. Commit is idempotent by public key, so a failed
// commit can simply be retried.
type PendingWallet struct {
	Name      string
	PublicKey string
	QR        string

	bundle *vault.Bundle
}

// Commit performs the two independent Done-state side effects: write the
// encrypted bundle to local storage, then register {publicKey, name} with
// the marketplace. The pending marker written between the two keeps a wallet
// whose remote call failed eligible for reconciliation on next load; the
// local write is never rolled back.
func (w *PendingWallet) Commit(ctx context.Context, st LocalStore, reg Registry) error {
	if err := st.SaveBundle(w.PublicKey, w.bundle); err != nil {
		return &PersistenceError{Op: "save bundle", Err: err}
	}
	if err := st.MarkPending(w.PublicKey, w.Name); err != nil {
		return &PersistenceError{Op: "mark pending", Err: err}
	}

	if err := reg.CreateWallet(ctx, w.PublicKey, w.Name); err != nil {
		return &RegistrationError{Err: err}
	}

	if err := st.ClearPending(w.PublicKey); err != nil {
		return &PersistenceError{Op: "clear pending", Err: err}
	}
	return nil
}
