package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/solmarket/wallet-core/internal/vault"
)

const (
	// bundleKeyPrefix namespaces one encrypted bundle per wallet address,
	// mirroring the client's wallet_data_<publicKey> local-storage keys.
	bundleKeyPrefix = "wallet_data_"

	// pendingKeyPrefix marks wallets whose bundle is saved locally but whose
	// marketplace registration has not been acknowledged yet. The value is
	// the wallet name so registration can be retried as-is.
	pendingKeyPrefix = "wallet_pending_"
)

// ErrNotFound is returned when no bundle exists for an address.
var ErrNotFound = errors.New("wallet not found in local store")

// Store is the device-local key-value store holding encrypted wallet
// bundles. It is the only persisted representation of private key material;
// nothing in it ever crosses the network boundary.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBundle writes the encrypted bundle for a wallet address.
// Overwrites are last-write-wins: each wallet is a single independent key.
func (s *Store) SaveBundle(publicKey string, bundle *vault.Bundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bundleKeyPrefix+publicKey), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to save bundle: %w", err)
	}
	return nil
}

// LoadBundle reads the encrypted bundle for a wallet address.
func (s *Store) LoadBundle(publicKey string) (*vault.Bundle, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bundleKeyPrefix + publicKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	var bundle vault.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle: %w", err)
	}
	return &bundle, nil
}

// DeleteBundle removes a wallet's bundle and any pending marker.
func (s *Store) DeleteBundle(publicKey string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bundleKeyPrefix + publicKey)); err != nil {
			return err
		}
		return txn.Delete([]byte(pendingKeyPrefix + publicKey))
	})
}

// ListWallets returns the addresses of all locally stored wallets.
func (s *Store) ListWallets() ([]string, error) {
	var addrs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(bundleKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			addrs = append(addrs, strings.TrimPrefix(key, bundleKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return addrs, nil
}

// MarkPending records that publicKey still awaits marketplace registration.
func (s *Store) MarkPending(publicKey, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pendingKeyPrefix+publicKey), []byte(name))
	})
	if err != nil {
		return fmt.Errorf("failed to mark wallet pending: %w", err)
	}
	return nil
}

// ClearPending removes the pending-registration marker.
func (s *Store) ClearPending(publicKey string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(pendingKeyPrefix + publicKey))
	})
	if err != nil {
		return fmt.Errorf("failed to clear pending marker: %w", err)
	}
	return nil
}

// ListPending returns pending registrations as address -> wallet name.
func (s *Store) ListPending() (map[string]string, error) {
	pending := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			addr := strings.TrimPrefix(string(item.Key()), pendingKeyPrefix)
			pending[addr] = string(name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wallets: %w", err)
	}
	return pending, nil
}
