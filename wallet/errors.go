package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationMismatch means the user-entered confirmation words do
	// not match the recovery phrase. The flow stays at the verify step and
	// the phrase is never regenerated.
	ErrVerificationMismatch = errors.New("confirmation words do not match the recovery phrase")

	// ErrFlowNotFound means the flow id refers to no live flow instance.
	ErrFlowNotFound = errors.New("wallet flow not found")

	// ErrInvalidFlowState means the requested transition is not legal from
	// the flow's current state (e.g. going back once verification started).
	ErrInvalidFlowState = errors.New("operation not valid in the flow's current state")
)

// PersistenceError is a local store failure. It is surfaced separately from
// RegistrationError because the two side effects of committing a wallet are
// independent and fail independently.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("local wallet storage failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RegistrationError is a failure of the remote createWallet call. The local
// bundle is already written and is not rolled back; the pending marker keeps
// the wallet eligible for reconciliation.
type RegistrationError struct {
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("marketplace registration failed: %v", e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
