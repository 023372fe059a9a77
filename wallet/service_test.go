package wallet

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestService(st LocalStore, reg Registry) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(st, reg, testOptions(), logrus.NewEntry(log))
}

func TestServiceCreateFlow(t *testing.T) {
	st := newFakeStore()
	reg := newFakeRegistry()
	svc := newTestService(st, reg)

	id, words, err := svc.StartCreate("main", []byte("pw"))
	require.NoError(t, err)
	require.Len(t, words, 12)

	positions, choices, err := svc.Acknowledge(id)
	require.NoError(t, err)
	require.Len(t, positions, VerifyWordCount)
	require.Len(t, choices, VerifyWordCount)

	info, err := svc.CompleteCreate(context.Background(), id, correctSelection(words, positions))
	require.NoError(t, err)
	require.Equal(t, "main", info.Name)
	require.Contains(t, st.bundles, info.PublicKey)
	require.Equal(t, "main", reg.created[info.PublicKey])

	// The session is gone once committed.
	_, err = svc.CompleteCreate(context.Background(), id, nil)
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestServiceAcknowledgeTwice(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeRegistry())

	id, _, err := svc.StartCreate("w", []byte("pw"))
	require.NoError(t, err)

	_, _, err = svc.Acknowledge(id)
	require.NoError(t, err)
	_, _, err = svc.Acknowledge(id)
	require.ErrorIs(t, err, ErrInvalidFlowState)
}

func TestServiceCreateHasNoBackNavigation(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeRegistry())

	id, _, err := svc.StartCreate("w", []byte("pw"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.BackToInput(id), ErrInvalidFlowState)

	_, _, err = svc.Acknowledge(id)
	require.NoError(t, err)
	require.ErrorIs(t, svc.BackToInput(id), ErrInvalidFlowState)
}

func TestServiceMismatchKeepsVerifyStage(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeRegistry())

	id, words, err := svc.StartCreate("w", []byte("pw"))
	require.NoError(t, err)
	positions, _, err := svc.Acknowledge(id)
	require.NoError(t, err)

	wrong := correctSelection(words, positions)
	wrong[0] += "x"
	_, err = svc.CompleteCreate(context.Background(), id, wrong)
	require.ErrorIs(t, err, ErrVerificationMismatch)

	// Still at verification: the correct answer completes the flow.
	info, err := svc.CompleteCreate(context.Background(), id, correctSelection(words, positions))
	require.NoError(t, err)
	require.NotNil(t, info)
}

func TestServiceCommitRetryAfterRegistryFailure(t *testing.T) {
	st := newFakeStore()
	reg := newFakeRegistry()
	reg.err = errors.New("marketplace down")
	svc := newTestService(st, reg)

	id, words, err := svc.StartCreate("w", []byte("pw"))
	require.NoError(t, err)
	positions, _, err := svc.Acknowledge(id)
	require.NoError(t, err)

	_, err = svc.CompleteCreate(context.Background(), id, correctSelection(words, positions))
	var rerr *RegistrationError
	require.ErrorAs(t, err, &rerr)
	require.Len(t, st.pending, 1)

	// Registry recovers. Retrying does not re-run verification.
	reg.err = nil
	info, err := svc.CompleteCreate(context.Background(), id, nil)
	require.NoError(t, err)
	require.Equal(t, "w", reg.created[info.PublicKey])
	require.Empty(t, st.pending)
}

func TestServiceImportFlow(t *testing.T) {
	st := newFakeStore()
	reg := newFakeRegistry()
	svc := newTestService(st, reg)

	phrase := validPhrase(t)
	id, preview, err := svc.StartImport(phrase, "imported", []byte("pw"))
	require.NoError(t, err)
	require.NotEmpty(t, preview.PublicKey)

	info, err := svc.ConfirmImport(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, preview.PublicKey, info.PublicKey)
	require.Contains(t, st.bundles, info.PublicKey)
}

func TestServiceImportBackToInput(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeRegistry())

	id, _, err := svc.StartImport(validPhrase(t), "w", []byte("pw"))
	require.NoError(t, err)

	require.NoError(t, svc.BackToInput(id))

	// The discarded flow is gone.
	_, err = svc.ConfirmImport(context.Background(), id)
	require.ErrorIs(t, err, ErrFlowNotFound)
}

func TestServiceAbandon(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeRegistry())

	id, _, err := svc.StartCreate("w", []byte("pw"))
	require.NoError(t, err)

	svc.Abandon(id)
	_, _, err = svc.Acknowledge(id)
	require.ErrorIs(t, err, ErrFlowNotFound)

	// Abandoning an unknown flow is a no-op.
	svc.Abandon("nope")
}

func TestServiceReconcile(t *testing.T) {
	st := newFakeStore()
	st.pending["GoodKey111"] = "alice"
	st.pending["BadKey2222"] = "bob"

	reg := newFakeRegistry()
	reg.failFor["BadKey2222"] = errors.New("still down")
	svc := newTestService(st, reg)

	require.NoError(t, svc.Reconcile(context.Background()))

	require.Equal(t, "alice", reg.created["GoodKey111"])
	require.NotContains(t, st.pending, "GoodKey111")

	// The unreachable one stays pending for the next startup.
	require.Contains(t, st.pending, "BadKey2222")
}

func TestRegisterWithRetryStopsOnContextCancel(t *testing.T) {
	reg := newFakeRegistry()
	reg.err = errors.New("down")
	svc := newTestService(newFakeStore(), reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.registerWithRetry(ctx, "Key", "w")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, reg.calls)
}
