package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Info is the public outcome of a completed flow. It contains nothing
// secret: the address, the chosen name and the receive QR.
type Info struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
	QR        string `json:"qr"`
}

type flowStage int

const (
	stageDisplayPhrase flowStage = iota
	stageVerify
	stagePreview
	stageCommit
)

// flowSession tracks one flow instance between HTTP calls. Exactly one of
// the stage pointers is set, matching the stage field.
type flowSession struct {
	stage   flowStage
	display *PhraseDisplay
	verify  *Verification
	preview *ImportPreview
	pending *PendingWallet
}

func (f *flowSession) discard() {
	switch f.stage {
	case stageDisplayPhrase:
		f.display.Discard()
	case stageVerify:
		f.verify.Discard()
	case stagePreview:
		f.preview.Discard()
	}
}

// Service drives the create and import flows, holds live flow sessions for
// the HTTP adapter, and reconciles half-committed wallets at startup.
// Within one flow instance all steps are strictly sequential; the mutex only
// guards the session table across instances.
type Service struct {
	mu    sync.Mutex
	flows map[string]*flowSession

	store    LocalStore
	registry Registry
	opts     Options
	log      *logrus.Entry
}

// NewService wires the controller to its collaborators.
func NewService(st LocalStore, reg Registry, opts Options, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		flows:    make(map[string]*flowSession),
		store:    st,
		registry: reg,
		opts:     opts,
		log:      log.WithField("component", "wallet"),
	}
}

// StartCreate begins a create flow: generates the phrase, derives the key,
// seals the bundle, and returns the phrase for display.
func (s *Service) StartCreate(name string, password []byte) (string, []string, error) {
	display, err := BeginCreate(name, password, s.opts)
	if err != nil {
		s.log.WithError(err).Error("create flow setup failed")
		return "", nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.flows[id] = &flowSession{stage: stageDisplayPhrase, display: display}
	s.mu.Unlock()

	return id, display.Words(), nil
}

// Acknowledge records the explicit "I wrote it down" confirmation and moves
// the flow to verification. From here the phrase is no longer retrievable
// through the service.
func (s *Service) Acknowledge(id string) ([]int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[id]
	if !ok {
		return nil, nil, ErrFlowNotFound
	}
	if f.stage != stageDisplayPhrase {
		return nil, nil, ErrInvalidFlowState
	}

	verify, err := f.display.Acknowledge()
	if err != nil {
		return nil, nil, err
	}
	f.stage = stageVerify
	f.display = nil
	f.verify = verify

	return verify.Positions(), verify.Choices(), nil
}

// CompleteCreate checks the verification words and, on success, commits the
// wallet. A mismatch leaves the flow at the verify step. A commit failure
// leaves the flow at the commit step, where calling CompleteCreate again
// (with any words) retries the commit without re-verifying.
func (s *Service) CompleteCreate(ctx context.Context, id string, selected []string) (*Info, error) {
	s.mu.Lock()
	f, ok := s.flows[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}

	switch f.stage {
	case stageVerify:
		pending, err := f.verify.Confirm(selected)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		f.verify.Discard()
		f.stage = stageCommit
		f.verify = nil
		f.pending = pending
	case stageCommit:
		// retrying a failed commit
	default:
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	pending := f.pending
	s.mu.Unlock()

	return s.commit(ctx, id, pending)
}

// StartImport begins an import flow: validates the phrase, derives the key,
// seals the bundle, and returns the derived address for preview.
func (s *Service) StartImport(phrase, name string, password []byte) (string, *Info, error) {
	preview, err := BeginImport(phrase, name, password, s.opts)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.flows[id] = &flowSession{stage: stagePreview, preview: preview}
	s.mu.Unlock()

	return id, &Info{PublicKey: preview.PublicKey(), Name: preview.Name()}, nil
}

// ConfirmImport accepts the previewed wallet and commits it. Commit failures
// behave exactly as in CompleteCreate.
func (s *Service) ConfirmImport(ctx context.Context, id string) (*Info, error) {
	s.mu.Lock()
	f, ok := s.flows[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}

	switch f.stage {
	case stagePreview:
		f.pending = f.preview.Confirm()
		f.stage = stageCommit
		f.preview = nil
	case stageCommit:
	default:
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	pending := f.pending
	s.mu.Unlock()

	return s.commit(ctx, id, pending)
}

// BackToInput returns an import flow from preview to the input step by
// discarding the preview. It is the only permitted back-navigation: a
// create flow past acknowledgement can never go back.
func (s *Service) BackToInput(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[id]
	if !ok {
		return ErrFlowNotFound
	}
	if f.stage != stagePreview {
		return ErrInvalidFlowState
	}

	f.preview.Discard()
	delete(s.flows, id)
	return nil
}

// Abandon drops a flow at any non-terminal state, wiping its secrets.
func (s *Service) Abandon(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.flows[id]; ok {
		f.discard()
		delete(s.flows, id)
	}
}

// Wallets lists the locally stored wallet addresses.
func (s *Service) Wallets() ([]string, error) {
	return s.store.ListWallets()
}

func (s *Service) commit(ctx context.Context, id string, pending *PendingWallet) (*Info, error) {
	if err := pending.Commit(ctx, s.store, s.registry); err != nil {
		s.log.WithError(err).WithField("publicKey", pending.PublicKey).Warn("wallet commit failed")
		return nil, err
	}

	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()

	return &Info{PublicKey: pending.PublicKey, Name: pending.Name, QR: pending.QR}, nil
}

// Reconcile retries marketplace registration for wallets whose bundle was
// written locally but whose createWallet call never succeeded. Called at
// startup. Failures are logged and left pending for the next load.
func (s *Service) Reconcile(ctx context.Context) error {
	pending, err := s.store.ListPending()
	if err != nil {
		return err
	}

	for publicKey, name := range pending {
		if err := s.registerWithRetry(ctx, publicKey, name); err != nil {
			s.log.WithError(err).WithField("publicKey", publicKey).
				Warn("wallet registration still pending")
			continue
		}
		if err := s.store.ClearPending(publicKey); err != nil {
			s.log.WithError(err).WithField("publicKey", publicKey).
				Warn("failed to clear pending marker")
			continue
		}
		s.log.WithField("publicKey", publicKey).Info("reconciled pending wallet registration")
	}
	return nil
}

func (s *Service) registerWithRetry(ctx context.Context, publicKey, name string) error {
	const attempts = 3
	wait := 500 * time.Millisecond

	var err error
	for i := 0; i < attempts; i++ {
		if err = s.registry.CreateWallet(ctx, publicKey, name); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
