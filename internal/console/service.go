package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/dmx"
	"github.com/nerrad567/lumen-core/internal/output"
	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/state"
)

// Logger is the logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Service.
type Options struct {
	Logger Logger

	// Output configures the engine. Its Logger defaults to Logger.
	Output output.Options
}

// Service ties the show together.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Document changes are serialised; state updates go through the state
//     store's own single writer and never wait for a document change.
type Service struct {
	store  show.Store
	logger Logger

	state  *state.Store
	engine *output.Engine
	roster *auth.Roster

	// docMu serialises document changes and guards doc and model.
	docMu sync.RWMutex
	doc   *show.Document
	model *show.Model

	notifierMu sync.RWMutex
	notifier   RoleNotifier

	runMu  sync.Mutex
	runCtx context.Context
}

// New loads the document from store and builds the service.
//
// It builds:
//   - The model index of the loaded document
//   - The state store, seeded with channel defaults
//   - The output engine (stopped; call Start)
//   - The client roster from the document's client records
//
// A store with no document yet loads as show.Default(). A document that
// fails validation is an error; the service never runs on a partial show.
//
// Parameters:
//   - ctx: Context for the initial store load
//   - store: Show document backend (file or SQLite)
//   - opts: Logger and output engine options
//
// Returns:
//   - *Service: Ready service with the engine stopped
//   - error: Wrapped load or validation failure
func New(ctx context.Context, store show.Store, opts Options) (*Service, error) {
	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading show: %w", err)
	}
	model, err := show.NewModel(doc)
	if err != nil {
		return nil, fmt.Errorf("loading show: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.Output.Logger == nil {
		opts.Output.Logger = logger
	}

	st := state.New(model)
	s := &Service{
		store:    store,
		logger:   logger,
		state:    st,
		engine:   output.NewEngine(st, opts.Output),
		roster:   auth.NewRoster(doc.Clients, doc.Access.DefaultRole),
		doc:      model.Document().Clone(),
		model:    model,
		notifier: noopNotifier{},
		runCtx:   context.Background(),
	}
	return s, nil
}

// SetRoleNotifier installs the receiver of roster notifications.
func (s *Service) SetRoleNotifier(n RoleNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifierMu.Lock()
	s.notifier = n
	s.notifierMu.Unlock()
}

func (s *Service) notify() RoleNotifier {
	s.notifierMu.RLock()
	defer s.notifierMu.RUnlock()
	return s.notifier
}

// Start starts the output engine. ctx bounds the engine across restarts.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	s.runCtx = ctx
	s.runMu.Unlock()
	return s.engine.Start(ctx)
}

// Stop stops the output engine.
func (s *Service) Stop() {
	s.engine.Stop()
}

// Config returns a copy of the document with the live roster.
func (s *Service) Config() *show.Document {
	s.docMu.RLock()
	doc := s.doc.Clone()
	s.docMu.RUnlock()
	doc.Clients = s.roster.Records()
	return doc
}

// Model returns the current model.
func (s *Service) Model() *show.Model {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.model
}

// ReplaceConfig validates and stores doc, reinitialises state and restarts
// output. The roster is not taken from doc; clients are administered
// through the roster operations only.
func (s *Service) ReplaceConfig(ctx context.Context, doc *show.Document) (*show.Document, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	return s.replaceLocked(ctx, doc)
}

// ResetConfig replaces the document with show.Default, keeping the roster.
func (s *Service) ResetConfig(ctx context.Context) (*show.Document, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	doc := show.Default()
	doc.Access = s.doc.Access
	return s.replaceLocked(ctx, doc)
}

func (s *Service) replaceLocked(ctx context.Context, doc *show.Document) (*show.Document, error) {
	next := doc.Clone()
	next.Normalize()
	next.Clients = s.roster.Records()
	model, err := show.NewModel(next)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving show: %w", err)
	}

	s.roster.Replace(next.Clients, next.Access.DefaultRole)
	s.swapLocked(next, model, true)
	return s.configLocked(), nil
}

// SetActiveLayout selects the dashboard the UI opens by default.
func (s *Service) SetActiveLayout(ctx context.Context, dashboardID string) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	if _, ok := s.doc.Dashboard(dashboardID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDashboard, dashboardID)
	}
	next := s.doc.Clone()
	next.ActiveLayout = dashboardID
	next.Clients = s.roster.Records()
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("saving show: %w", err)
	}
	s.doc = next
	return nil
}

// ReloadFromStore adopts a document changed outside the service, such as a
// hand edit picked up by the file watcher. Output restarts only when
// addressing or protocol settings changed.
func (s *Service) ReloadFromStore(doc *show.Document) error {
	model, err := show.NewModel(doc)
	if err != nil {
		return err
	}

	s.docMu.Lock()
	restart := show.OutputFingerprint(s.doc) != show.OutputFingerprint(doc)
	s.roster.Replace(doc.Clients, doc.Access.DefaultRole)
	s.swapLocked(doc.Clone(), model, restart)
	s.docMu.Unlock()

	s.notify().RosterChanged()
	s.logger.Info("show reloaded from store", "output_restarted", restart)
	return nil
}

// swapLocked installs a new document and model. Caller holds docMu, so
// state listeners run here must not call back into the service.
func (s *Service) swapLocked(doc *show.Document, model *show.Model, restart bool) {
	s.doc = doc
	s.model = model
	s.state.Reinitialize(model)
	if !restart {
		return
	}

	s.runMu.Lock()
	ctx := s.runCtx
	s.runMu.Unlock()
	if err := s.engine.Restart(ctx); err != nil {
		s.logger.Error("output engine restart failed", "error", err)
	}
}

func (s *Service) configLocked() *show.Document {
	doc := s.doc.Clone()
	doc.Clients = s.roster.Records()
	return doc
}

// ApplyUpdate merges a state update. Authorisation is the caller's job.
func (s *Service) ApplyUpdate(u state.Update) (state.RuntimeState, error) {
	return s.state.ApplyUpdate(u)
}

// State returns a snapshot of the runtime state.
func (s *Service) State() state.RuntimeState {
	return s.state.Snapshot()
}

// Subscribe registers a state listener. See state.Store.Subscribe.
func (s *Service) Subscribe(l state.Listener) {
	s.state.Subscribe(l)
}

// Frames returns the last transmitted DMX frame.
func (s *Service) Frames() []dmx.Universe {
	return s.engine.Frames()
}

// OutputStats returns the output engine counters.
func (s *Service) OutputStats() output.Stats {
	return s.engine.Stats()
}

// Access returns the roster-wide access settings.
func (s *Service) Access() show.AccessSettings {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc.Access
}
