package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"songrank/internal/logging"
	"songrank/internal/ranking"
)

const component = "engine"

// State is the position of the engine in the drag/reorder cycle.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateReordering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateReordering:
		return "reordering"
	default:
		return "unknown"
	}
}

// Cause says why observers are being notified.
type Cause string

const (
	CauseLoaded     Cause = "loaded"
	CauseSelected   Cause = "selected"
	CauseOptimistic Cause = "optimistic"
	CauseRollback   Cause = "rollback"
	CauseReconciled Cause = "reconciled"
	CauseStale      Cause = "stale"
)

// Gateway is the backend the engine synchronises with. *remote.Client
// implements it.
type Gateway interface {
	ListEntries(ctx context.Context, slug string) ([]ranking.Entry, error)
	CreateEntry(ctx context.Context, slug string, draft ranking.Draft) (ranking.Entry, error)
	UpdateEntry(ctx context.Context, id int64, patch ranking.Patch) error
	UpdateRank(ctx context.Context, id int64, newRank int, slug string) error
	DeleteEntry(ctx context.Context, id int64, slug string) error
	ImportTable(ctx context.Context, slug, filename string, data []byte) error
	ListRankings(ctx context.Context) ([]ranking.List, error)
	CreateRanking(ctx context.Context, name, slug string) (ranking.List, error)
}

// Session supplies login state and the selected ranking. *session.Session
// implements it.
type Session interface {
	Authorized() bool
	Ranking() string
	SetRanking(slug string) error
}

// Recorder keeps the last confirmed copy of each list. *snapshot.Store
// implements it.
type Recorder interface {
	Save(ctx context.Context, slug string, entries []ranking.Entry) error
	SaveRankings(ctx context.Context, lists []ranking.List) error
}

// Snapshot is what observers receive after each change to the working copy.
type Snapshot struct {
	Ranking string
	Entries []ranking.Entry
	State   State
	Cause   Cause
	Stale   bool
}

// Option customises Engine construction.
type Option func(*Engine)

// WithRecorder stores every reconciled list.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithEntries seeds the working copy, for example from a cached snapshot.
// The copy is marked stale until the first successful fetch.
func WithEntries(entries []ranking.Entry) Option {
	return func(e *Engine) {
		e.model.Replace(entries)
		e.stale = true
	}
}

// Engine owns the working copy of the selected ranking.
type Engine struct {
	gateway  Gateway
	session  Session
	recorder Recorder
	logger   *slog.Logger

	// inflight admits one gesture or mutating request at a time.
	inflight *semaphore.Weighted

	mu        sync.Mutex
	model     *ranking.Collection
	state     State
	dragSrc   int
	stale     bool
	observers []func(Snapshot)
}

// New builds an Engine bound to the session's selected ranking. Nothing is
// fetched until Load.
func New(gateway Gateway, sess Session, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if gateway == nil {
		return nil, errors.New("engine gateway is nil")
	}
	if sess == nil {
		return nil, errors.New("engine session is nil")
	}
	e := &Engine{
		gateway:  gateway,
		session:  sess,
		logger:   logging.NewComponentLogger(logger, component),
		inflight: semaphore.NewWeighted(1),
		model:    ranking.NewCollection(sess.Ranking(), nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OnChange registers fn to be called after every change to the working copy.
// Callbacks run synchronously on the goroutine that made the change, without
// engine locks held.
func (e *Engine) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Snapshot returns the current working copy.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked("")
}

// Entries returns the current order.
func (e *Engine) Entries() []ranking.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Entries()
}

// Ranking returns the slug of the list being shown.
func (e *Engine) Ranking() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Slug()
}

// State returns the current gesture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ReadOnly reports whether mutations will be refused.
func (e *Engine) ReadOnly() bool {
	return !e.session.Authorized()
}

func (e *Engine) snapshotLocked(cause Cause) Snapshot {
	return Snapshot{
		Ranking: e.model.Slug(),
		Entries: e.model.Entries(),
		State:   e.state,
		Cause:   cause,
		Stale:   e.stale,
	}
}

// commit runs fn under the lock and then notifies observers of the result.
func (e *Engine) commit(cause Cause, fn func()) Snapshot {
	e.mu.Lock()
	if fn != nil {
		fn()
	}
	snap := e.snapshotLocked(cause)
	observers := append([]func(Snapshot){}, e.observers...)
	e.mu.Unlock()

	for _, observer := range observers {
		observer(snap)
	}
	return snap
}

// acquire claims the single mutation slot without waiting.
func (e *Engine) acquire() error {
	if !e.inflight.TryAcquire(1) {
		return ErrBusy
	}
	return nil
}

func (e *Engine) release() {
	e.inflight.Release(1)
}
