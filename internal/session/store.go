package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for ids the store does not know.
var ErrNotFound = errors.New("session not found")

const maxIDAttempts = 3

// Store keeps interview sessions. Implementations must make Mutate atomic for a
// single session and let Acquire serialize whole turns on one session without
// blocking other sessions.
type Store interface {
	// Create assigns an id to the session and stores a copy of it.
	Create(s *Session) (string, error)
	// Get returns a copy of the stored session.
	Get(id string) (Session, error)
	// Mutate applies fn to the session under its lock. Changes are committed
	// only when fn returns nil.
	Mutate(id string, fn func(*Session) error) error
	// Acquire takes the per-session turn lock. The returned release func must be
	// called once the turn is over; it is safe to call more than once.
	Acquire(ctx context.Context, id string) (release func(), err error)
	// Len returns the number of stored sessions.
	Len() int
}

type entry struct {
	// turn is a one-slot semaphore held for a whole submit or end cycle,
	// including the evaluator call. mu only guards session and is never held
	// across that call.
	turn    chan struct{}
	mu      sync.Mutex
	session *Session
}

// MemoryStore is a process-local Store. Sessions are kept for the lifetime of
// the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithIDGenerator overrides the session id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *MemoryStore) { s.newID = fn }
}

// WithClock overrides the time source used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *MemoryStore) { s.now = fn }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) { s.logger = logger }
}

// NewMemoryStore creates an empty store using random UUIDv4 ids.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		newID:   uuid.NewString,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(sess *Session) (string, error) {
	if sess == nil {
		return "", errors.New("session is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := s.newID()
		if _, taken := s.entries[candidate]; candidate != "" && !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("could not allocate a unique session id after %d attempts", maxIDAttempts)
	}

	now := s.now()
	stored := sess.Clone()
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.entries[id] = &entry{
		turn:    make(chan struct{}, 1),
		session: &stored,
	}

	s.logger.Debug("session stored",
		zap.String("session_id", id),
		zap.Int("sessions", len(s.entries)),
	)

	return id, nil
}

func (s *MemoryStore) Get(id string) (Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.Clone(), nil
}

func (s *MemoryStore) Mutate(id string, fn func(*Session) error) error {
	e, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.session.Clone()
	if err := fn(&draft); err != nil {
		return err
	}

	draft.ID = e.session.ID
	draft.UpdatedAt = s.now()
	*e.session = draft

	return nil
}

func (s *MemoryStore) Acquire(ctx context.Context, id string) (func(), error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-e.turn })
	}, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}
