// Package library persists the cursor library index: a JSON array of
// CursorAsset records. Every mutation loads the whole index, changes it and
// writes it back under one write lock.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// ErrPoisoned is returned by every operation after a mutation panicked while
// holding the write lock. The index on disk is whatever was last saved.
var ErrPoisoned = errors.New("library store poisoned by an earlier panic")

// Store is the single shared view of the library index. It is safe for
// concurrent use within one process; separate processes writing the same
// file are last-writer-wins.
type Store struct {
	mu       sync.RWMutex
	poisoned error

	path   string
	fs     types.FileSystem
	events types.EventSink
	log    *zap.Logger

	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithEvents delivers a LibraryEvent after every save.
func WithEvents(sink types.EventSink) Option {
	return func(s *Store) { s.events = sink }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store over the index file at path.
func NewStore(fsys types.FileSystem, path string, opts ...Option) *Store {
	s := &Store{
		path:  path,
		fs:    fsys,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: generateUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the index file location.
func (s *Store) Path() string { return s.path }

// generateUUID generates a new UUID v7 for cursor IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// Load returns the current index. A missing index file is an empty library.
func (s *Store) Load() ([]types.CursorAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poisoned != nil {
		return nil, s.poisoned
	}
	return s.load()
}

func (s *Store) load() ([]types.CursorAsset, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.CursorAsset{}, nil
		}
		return nil, fmt.Errorf("read library %s: %w", s.path, err)
	}
	var assets []types.CursorAsset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("parse library %s: %w", s.path, err)
	}
	if assets == nil {
		assets = []types.CursorAsset{}
	}
	return assets, nil
}

// Save replaces the whole index.
func (s *Store) Save(assets []types.CursorAsset) error {
	return s.Update(func([]types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		return assets, &types.LibraryEvent{Kind: types.EventUpdated}, nil
	})
}

func (s *Store) save(assets []types.CursorAsset) error {
	if assets == nil {
		assets = []types.CursorAsset{}
	}
	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}
	if err := s.fs.WriteFile(s.path, data); err != nil {
		return fmt.Errorf("write library %s: %w", s.path, err)
	}
	return nil
}

// MutateFunc receives the loaded index and returns the index to save and
// the event describing the change. A nil event means nothing changed and
// nothing is written.
type MutateFunc func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error)

// Update runs one load, mutate, save cycle under the write lock and then
// notifies the event sink. A panic inside fn poisons the store and is
// returned as an error wrapping ErrPoisoned.
func (s *Store) Update(fn MutateFunc) error {
	ev, err := s.update(fn)
	if err != nil || ev == nil {
		return err
	}
	if s.events != nil {
		s.events.LibraryChanged(*ev)
	}
	return nil
}

func (s *Store) update(fn MutateFunc) (ev *types.LibraryEvent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned != nil {
		return nil, s.poisoned
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = fmt.Errorf("%w: %v", ErrPoisoned, r)
			s.log.Error("library mutation panicked", zap.Any("panic", r))
			ev, err = nil, s.poisoned
		}
	}()

	assets, err := s.load()
	if err != nil {
		return nil, err
	}
	next, ev, err := fn(assets)
	if err != nil || ev == nil {
		return nil, err
	}
	if err := s.save(next); err != nil {
		return nil, err
	}
	s.log.Debug("library saved", zap.String("event", string(ev.Kind)), zap.Int("cursors", len(next)))
	return ev, nil
}
