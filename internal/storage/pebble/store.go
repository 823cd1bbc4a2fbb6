package pebblestore

import (
	"sync"
	"time"

	"github.com/vkmc/zaqar-websocket/internal/storage"
	"github.com/vkmc/zaqar-websocket/pkg/id"
)

// Options configures the store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
}

// Store implements storage.Backend over a single Pebble database. All three
// controllers share the database, the message id generator, and a write
// mutex that serializes read-modify-write sequences (claiming, popping).
type Store struct {
	db  *DB
	gen *id.Generator

	// mu guards multi-key read-modify-write sequences. Plain reads go
	// straight to Pebble.
	mu sync.Mutex

	queues   *queueController
	messages *messageController
	claims   *claimController

	// nowMs is swappable in tests to exercise expiry behavior.
	nowMs func() int64
}

// Open creates or opens a store at the given directory.
func Open(opts Options) (*Store, error) {
	db, err := openDB(opts.DataDir, opts.Fsync, opts.FsyncInterval)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:    db,
		gen:   id.NewGenerator(),
		nowMs: func() int64 { return time.Now().UnixMilli() },
	}
	s.queues = &queueController{s: s}
	s.messages = &messageController{s: s}
	s.claims = &claimController{s: s}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// QueueController implements storage.Backend.
func (s *Store) QueueController() storage.QueueController { return s.queues }

// MessageController implements storage.Backend.
func (s *Store) MessageController() storage.MessageController { return s.messages }

// ClaimController implements storage.Backend.
func (s *Store) ClaimController() storage.ClaimController { return s.claims }

// CheckHealth verifies the database is open and iterable.
func (s *Store) CheckHealth() error {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}
