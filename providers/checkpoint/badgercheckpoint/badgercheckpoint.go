// Package badgercheckpoint stores triage checkpoints in an embedded Badger
// database. Documents are snappy-compressed; transcripts of tool-heavy runs
// compress well.
package badgercheckpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"

	"github.com/antagligen/agent-triage-ralph-antigravity/patterns/graph"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/checkpoint"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/observability"
)

const keyPrefix = "checkpoint/"

// Options configures Open.
type Options struct {
	// Path is the database directory. Required unless InMemory is set.
	Path     string
	InMemory bool
	// TTL expires threads that have not been saved for that long. Zero keeps
	// them forever.
	TTL time.Duration
	// Observer receives Badger's own warnings and errors. Nil silences them.
	Observer observability.Provider
}

// Store is a graph.CheckpointStore backed by Badger.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

var _ graph.CheckpointStore = (*Store)(nil)

// Open opens or creates the database.
func Open(options Options) (*Store, error) {
	if !options.InMemory && options.Path == "" {
		return nil, errors.New("badgercheckpoint: path is required for a persistent database")
	}
	if options.TTL < 0 {
		return nil, fmt.Errorf("badgercheckpoint: negative ttl %s", options.TTL)
	}

	var badgerOptions badger.Options
	if options.InMemory {
		badgerOptions = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(options.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgercheckpoint: create %s: %w", options.Path, err)
		}
		badgerOptions = badger.DefaultOptions(options.Path).WithSyncWrites(true)
	}

	if options.Observer != nil {
		badgerOptions = badgerOptions.WithLogger(&badgerLogger{observer: options.Observer})
	} else {
		badgerOptions = badgerOptions.WithLogger(nil)
	}

	db, err := badger.Open(badgerOptions.WithNumVersionsToKeep(1))
	if err != nil {
		return nil, fmt.Errorf("badgercheckpoint: open: %w", err)
	}
	return &Store{db: db, ttl: options.TTL}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns graph.ErrCheckpointNotFound for unknown or expired threads.
func (s *Store) Load(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	if err := checkpoint.ValidateThreadID(threadID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(threadID))
		if err != nil {
			return err
		}
		compressed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, graph.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badgercheckpoint: load %s: %w", threadID, err)
	}

	document, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("badgercheckpoint: decompress %s: %w", threadID, err)
	}
	return checkpoint.Unmarshal(document)
}

// Save replaces the thread's document and renews its TTL.
func (s *Store) Save(ctx context.Context, saved graph.Checkpoint) error {
	if err := checkpoint.ValidateThreadID(saved.ThreadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	document, err := checkpoint.Marshal(saved)
	if err != nil {
		return err
	}

	entry := badger.NewEntry(key(saved.ThreadID), snappy.Encode(nil, document))
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.SetEntry(entry) }); err != nil {
		return fmt.Errorf("badgercheckpoint: save %s: %w", saved.ThreadID, err)
	}
	return nil
}

// Delete removes the thread. Deleting a missing thread is not an error.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if err := checkpoint.ValidateThreadID(threadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.Delete(key(threadID)) }); err != nil {
		return fmt.Errorf("badgercheckpoint: delete %s: %w", threadID, err)
	}
	return nil
}

// Threads lists stored thread ids in key order.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	threads := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		iteratorOptions := badger.DefaultIteratorOptions
		iteratorOptions.PrefetchValues = false
		iterator := txn.NewIterator(iteratorOptions)
		defer iterator.Close()

		prefix := []byte(keyPrefix)
		for iterator.Seek(prefix); iterator.ValidForPrefix(prefix); iterator.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			threads = append(threads, string(iterator.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgercheckpoint: list threads: %w", err)
	}
	return threads, nil
}

func key(threadID string) []byte {
	return []byte(keyPrefix + threadID)
}

// badgerLogger forwards Badger's log lines to the observability provider.
type badgerLogger struct {
	observer observability.Provider
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.observer.Error(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.observer.Warn(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.observer.Debug(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.observer.Trace(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}
