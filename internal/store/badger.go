package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	e:<kind>:<id, 20 digits>                      -> envelope
//	i:<kind>:<property>:<value>\x00<id, 20 digits> -> empty
//	s:<kind>                                      -> badger sequence
const (
	entityPrefixFmt = "e:%s:"
	indexPrefixFmt  = "i:%s:%s:%s\x00"
	idFmt           = "%020d"
	sequencePrefix  = "s:"

	sequenceBandwidth  = 64
	maxConflictRetries = 32
)

// envelope is the value stored under an entity key. Indexes are kept next
// to the payload so an update can drop stale index keys.
type envelope struct {
	Data    []byte            `json:"d"`
	Indexes map[string]string `json:"i,omitempty"`
}

// BadgerStore is the embedded Badger implementation of Datastore.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

// Open opens (or creates) a Badger datastore in dir.
func Open(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil            // Badger's own logging is noisy; errors surface through return values
	opts.SyncWrites = true       // Avoid losing acknowledged writes on crash
	opts.CompactL0OnClose = true // Faster startup

	return openBadger(opts, logger)
}

// OpenInMemory opens a Badger datastore that lives only in memory.
func OpenInMemory(logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, logger)
}

func openBadger(opts badger.Options, logger *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("badger datastore opened", "path", opts.Dir, "in_memory", opts.InMemory)
	}

	return &BadgerStore{
		db:     db,
		logger: logger,
		seqs:   make(map[string]*badger.Sequence),
	}, nil
}

// Close releases id sequences and closes the database.
func (s *BadgerStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}

	s.mu.Lock()
	var errs []error
	for kind, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s sequence: %w", kind, err))
		}
	}
	s.seqs = map[string]*badger.Sequence{}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("closing badger datastore")
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// AllocateID returns the next id for kind. Ids start at 1.
func (s *BadgerStore) AllocateID(ctx context.Context, kind string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.seqs[kind]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte(sequencePrefix+kind), sequenceBandwidth)
		if err != nil {
			return 0, fmt.Errorf("get %s sequence: %w", kind, err)
		}
		s.seqs[kind] = seq
	}

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", kind, err)
	}
	return int64(n) + 1, nil
}

// Get returns the payload at key.
func (s *BadgerStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		env, err := readEnvelope(txn, key)
		if err != nil {
			return err
		}
		data = env.Data
		return nil
	})
	return data, err
}

// Insert stores a new record and its index entries.
func (s *BadgerStore) Insert(ctx context.Context, key Key, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.retryConflicts(func(txn *badger.Txn) error {
		ek := entityKey(key)
		if _, err := txn.Get(ek); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		return writeRecord(txn, key, nil, rec)
	})
}

// Update runs fn against the current payload inside one transaction.
// Badger conflict errors are retried; fn may therefore run more than once.
func (s *BadgerStore) Update(ctx context.Context, key Key, fn MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.retryConflicts(func(txn *badger.Txn) error {
		current, err := readEnvelope(txn, key)
		if err != nil {
			return err
		}
		next, err := fn(current.Data)
		if err != nil {
			return err
		}
		return writeRecord(txn, key, current.Indexes, next)
	})
}

// Delete removes the record and its index entries.
func (s *BadgerStore) Delete(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var removed []byte
	err := s.retryConflicts(func(txn *badger.Txn) error {
		removed = nil
		current, err := readEnvelope(txn, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for prop, value := range current.Indexes {
			if err := txn.Delete(indexKey(key, prop, value)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
		removed = current.Data
		return txn.Delete(entityKey(key))
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Query iterates entity keys, or index keys when a filter is set, in id order.
func (s *BadgerStore) Query(ctx context.Context, q Query) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	after, err := DecodeIDCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	var prefix []byte
	if q.Filter != nil {
		prefix = fmt.Appendf(nil, indexPrefixFmt, q.Kind, q.Filter.Property, q.Filter.Value)
	} else {
		prefix = fmt.Appendf(nil, entityPrefixFmt, q.Kind)
	}

	page := &Page{Items: []Item{}}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = q.Filter == nil

		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if after > 0 {
			start = fmt.Appendf(append([]byte{}, prefix...), idFmt, after+1)
		}

		var lastID int64
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt key %q: %w", it.Item().Key(), err)
			}

			if q.Limit > 0 && len(page.Items) == q.Limit {
				page.NextCursor = EncodeIDCursor(lastID)
				return nil
			}

			key := Key{Kind: q.Kind, ID: id}
			var env envelope
			if q.Filter != nil {
				env, err = readEnvelope(txn, key)
				if errors.Is(err, ErrNotFound) {
					continue // index entry without its record
				}
			} else {
				env, err = decodeEnvelope(it.Item())
			}
			if err != nil {
				return err
			}

			page.Items = append(page.Items, Item{Key: key, Data: env.Data})
			lastID = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *BadgerStore) retryConflicts(fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		return err
	}
}

func entityKey(key Key) []byte {
	return fmt.Appendf(nil, entityPrefixFmt+idFmt, key.Kind, key.ID)
}

func indexKey(key Key, property, value string) []byte {
	return fmt.Appendf(nil, indexPrefixFmt+idFmt, key.Kind, property, value, key.ID)
}

func readEnvelope(txn *badger.Txn, key Key) (envelope, error) {
	item, err := txn.Get(entityKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return envelope{}, ErrNotFound
	}
	if err != nil {
		return envelope{}, fmt.Errorf("failed to get key: %w", err)
	}
	return decodeEnvelope(item)
}

func decodeEnvelope(item *badger.Item) (envelope, error) {
	var env envelope
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &env)
	})
	if err != nil {
		return envelope{}, fmt.Errorf("failed to decode record %q: %w", item.Key(), err)
	}
	return env, nil
}

// writeRecord stores rec at key, replacing index keys listed in old.
func writeRecord(txn *badger.Txn, key Key, old map[string]string, rec Record) error {
	for prop, value := range old {
		if rec.Indexes[prop] == value {
			continue
		}
		if err := txn.Delete(indexKey(key, prop, value)); err != nil {
			return fmt.Errorf("failed to delete old index key: %w", err)
		}
	}
	for prop, value := range rec.Indexes {
		if err := txn.Set(indexKey(key, prop, value), nil); err != nil {
			return fmt.Errorf("failed to set index key: %w", err)
		}
	}

	data, err := json.Marshal(envelope{Data: rec.Data, Indexes: rec.Indexes})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := txn.Set(entityKey(key), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}
