// ABOUTME: Persistent key-value store backed by BadgerDB
// ABOUTME: Adds prefix scans, named sequences and value log GC on top of badger

package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Sequence lease size; unused ids are handed back on Close
const sequenceBandwidth = 64

// Config holds configuration for a KV instance
type Config struct {
	Path           string // Directory for badger files, ignored when InMemory
	InMemory       bool
	SyncWrites     bool
	GCInterval     time.Duration // 0 disables value log GC
	GCDiscardRatio float64
	Logger         *zerolog.Logger // nil silences badger
}

// DefaultConfig returns production defaults for a database at path
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// KV represents a persistent key-value store
type KV struct {
	db *badger.DB

	seqMu sync.Mutex
	seqs  map[string]*badger.Sequence

	stopGC chan struct{}
	gcDone chan struct{}
}

// badgerLogger adapts zerolog to badger's Logger interface
type badgerLogger struct {
	zlog zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Open opens or creates a database
func Open(cfg Config) (*KV, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{zlog: cfg.Logger.With().Str("component", "badger").Logger()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	kv := &KV{
		db:   db,
		seqs: make(map[string]*badger.Sequence),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		kv.stopGC = make(chan struct{})
		kv.gcDone = make(chan struct{})
		go kv.runGC(cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
	}

	return kv, nil
}

// Close releases sequences, stops GC and closes the database
func (kv *KV) Close() error {
	if kv.stopGC != nil {
		close(kv.stopGC)
		<-kv.gcDone
	}

	kv.seqMu.Lock()
	for name, seq := range kv.seqs {
		if err := seq.Release(); err != nil {
			kv.seqMu.Unlock()
			return fmt.Errorf("release sequence %q: %w", name, err)
		}
	}
	kv.seqs = nil
	kv.seqMu.Unlock()

	return kv.db.Close()
}

// Get retrieves a value by key
func (kv *KV) Get(key []byte) ([]byte, bool, error) {
	var val []byte
	var found bool
	err := kv.View(func(tx *KVTX) error {
		var err error
		val, found, err = tx.Get(key)
		return err
	})
	return val, found, err
}

// Set inserts or updates a key-value pair
func (kv *KV) Set(key []byte, val []byte) error {
	return kv.Update(func(tx *KVTX) error {
		return tx.Set(key, val)
	})
}

// Del deletes a key
func (kv *KV) Del(key []byte) (bool, error) {
	var deleted bool
	err := kv.Update(func(tx *KVTX) error {
		var err error
		deleted, err = tx.Del(key)
		return err
	})
	return deleted, err
}

// Scan iterates over every key starting with prefix until callback returns false
func (kv *KV) Scan(prefix []byte, callback func(key, val []byte) bool) error {
	return kv.View(func(tx *KVTX) error {
		return tx.Scan(prefix, callback)
	})
}

// NextSequence returns the next value of a named, persistent counter.
// The first value of a new sequence is 0.
func (kv *KV) NextSequence(name string) (uint64, error) {
	kv.seqMu.Lock()
	defer kv.seqMu.Unlock()

	if kv.seqs == nil {
		return 0, errors.New("kv closed")
	}

	seq, ok := kv.seqs[name]
	if !ok {
		var err error
		seq, err = kv.db.GetSequence(EncodeKey(PREFIX_SEQUENCE, NewStringValue(name)), sequenceBandwidth)
		if err != nil {
			return 0, fmt.Errorf("get sequence %q: %w", name, err)
		}
		kv.seqs[name] = seq
	}

	return seq.Next()
}

func (kv *KV) runGC(interval time.Duration, ratio float64, log *zerolog.Logger) {
	defer close(kv.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-kv.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing to collect
			err := kv.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && log != nil {
				log.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}
