// ABOUTME: Transaction support for atomic multi-key operations
// ABOUTME: Thin wrapper over badger transactions with Begin/Commit/Abort

package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrConflict is returned by Commit when a concurrent transaction won
var ErrConflict = badger.ErrConflict

// updateAttempts bounds how often Update reruns a conflicting transaction
const updateAttempts = 8

// KVTX represents a key-value transaction
type KVTX struct {
	txn *badger.Txn
}

// Begin starts a new transaction; update selects read-write mode
func (kv *KV) Begin(update bool) *KVTX {
	return &KVTX{txn: kv.db.NewTransaction(update)}
}

// Update runs fn in a read-write transaction and commits it. When a
// concurrent writer touched the keys fn read, fn runs again on a fresh
// transaction; ErrConflict is returned once the attempts are used up.
func (kv *KV) Update(fn func(tx *KVTX) error) error {
	for attempt := 1; ; attempt++ {
		tx := kv.Begin(true)
		if err := fn(tx); err != nil {
			tx.Abort()
			return err
		}

		err := tx.Commit()
		tx.Abort()
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt == updateAttempts {
			return fmt.Errorf("update gave up after %d attempts: %w", attempt, err)
		}
	}
}

// View runs fn in a read-only transaction
func (kv *KV) View(fn func(tx *KVTX) error) error {
	return kv.db.View(func(txn *badger.Txn) error {
		return fn(&KVTX{txn: txn})
	})
}

// Commit commits the transaction atomically
func (tx *KVTX) Commit() error {
	return tx.txn.Commit()
}

// Abort rolls back the transaction
func (tx *KVTX) Abort() {
	tx.txn.Discard()
}

// Get retrieves a value within the transaction
func (tx *KVTX) Get(key []byte) ([]byte, bool, error) {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set inserts or updates a key-value pair within the transaction
func (tx *KVTX) Set(key []byte, val []byte) error {
	return tx.txn.Set(key, val)
}

// Del deletes a key within the transaction
func (tx *KVTX) Del(key []byte) (bool, error) {
	_, found, err := tx.Get(key)
	if err != nil || !found {
		return false, err
	}
	return true, tx.txn.Delete(key)
}

// Scan iterates over keys with the given prefix in key order
func (tx *KVTX) Scan(prefix []byte, callback func(key, val []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !callback(item.KeyCopy(nil), val) {
			return nil
		}
	}
	return nil
}
