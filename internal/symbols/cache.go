package symbols

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// Cache stores extracted declarations keyed by file path and content hash.
type Cache interface {
	Get(path string, sum uint64) (FileDecls, bool)
	Put(path string, sum uint64, decls FileDecls) error
}

// Key prefixes for the BadgerDB key scheme.
const (
	prefixDecls = "decl:v1:"
	prefixFile  = "file:v1:"
)

func declKey(path string, sum uint64) []byte {
	return []byte(prefixDecls + path + ":" + strconv.FormatUint(sum, 16))
}

// fileKey maps a path to the hash of its latest cached content.
func fileKey(path string) []byte { return []byte(prefixFile + path) }

// BadgerCache is a Cache persisted in a BadgerDB directory.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens (or creates) a declaration cache at dir.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get returns the declarations cached for this exact file content.
func (c *BadgerCache) Get(path string, sum uint64) (FileDecls, bool) {
	var decls FileDecls
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(declKey(path, sum))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &decls)
		})
	})
	if err != nil {
		return FileDecls{}, false
	}
	return decls, true
}

// Put stores the declarations of one file version and drops the entry of the
// version it replaces.
func (c *BadgerCache) Put(path string, sum uint64, decls FileDecls) error {
	data, err := json.Marshal(decls)
	if err != nil {
		return fmt.Errorf("marshal declarations: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(path))
		switch {
		case err == nil:
			var prev []byte
			if prev, err = item.ValueCopy(nil); err != nil {
				return err
			}
			if old, perr := strconv.ParseUint(string(prev), 16, 64); perr == nil && old != sum {
				if err := txn.Delete(declKey(path, old)); err != nil {
					return err
				}
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(declKey(path, sum), data); err != nil {
			return err
		}
		return txn.Set(fileKey(path), []byte(strconv.FormatUint(sum, 16)))
	})
}

// Len returns the number of cached file versions.
func (c *BadgerCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixDecls)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
