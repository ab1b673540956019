package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	// Root bucket; every namespace is a nested bucket below it
	bucketPrefs = []byte("prefs")
)

// DefaultBoltFile is the database file name created inside the data directory.
const DefaultBoltFile = "releva.db"

// BoltStore implements Backend using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return OpenBoltStore(filepath.Join(dataDir, DefaultBoltFile))
}

// OpenBoltStore opens (or creates) the BoltDB file at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPrefs); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketPrefs, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key in namespace
func (s *BoltStore) Get(namespace, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs).Bucket([]byte(namespaceOrDefault(namespace)))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		// Bolt memory is only valid for the life of the transaction
		value = append([]byte(nil), data...)
		found = true
		return nil
	})
	return value, found, err
}

// Put stores value under key in namespace, creating the namespace bucket
func (s *BoltStore) Put(namespace, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketPrefs).CreateBucketIfNotExists([]byte(namespaceOrDefault(namespace)))
		if err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		return b.Put([]byte(key), value)
	})
}

// Delete removes key from namespace
func (s *BoltStore) Delete(namespace, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs).Bucket([]byte(namespaceOrDefault(namespace)))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// DeleteAll drops the whole namespace bucket
func (s *BoltStore) DeleteAll(namespace string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketPrefs).DeleteBucket([]byte(namespaceOrDefault(namespace)))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// Namespaces lists the namespaces that currently hold data
func (s *BoltStore) Namespaces() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
