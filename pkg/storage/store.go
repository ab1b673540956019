package storage

import "errors"

// ErrClosed is returned by backends that have been closed.
var ErrClosed = errors.New("storage: store is closed")

// Store is the typed key/value contract the SDK persists its state through.
// Every getter reports whether the key held a well-formed value; malformed
// values read as absent rather than as errors. Errors are reserved for I/O
// failures of the underlying backend.
type Store interface {
	GetString(key string) (string, bool, error)
	SetString(key, value string) error

	GetStringList(key string) ([]string, bool, error)
	SetStringList(key string, values []string) error

	GetLong(key string) (int64, bool, error)
	SetLong(key string, value int64) error

	GetInt(key string) (int, bool, error)
	SetInt(key string, value int) error

	GetBool(key string) (bool, bool, error)
	SetBool(key string, value bool) error

	Contains(key string) (bool, error)
	Remove(key string) error
	Clear() error
}

// Backend is a namespaced byte-level store. Namespaces let several clients
// (one per realm) share a single database file without seeing each other's keys.
type Backend interface {
	Get(namespace, key string) ([]byte, bool, error)
	Put(namespace, key string, value []byte) error
	Delete(namespace, key string) error
	DeleteAll(namespace string) error
	Close() error
}

// DefaultNamespace is used when a client has no realm.
const DefaultNamespace = "default"

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}
