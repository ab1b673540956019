package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend drivers accepted by Open
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// DefaultSQLiteFile is the database file name created inside the data directory.
const DefaultSQLiteFile = "releva.sqlite"

// Open opens the backend named by driver, keeping its files under dataDir
func Open(driver, dataDir string) (Backend, error) {
	switch driver {
	case DriverBolt:
		store, err := NewBoltStore(dataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := OpenSQLiteStore(filepath.Join(dataDir, DefaultSQLiteFile))
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
