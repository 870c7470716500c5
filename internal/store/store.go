package store

import (
	"fmt"
	"path/filepath"

	"deskwire/internal/domain"
)

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the directory for the file driver and the database file for
	// sqlite. Empty means a default under Home.
	Path       string
	Home       string
	Passphrase string
	KDF        KDFParams
}

// Open returns the configured OptionStore and a function releasing it.
func Open(cfg Config) (domain.OptionStore, func() error, error) {
	var (
		inner   domain.OptionStore
		closeFn = func() error { return nil }
	)
	switch cfg.Driver {
	case "", DriverFile:
		dir := cfg.Path
		if dir == "" {
			dir = cfg.Home
		}
		inner = NewOptionFileStore(dir)
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(cfg.Home, "deskwire.db")
		}
		db, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		inner, closeFn = db, db.Close
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if cfg.Passphrase == "" {
		return inner, closeFn, nil
	}
	kdf := cfg.KDF
	if kdf.N == 0 {
		kdf = DefaultKDF
	}
	sealed, err := NewSealedStore(inner, cfg.Passphrase, kdf)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return sealed, closeFn, nil
}
