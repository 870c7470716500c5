package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"deskwire/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps peer options and settings in a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// migrateUp applies the embedded migrations. It uses its own handle because
// closing the migrator closes the database.
func migrateUp(path string) error {
	db, err := openSQLite(path)
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// migrates it to the current schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := migrateUp(path); err != nil {
		return nil, err
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// withTx runs fn in a transaction.
func (s *SQLiteStore) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadPeer(id string) (domain.Options, error) {
	rows, err := s.db.Query(`SELECT name, value FROM peer_options WHERE peer_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load peer %s: %w", id, err)
	}
	defer rows.Close()
	opts := domain.Options{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		opts[name] = value
	}
	return opts, rows.Err()
}

// SavePeer replaces every option of id in one transaction.
func (s *SQLiteStore) SavePeer(id string, opts domain.Options) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM peer_options WHERE peer_id = ?`, id); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO peer_options (peer_id, name, value) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for name, value := range opts {
			if _, err := stmt.Exec(id, name, value); err != nil {
				return fmt.Errorf("save option %s: %w", name, err)
			}
		}
		_, err = tx.Exec(`INSERT INTO peers (peer_id, updated_at) VALUES (?, ?)
			ON CONFLICT(peer_id) DO UPDATE SET updated_at = excluded.updated_at`,
			id, time.Now().UnixMilli())
		return err
	})
}

func (s *SQLiteStore) DeletePeer(id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM peer_options WHERE peer_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM peers WHERE peer_id = ?`, id)
		return err
	})
}

func (s *SQLiteStore) ListPeers() ([]string, error) {
	rows, err := s.db.Query(`SELECT peer_id FROM peers ORDER BY peer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Setting(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	if value == "" {
		_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
		return err
	}
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

var _ domain.OptionStore = (*SQLiteStore)(nil)
