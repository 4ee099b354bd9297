package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store — хранилище каталога, профилей дефектов и инцидентов на SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open открывает базу, применяет прагмы и миграции.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close закрывает соединение с базой.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			part_code TEXT NOT NULL,
			part_name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS defect_profiles (
			id TEXT PRIMARY KEY,
			customer TEXT NOT NULL,
			part_code TEXT NOT NULL,
			part_name TEXT NOT NULL,
			defect_type TEXT NOT NULL,
			defect_title TEXT NOT NULL,
			defect_description TEXT NOT NULL,
			keywords TEXT NOT NULL,
			severity TEXT NOT NULL,
			reference_images TEXT NOT NULL,
			image_embedding TEXT NOT NULL,
			text_embedding TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_defect_profiles_customer ON defect_profiles(customer)`,
		`CREATE INDEX IF NOT EXISTS idx_defect_profiles_part_code ON defect_profiles(part_code)`,
		`CREATE TABLE IF NOT EXISTS defect_incidents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			predicted_defect_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			image_embedding TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_defect_incidents_user ON defect_incidents(user_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
