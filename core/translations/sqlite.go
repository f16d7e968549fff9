// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package translations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/rs/zerolog/log"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

var errEmptyPath = errors.New("sqlite translation store needs a path")

var ddls = []string{
	`CREATE TABLE IF NOT EXISTS translations (
		message_id INTEGER NOT NULL,
		lang TEXT NOT NULL,
		text TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (message_id, lang)
	)`,
}

var dbPragmas = []string{
	"PRAGMA synchronous = normal",
	"PRAGMA temp_store = memory",
	"PRAGMA journal_mode = WAL",
}

const (
	dbqUpsertTranslation = `INSERT INTO translations (message_id, lang, text) VALUES (?, ?, ?)
		ON CONFLICT (message_id, lang) DO UPDATE SET text = excluded.text, updated_at = CURRENT_TIMESTAMP`
	dbqSelectTranslations = "SELECT lang, text FROM translations WHERE message_id = ?"
)

// SQLite keeps translations in a SQLite database so they survive restarts.
type SQLite struct {
	db         *sql.DB
	upsertStmt *sql.Stmt
	selectStmt *sql.Stmt
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errEmptyPath
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening translation database: %w", err)
	}

	// A single connection serialises writers, and every connection to
	// ":memory:" would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	if err := prepareDB(ctx, db); err != nil {
		closeDB(db)

		return nil, fmt.Errorf("error creating translation database: %w", err)
	}

	s := &SQLite{db: db}

	if err := s.prepareStatements(ctx); err != nil {
		closeDB(db)

		return nil, fmt.Errorf("error preparing translation database statements: %w", err)
	}

	log.Info().
		Str("path", path).
		Msg("Opened SQLite translation store")

	return s, nil
}

func prepareDB(ctx context.Context, db *sql.DB) error {
	for _, stmt := range dbPragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec pragma %q: %w", stmt, err)
		}
	}

	for _, stmt := range ddls {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec ddl %q: %w", stmt, err)
		}
	}

	return nil
}

func (s *SQLite) prepareStatements(ctx context.Context) error {
	var err error

	s.upsertStmt, err = s.db.PrepareContext(ctx, dbqUpsertTranslation)
	if err != nil {
		return fmt.Errorf("prepare upsertStmt: %w", err)
	}

	s.selectStmt, err = s.db.PrepareContext(ctx, dbqSelectTranslations)
	if err != nil {
		return fmt.Errorf("prepare selectStmt: %w", err)
	}

	return nil
}

func (s *SQLite) Put(ctx context.Context, messageID int, lang, text string) error {
	if _, err := s.upsertStmt.ExecContext(ctx, messageID, lang, text); err != nil {
		return fmt.Errorf("failed to save translation for message %d (%s): %w", messageID, lang, err)
	}

	return nil
}

func (s *SQLite) ForMessage(ctx context.Context, messageID int) (map[string]string, error) {
	rows, err := s.selectStmt.QueryContext(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations for message %d: %w", messageID, err)
	}
	defer rows.Close()

	out := make(map[string]string)

	for rows.Next() {
		var lang, text string
		if err := rows.Scan(&lang, &text); err != nil {
			return nil, fmt.Errorf("failed to scan translation for message %d: %w", messageID, err)
		}

		out[lang] = text
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read translations for message %d: %w", messageID, err)
	}

	return out, nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLite) Close() error {
	return errors.Join(s.upsertStmt.Close(), s.selectStmt.Close(), s.db.Close())
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Err(err).Msg("Error closing translation database")
	}
}
