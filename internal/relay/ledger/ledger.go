// Package ledger persists local accounts and issued tokens. Both tables are
// append-only: nothing is updated or deduplicated, and the uid carries no
// uniqueness constraint.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/EGA-archive/EGA-auth/internal/platform/storage/sqlitemigrate"
	"github.com/EGA-archive/EGA-auth/internal/relay/account"
	"github.com/EGA-archive/EGA-auth/internal/relay/ledger/migrations"
	_ "modernc.org/sqlite"
)

// Token is one issued-token row. SessionID is the OAuth state value that
// initiated the flow.
type Token struct {
	UID         int64
	SessionID   string
	AccessToken string
	IDToken     string
}

// Store provides SQLite-backed persistence for users and tokens.
type Store struct {
	db *sql.DB
}

// Open opens the ledger database and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the raw database handle for tooling and tests.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// InsertUser appends one account row.
func (s *Store) InsertUser(ctx context.Context, u account.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, uid, gecos) VALUES (?, ?, ?)",
		u.Username, u.UID, u.Gecos,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// InsertToken appends one issued-token row.
func (s *Store) InsertToken(ctx context.Context, t Token) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tokens (user, session_id, access_token, id_token) VALUES (?, ?, ?, ?)",
		t.UID, t.SessionID, t.AccessToken, t.IDToken,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// RecordLogin appends the account row and its token row in one transaction,
// so a crash cannot leave a user row without its token row.
func (s *Store) RecordLogin(ctx context.Context, u account.User, t Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin login transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, uid, gecos) VALUES (?, ?, ?)",
		u.Username, u.UID, u.Gecos,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tokens (user, session_id, access_token, id_token) VALUES (?, ?, ?, ?)",
		t.UID, t.SessionID, t.AccessToken, t.IDToken,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit login: %w", err)
	}
	return nil
}
