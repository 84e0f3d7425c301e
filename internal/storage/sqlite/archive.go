// Package sqlite provides a SQLite-backed match archive.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Archive persists finished match records in SQLite.
type Archive struct {
	sqlDB *sql.DB
}

var _ storage.MatchArchive = (*Archive)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the archive at path and applies the embedded schema.
func Open(path string) (*Archive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("archive path is required")
	}

	dsn := path
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == MemoryPath {
		// each connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Archive{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (a *Archive) Close() error {
	if a == nil || a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.Close()
}

// SaveMatch inserts one match record. A second write for the same lobby fails with ErrMatchExists.
func (a *Archive) SaveMatch(ctx context.Context, match *model.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if match == nil || match.LobbyID == "" {
		return model.Validationf("match lobby id is required")
	}

	snapshot, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("encode match: %w", err)
	}
	_, err = a.sqlDB.ExecContext(ctx,
		`INSERT INTO matches (lobby_id, map, server_ip, snapshot, archived_at) VALUES (?, ?, ?, ?, ?)`,
		string(match.LobbyID), match.Map, match.ServerInfo.IP, string(snapshot), toMillis(match.ArchivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrMatchExists
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// GetMatch returns the archived record for a lobby.
func (a *Archive) GetMatch(ctx context.Context, id model.LobbyID) (*model.Match, error) {
	row := a.sqlDB.QueryRowContext(ctx, `SELECT snapshot, archived_at FROM matches WHERE lobby_id = ?`, string(id))

	var (
		snapshot   string
		archivedAt int64
	)
	if err := row.Scan(&snapshot, &archivedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	return decodeMatch(snapshot, archivedAt)
}

// ListMatches returns up to limit records, newest first.
func (a *Archive) ListMatches(ctx context.Context, limit int) ([]*model.Match, error) {
	if limit <= 0 {
		return []*model.Match{}, nil
	}
	rows, err := a.sqlDB.QueryContext(ctx,
		`SELECT snapshot, archived_at FROM matches ORDER BY archived_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*model.Match, 0, limit)
	for rows.Next() {
		var (
			snapshot   string
			archivedAt int64
		)
		if err := rows.Scan(&snapshot, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		match, err := decodeMatch(snapshot, archivedAt)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

func decodeMatch(snapshot string, archivedAt int64) (*model.Match, error) {
	var match model.Match
	if err := json.Unmarshal([]byte(snapshot), &match); err != nil {
		return nil, fmt.Errorf("decode match: %w", err)
	}
	match.ArchivedAt = fromMillis(archivedAt)
	return &match, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
