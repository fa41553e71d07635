// Package history records resolved video items in a local SQLite database.
// Each page is stored once; resolving it again updates the entry.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"mediathek/internal/media"
)

const (
	schemaVersion = 1
	// Fixed width so that resolved_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrNotFound is returned by Remove when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// DefaultPath returns the XDG-compliant database location.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "mediathek", "history.db"), nil
}

// Store is a SQLite-backed history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories
// with restrictive permissions.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One writer; the CLI never needs more.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS resolutions (
		page_url    TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		stream_uri  TEXT NOT NULL,
		format      TEXT NOT NULL,
		quality     INTEGER NOT NULL,
		resolved_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds an entry or updates the existing entry for the same page.
func (s *Store) Record(ctx context.Context, e media.HistoryEntry) error {
	if e.PageURL == "" {
		return errors.New("history entry has no page URL")
	}
	if e.ResolvedAt.IsZero() {
		e.ResolvedAt = time.Now()
	}

	query := `
	INSERT INTO resolutions (page_url, title, stream_uri, format, quality, resolved_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(page_url) DO UPDATE SET
		title = excluded.title,
		stream_uri = excluded.stream_uri,
		format = excluded.format,
		quality = excluded.quality,
		resolved_at = excluded.resolved_at
	`
	_, err := s.db.ExecContext(ctx, query,
		e.PageURL, e.Title, e.StreamURI, e.Format.String(), e.Quality, e.ResolvedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.PageURL, err)
	}
	return nil
}

// List returns up to limit entries, most recent first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]media.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT page_url, title, stream_uri, format, quality, resolved_at
	FROM resolutions ORDER BY resolved_at DESC, page_url LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var (
			e                  media.HistoryEntry
			format, resolvedAt string
		)
		if err := rows.Scan(&e.PageURL, &e.Title, &e.StreamURI, &format, &e.Quality, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if e.Format, err = media.ParseFormat(format); err != nil {
			return nil, fmt.Errorf("history row %s: %w", e.PageURL, err)
		}
		if e.ResolvedAt, err = time.Parse(timeLayout, resolvedAt); err != nil {
			return nil, fmt.Errorf("history row %s: %w", e.PageURL, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes the entry for pageURL.
func (s *Store) Remove(ctx context.Context, pageURL string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE page_url = ?`, pageURL)
	if err != nil {
		return fmt.Errorf("removing %s: %w", pageURL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", pageURL, ErrNotFound)
	}
	return nil
}

// EntryFor builds the history entry for a resolved item.
func EntryFor(item media.VideoItem, at time.Time) media.HistoryEntry {
	return media.HistoryEntry{
		PageURL:    item.PageURL,
		Title:      item.Title,
		StreamURI:  item.StreamURI,
		Format:     item.Format,
		Quality:    item.Quality,
		ResolvedAt: at,
	}
}
