package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/tutorview/internal/checksum"
)

// Entry is one cached lookup outcome.
type Entry struct {
	Path      string
	Body      []byte
	Checksum  string
	Missing   bool // the resource was confirmed absent
	FetchedAt time.Time
}

// Lookup returns the cached entry for path if it was stored after notBefore.
func (db *DB) Lookup(path string, notBefore time.Time) (Entry, bool, error) {
	e := Entry{Path: path}
	err := db.conn.QueryRow(
		`SELECT body, checksum, fetched_at FROM resources WHERE path = ? AND fetched_at >= ?`,
		path, notBefore.UTC(),
	).Scan(&e.Body, &e.Checksum, &e.FetchedAt)
	switch {
	case err == nil:
		return e, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Entry{}, false, fmt.Errorf("cache: lookup: %w", err)
	}

	err = db.conn.QueryRow(
		`SELECT fetched_at FROM misses WHERE path = ? AND fetched_at >= ?`,
		path, notBefore.UTC(),
	).Scan(&e.FetchedAt)
	switch {
	case err == nil:
		e.Missing = true
		return e, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("cache: lookup miss: %w", err)
	}
}

// Put stores body for path, replacing any previous entry or recorded miss.
func (db *DB) Put(path string, body []byte) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM misses WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: clear miss: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO resources (path, body, checksum, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			body       = excluded.body,
			checksum   = excluded.checksum,
			fetched_at = excluded.fetched_at
	`, path, body, checksum.Sum(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return tx.Commit()
}

// PutMiss records that path does not exist.
func (db *DB) PutMiss(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM resources WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: clear resource: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO misses (path, fetched_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET fetched_at = excluded.fetched_at
	`, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: put miss: %w", err)
	}
	return tx.Commit()
}

// Invalidate forgets everything known about path.
func (db *DB) Invalidate(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM resources WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM misses WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", path, err)
	}
	return tx.Commit()
}

// Purge removes entries stored before cutoff and returns how many were dropped.
func (db *DB) Purge(cutoff time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM resources WHERE fetched_at < ?`,
		`DELETE FROM misses WHERE fetched_at < ?`,
	} {
		res, err := db.conn.Exec(q, cutoff.UTC())
		if err != nil {
			return total, fmt.Errorf("cache: purge: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Count returns the number of cached resources and misses.
func (db *DB) Count() (resources, misses int, err error) {
	if err = db.conn.QueryRow(`SELECT count(*) FROM resources`).Scan(&resources); err != nil {
		return 0, 0, fmt.Errorf("cache: count: %w", err)
	}
	if err = db.conn.QueryRow(`SELECT count(*) FROM misses`).Scan(&misses); err != nil {
		return 0, 0, fmt.Errorf("cache: count: %w", err)
	}
	return resources, misses, nil
}
