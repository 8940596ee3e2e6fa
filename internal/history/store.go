// Package history keeps a local SQLite log of completed generations.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a record id does not exist
var ErrNotFound = errors.New("history: record not found")

// Record is one completed generation
type Record struct {
	ID           int64
	UserInput    string
	Title        string
	Content      string
	Comment      string
	ImageURL     string
	CardComposed bool
	CreatedAt    time.Time
}

// Store is a SQLite backed generation history
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS generation_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_input TEXT NOT NULL,
	poetry_title TEXT NOT NULL,
	poetry_content TEXT NOT NULL,
	poetry_comment TEXT,
	image_url TEXT NOT NULL,
	card_composed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_created_at ON generation_history (created_at);
`

// Open opens (creating if needed) the history database at dbPath
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		logrus.WithField("dbPath", dbPath).Error("Failed to open SQLite database")
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logrus.WithError(err).Warn("Failed to enable WAL mode")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		logrus.WithError(err).Error("Failed to create history table in SQLite")
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores a record and returns its id. A zero CreatedAt is set to now.
func (s *Store) Add(rec *Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := s.db.Exec(`
	INSERT INTO generation_history
		(user_input, poetry_title, poetry_content, poetry_comment, image_url, card_composed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, rec.UserInput, rec.Title, rec.Content, rec.Comment, rec.ImageURL, rec.CardComposed, rec.CreatedAt.UnixMilli())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"title": rec.Title,
			"error": err,
		}).Error("Failed to insert history record")
		return 0, fmt.Errorf("failed to save history record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read history record id: %w", err)
	}
	rec.ID = id

	return id, nil
}

// List returns up to limit records, newest first, skipping offset records
func (s *Store) List(limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`
	SELECT id, user_input, poetry_title, poetry_content, poetry_comment, image_url, card_composed, created_at
	FROM generation_history
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?;
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// Get returns the record with the given id
func (s *Store) Get(id int64) (*Record, error) {
	row := s.db.QueryRow(`
	SELECT id, user_input, poetry_title, poetry_content, poetry_comment, image_url, card_composed, created_at
	FROM generation_history
	WHERE id = ?;
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Delete removes the record with the given id
func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec("DELETE FROM generation_history WHERE id = ?;", id)
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns the number of stored records
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM generation_history;").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		comment   sql.NullString
		createdAt int64
	)

	err := row.Scan(&rec.ID, &rec.UserInput, &rec.Title, &rec.Content, &comment,
		&rec.ImageURL, &rec.CardComposed, &createdAt)
	if err != nil {
		return nil, err
	}

	rec.Comment = comment.String
	rec.CreatedAt = time.UnixMilli(createdAt)

	return &rec, nil
}
