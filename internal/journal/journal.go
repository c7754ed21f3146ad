// Package journal keeps a local sqlite history of install and remove runs.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	ActionInstall = "install"
	ActionRemove  = "remove"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type Entry struct {
	ID        int64
	Action    string
	User      string
	Group     string
	Port      int
	Release   string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// Recorder is what the installer writes to.
type Recorder interface {
	Record(e Entry) error
}

type Journal struct {
	db *sql.DB
}

// Open creates the database and its parent directory if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// fail early if the file is not writable
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		service_user TEXT NOT NULL,
		service_group TEXT NOT NULL,
		port INTEGER NOT NULL,
		release TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init journal schema: %w", err)
	}
	return nil
}

func (j *Journal) Record(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.Exec(
		`INSERT INTO operations
		 (action, service_user, service_group, port, release, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Action, e.User, e.Group, e.Port, e.Release, e.Outcome, e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Action, err)
	}
	return nil
}

// List returns the newest entries first. limit <= 0 means all of them.
func (j *Journal) List(limit int) ([]Entry, error) {
	q := `SELECT id, action, service_user, service_group, port, release, outcome, detail, created_at
	      FROM operations ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.User, &e.Group, &e.Port,
			&e.Release, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Lazy opens the journal on the first Record so that runs which abort
// early leave nothing on disk.
type Lazy struct {
	path string

	once sync.Once
	j    *Journal
	err  error
}

func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

func (l *Lazy) Record(e Entry) error {
	l.once.Do(func() {
		l.j, l.err = Open(l.path)
	})
	if l.err != nil {
		return l.err
	}
	return l.j.Record(e)
}

// Close is a no-op when nothing was recorded.
func (l *Lazy) Close() error {
	if l.j == nil {
		return nil
	}
	return l.j.Close()
}
