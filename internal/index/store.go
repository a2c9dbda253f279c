// Package index keeps a sqlite catalog of figure backups so past saves can be
// listed and compared. Store implements stash.Recorder.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"figstash/internal/config"
	"figstash/stash"
)

// ErrNotFound is returned when no backup matches a lookup.
var ErrNotFound = errors.New("backup not in index")

// ErrDisabled is returned by Open when the index is switched off.
var ErrDisabled = errors.New("index disabled")

// Entry is one recorded backup.
type Entry struct {
	ID        string
	Figure    string
	Target    string
	Zipped    bool
	Function  string
	Codec     string
	CreatedAt time.Time
	Artifacts int
	Failures  int
	Bytes     int64
}

// Failure is an artifact failure recorded alongside an entry.
type Failure struct {
	Kind     string
	Artifact string
	Value    string
	Message  string
}

// Store persists backup entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the index configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if !cfg.Index.Enabled {
		return nil, ErrDisabled
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Index.Path)
}

// OpenPath opens or creates the index database at path and applies migrations.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
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
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a backup report.
func (s *Store) Record(ctx context.Context, rep *stash.Report) error {
	if rep == nil {
		return errors.New("report is nil")
	}
	var total int64
	for _, a := range rep.Artifacts {
		total += a.Size
	}
	function := ""
	if rep.Function != nil {
		function = rep.Function.Name
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO backups (
            id, figure, target, zipped, function, codec, created_at,
            artifact_count, failure_count, total_bytes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID,
		absPath(rep.Figure),
		absPath(rep.Target),
		boolToInt(rep.Zipped),
		nullableString(function),
		rep.Codec,
		rep.CreatedAt.UTC().Format(timeLayout),
		len(rep.Artifacts),
		len(rep.Failures),
		total,
	)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	for _, f := range rep.Failures {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO backup_failures (backup_id, kind, artifact, value, message) VALUES (?, ?, ?, ?, ?)`,
			rep.ID, string(f.Kind), nullableString(f.Path), nullableString(f.Value), f.Err.Error(),
		)
		if err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// timeLayout sorts lexically in the same order as time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = `id, figure, target, zipped, function, codec, created_at, artifact_count, failure_count, total_bytes`

// ListOptions filters List.
type ListOptions struct {
	Figure string
	Since  time.Time
	Limit  int
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if opts.Figure != "" {
		where = append(where, "figure = ?")
		args = append(args, absPath(opts.Figure))
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	query := `SELECT ` + entryColumns + ` FROM backups`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return out, nil
}

// Get returns the entry with the given ID. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM backups WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get backup: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM backups WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("backup id prefix %q is ambiguous", id)
	}
}

// Latest returns the newest entry for a figure path.
func (s *Store) Latest(ctx context.Context, figure string) (*Entry, error) {
	entries, err := s.List(ctx, ListOptions{Figure: figure, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, figure)
	}
	return &entries[0], nil
}

// Failures returns the artifact failures recorded for an entry.
func (s *Store) Failures(ctx context.Context, id string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, artifact, value, message FROM backup_failures WHERE backup_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var (
			f               Failure
			artifact, value sql.NullString
		)
		if err := rows.Scan(&f.Kind, &artifact, &value, &f.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Artifact, f.Value = artifact.String, value.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}
	return res.RowsAffected()
}

// PruneMissing deletes entries whose backup no longer exists on disk.
func (s *Store) PruneMissing(ctx context.Context) (int64, error) {
	entries, err := s.List(ctx, ListOptions{})
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, e := range entries {
		if _, err := os.Stat(e.Target); err == nil || !errors.Is(err, os.ErrNotExist) {
			continue
		}
		res, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE id = ?`, e.ID)
		if err != nil {
			return removed, fmt.Errorf("prune backup %s: %w", e.ID, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e        Entry
		zipped   int
		function sql.NullString
		created  string
	)
	if err := row.Scan(&e.ID, &e.Figure, &e.Target, &zipped, &function, &e.Codec, &created,
		&e.Artifacts, &e.Failures, &e.Bytes); err != nil {
		return Entry{}, fmt.Errorf("scan backup: %w", err)
	}
	e.Zipped = zipped != 0
	e.Function = function.String
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	e.CreatedAt = ts
	return e, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
