// Package profile persists call-site statistics and dispatch failures to
// SQLite so that binding behavior can be compared across runs.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/dynlink/indy"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	started INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sites (
	run_id     TEXT    NOT NULL REFERENCES runs(id),
	site_id    INTEGER NOT NULL,
	kind       TEXT    NOT NULL,
	sender     TEXT    NOT NULL,
	target     TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	generation INTEGER NOT NULL,
	hits       INTEGER NOT NULL,
	misses     INTEGER NOT NULL,
	relinks    INTEGER NOT NULL,
	failures   INTEGER NOT NULL,
	PRIMARY KEY (run_id, site_id)
);
CREATE TABLE IF NOT EXISTS failures (
	run_id   TEXT    NOT NULL REFERENCES runs(id),
	site_id  INTEGER NOT NULL,
	name     TEXT    NOT NULL,
	receiver TEXT    NOT NULL,
	message  TEXT    NOT NULL,
	at       INTEGER NOT NULL
);`

// Store handles SQLite storage for one process run.
type Store struct {
	db     *sql.DB
	dbPath string
	runID  string
	mu     sync.Mutex
	log    commonlog.Logger
}

// busyTimeout is applied to every pooled connection, in milliseconds.
const busyTimeout = 5000

// dsn appends the per-connection pragmas to dbPath.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dbPath, sep, busyTimeout)
}

// Open opens or creates the database at dbPath and starts a new run.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	s := &Store{
		db:     db,
		dbPath: dbPath,
		runID:  uuid.NewString(),
		log:    commonlog.GetLogger("dynlink.profile"),
	}
	if _, err := db.Exec("INSERT INTO runs (id, started) VALUES (?, ?)", s.runID, time.Now().UnixNano()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording run: %w", err)
	}
	s.log.Infof("profiling run %s into %s", s.runID, dbPath)
	return s, nil
}

// RunID returns the identifier of the current run.
func (s *Store) RunID() string { return s.runID }

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSites replaces the current run's snapshot of site statistics.
func (s *Store) RecordSites(ctx context.Context, stats []indy.SiteStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO sites
		(run_id, site_id, kind, sender, target, state, generation, hits, misses, relinks, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		if _, err := stmt.ExecContext(ctx, s.runID, st.ID, st.Kind, st.Sender, st.Target, st.State,
			int64(st.Generation), int64(st.Hits), int64(st.Misses), int64(st.Relinks), int64(st.Failures)); err != nil {
			return fmt.Errorf("saving site %d: %w", st.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sites: %w", err)
	}
	s.log.Debugf("recorded %d sites for run %s", len(stats), s.runID)
	return nil
}

// Failure is one recorded dispatch failure.
type Failure struct {
	SiteID   int
	Name     string
	Receiver string
	Message  string
	At       time.Time
}

// RecordFailure stores one failed dispatch.
func (s *Store) RecordFailure(ctx context.Context, f Failure) error {
	if f.At.IsZero() {
		f.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO failures (run_id, site_id, name, receiver, message, at) VALUES (?, ?, ?, ?, ?, ?)",
		s.runID, f.SiteID, f.Name, f.Receiver, f.Message, f.At.UnixNano())
	if err != nil {
		return fmt.Errorf("saving failure: %w", err)
	}
	return nil
}

// Sites returns the stored statistics of runID in site order.
func (s *Store) Sites(ctx context.Context, runID string) ([]indy.SiteStats, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT site_id, kind, sender, target, state, generation, hits, misses, relinks, failures
		FROM sites WHERE run_id = ? ORDER BY site_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var out []indy.SiteStats
	for rows.Next() {
		var st indy.SiteStats
		var gen, hits, misses, relinks, failures int64
		if err := rows.Scan(&st.ID, &st.Kind, &st.Sender, &st.Target, &st.State, &gen, &hits, &misses, &relinks, &failures); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		st.Generation, st.Hits, st.Misses = uint64(gen), uint64(hits), uint64(misses)
		st.Relinks, st.Failures = uint64(relinks), uint64(failures)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Failures returns the failures recorded for runID, oldest first.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT site_id, name, receiver, message, at FROM failures WHERE run_id = ? ORDER BY at, rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var at int64
		if err := rows.Scan(&f.SiteID, &f.Name, &f.Receiver, &f.Message, &at); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.At = time.Unix(0, at)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Runs lists every run id, most recent first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM runs ORDER BY started DESC")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
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

func (s *Store) checkRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up run: %w", err)
	}
	return nil
}
