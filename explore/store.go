package explore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/tebeka/atexit"
)

// Store persists one row per explored schedule to a SQLite database, so
// a long exploration run can be resumed or compared against a later
// corpus replay without keeping every Schedule in memory.
//
// Grounded on akita's tracing/sqlite.go (SQLiteTraceWriter): a single
// *sql.DB, a prepared INSERT statement, explicit BEGIN/COMMIT batching,
// and an atexit-registered flush. The flush handler runs only when the
// process exits through atexit.Exit or atexit.Fatal; on any other exit,
// rows still buffered and not yet flushed by Close are lost.
type Store struct {
	db        *sql.DB
	statement *sql.Stmt

	buffer    []Schedule
	batchSize int
}

// NewStore opens (creating if necessary) a SQLite database at path and
// prepares the schedules table.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("explore: opening %s: %w", path, err)
	}

	s := &Store{db: db, batchSize: 500}

	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatement(); err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = s.Flush() })

	return s, nil
}

func (s *Store) createTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schedules (
			idx       INTEGER NOT NULL,
			seed      INTEGER NOT NULL,
			path      TEXT    NOT NULL,
			outcome   TEXT    NOT NULL,
			wall_ns   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("explore: creating schedules table: %w", err)
	}
	return nil
}

func (s *Store) prepareStatement() error {
	stmt, err := s.db.Prepare(
		`INSERT INTO schedules (idx, seed, path, outcome, wall_ns) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("explore: preparing insert: %w", err)
	}
	s.statement = stmt
	return nil
}

// Write buffers sched for insertion, flushing automatically once the
// buffer reaches its batch size.
func (s *Store) Write(sched Schedule) error {
	s.buffer = append(s.buffer, sched)
	if len(s.buffer) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

// Flush writes every buffered schedule to the database in one
// transaction.
func (s *Store) Flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("explore: beginning transaction: %w", err)
	}

	stmt := tx.Stmt(s.statement)
	for _, sched := range s.buffer {
		pathJSON, err := json.Marshal(sched.Path)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("explore: marshaling path: %w", err)
		}

		if _, err := stmt.Exec(sched.Index, sched.Seed, string(pathJSON), sched.Outcome(), sched.WallCost.Nanoseconds()); err != nil {
			tx.Rollback()
			return fmt.Errorf("explore: inserting schedule %d: %w", sched.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("explore: committing transaction: %w", err)
	}

	s.buffer = nil
	return nil
}

// Close flushes any buffered rows and closes the underlying database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}

// Count returns how many schedule rows the store has persisted so far,
// including anything still buffered.
func (s *Store) Count() (int, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}

	row := s.db.QueryRow(`SELECT COUNT(*) FROM schedules`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("explore: counting schedules: %w", err)
	}
	return n, nil
}
