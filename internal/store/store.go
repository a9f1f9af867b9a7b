/*
Package store is the persistent tool-metadata store. It survives
process restarts and is the only component, besides the vector index,
with state that outlives a single run.

If the database cannot be opened, Open returns a *PersistenceError and
the store stays disabled: every operation becomes a no-op returning
zero values. The orchestrator treats that error as fatal to startup.
*/
package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default on-disk location, relative to the working
// directory, for the persisted tool database.
const DefaultPath = ".database/mcps.db"

// Row is one persisted tool record.
type Row struct {
	ServerName           string
	ToolName             string
	OutputSchema         string // serialized JSON schema, may be empty
	OriginalOutputSchema bool
	LastUpdated          int64 // unix seconds
}

// Store is the embedded relational store backing the tool metadata
// table described in the data model.
type Store struct {
	db       *sql.DB
	path     string
	enabled  bool
	initOnce sync.Once
	mu       sync.Mutex
}

// New creates a Store bound to path. Call Open before use.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// PersistenceError wraps a failure to open, migrate, or write the
// backing database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Open opens (creating if absent) the backing database file and runs
// migrations. Returns a *PersistenceError on failure; the store is
// still usable afterward in disabled mode (all operations become
// no-ops returning zero values).
func (s *Store) Open() error {
	var openErr error
	s.initOnce.Do(func() {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				openErr = &PersistenceError{Op: "mkdir", Err: err}
				return
			}
		}

		db, err := sql.Open("sqlite", s.path)
		if err != nil {
			openErr = &PersistenceError{Op: "open", Err: err}
			return
		}
		db.SetMaxOpenConns(1)

		if err := db.Ping(); err != nil {
			openErr = &PersistenceError{Op: "ping", Err: err}
			return
		}

		s.db = db
		s.enabled = true

		if err := s.runMigrations(); err != nil {
			openErr = &PersistenceError{Op: "migrate", Err: err}
			s.enabled = false
			return
		}
	})
	if openErr != nil {
		log.Printf("store: disabling persistence: %v", openErr)
	}
	return openErr
}

// Enabled reports whether the store is backed by a working database.
func (s *Store) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.enabled = false
	return err
}

// GetTool returns the persisted row for (server, tool), or (Row{},
// false) if absent or the store is disabled.
func (s *Store) GetTool(server, tool string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return Row{}, false
	}

	row := s.db.QueryRow(
		`SELECT serverName, toolName, outputSchema, originalOutputSchema, lastUpdated
		 FROM tools WHERE serverName = ? AND toolName = ?`,
		server, tool,
	)

	var r Row
	var original int
	if err := row.Scan(&r.ServerName, &r.ToolName, &r.OutputSchema, &original, &r.LastUpdated); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("store: GetTool(%s,%s): %v", server, tool, err)
		}
		return Row{}, false
	}
	r.OriginalOutputSchema = original != 0
	return r, true
}

// SaveOrUpdate upserts a row, enforcing invariant I4: a write whose
// OriginalOutputSchema is false is rejected (becomes a no-op) against
// an existing row whose OriginalOutputSchema is true.
func (s *Store) SaveOrUpdate(r Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}

	var existingOriginal int
	err := s.db.QueryRow(
		`SELECT originalOutputSchema FROM tools WHERE serverName = ? AND toolName = ?`,
		r.ServerName, r.ToolName,
	).Scan(&existingOriginal)

	if err == nil && existingOriginal != 0 && !r.OriginalOutputSchema {
		// An inferred schema never overrides a schema the server itself supplied.
		return nil
	}

	original := 0
	if r.OriginalOutputSchema {
		original = 1
	}

	_, execErr := s.db.Exec(
		`INSERT INTO tools (serverName, toolName, outputSchema, originalOutputSchema, lastUpdated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(serverName, toolName) DO UPDATE SET
		   outputSchema = excluded.outputSchema,
		   originalOutputSchema = excluded.originalOutputSchema,
		   lastUpdated = excluded.lastUpdated`,
		r.ServerName, r.ToolName, r.OutputSchema, original, r.LastUpdated,
	)
	if execErr != nil {
		return &PersistenceError{Op: "save", Err: execErr}
	}
	return nil
}

// GetServerTools returns every persisted row for server.
func (s *Store) GetServerTools(server string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}

	rows, err := s.db.Query(
		`SELECT serverName, toolName, outputSchema, originalOutputSchema, lastUpdated
		 FROM tools WHERE serverName = ?`, server,
	)
	if err != nil {
		log.Printf("store: GetServerTools(%s): %v", server, err)
		return nil
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var original int
		if err := rows.Scan(&r.ServerName, &r.ToolName, &r.OutputSchema, &original, &r.LastUpdated); err != nil {
			continue
		}
		r.OriginalOutputSchema = original != 0
		out = append(out, r)
	}
	return out
}

// DeleteServerTools removes every row belonging to server. Used by
// orphan reconciliation when a server is no longer registered.
func (s *Store) DeleteServerTools(server string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM tools WHERE serverName = ?`, server)
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// ListAllServers returns the distinct set of server names with at
// least one persisted row.
func (s *Store) ListAllServers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}

	rows, err := s.db.Query(`SELECT DISTINCT serverName FROM tools`)
	if err != nil {
		log.Printf("store: ListAllServers: %v", err)
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// Stats reports the number of persisted rows, for diagnostics.
func (s *Store) Stats() (rowCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return 0
	}
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM tools`).Scan(&rowCount)
	return rowCount
}
