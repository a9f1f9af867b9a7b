package store

import "fmt"

// migration is a single, ordered schema change. Mirrors the
// migration-table pattern used elsewhere in this codebase's storage
// layers: a monotonically increasing version recorded in
// schema_migrations, applied at most once.
type migration struct {
	version int
	name    string
	up      func() error
}

func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	migrations := []migration{
		{version: 1, name: "tools_table", up: s.migration001ToolsTable},
	}

	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			m.version, m.name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) migration001ToolsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tools (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			serverName TEXT NOT NULL,
			toolName TEXT NOT NULL,
			outputSchema TEXT NOT NULL DEFAULT '',
			originalOutputSchema INTEGER NOT NULL DEFAULT 0,
			lastUpdated INTEGER NOT NULL,
			UNIQUE(serverName, toolName)
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_tools_server ON tools(serverName)`)
	return err
}
