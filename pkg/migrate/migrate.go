// Package migrate keeps the simulator's SQLite databases at the schema version
// the binary was built with.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Status describes where a database stands relative to its schema.
type Status struct {
	Schema  string
	Current int
	Latest  int
	Applied []Applied
	Pending []Step
}

// Applied is one row of the bookkeeping table.
type Applied struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// Migrator moves one database between versions of one Schema.
type Migrator struct {
	db     *sql.DB
	schema Schema
	steps  []Step
	logger *zap.SugaredLogger
}

// New loads the schema's steps and makes sure the bookkeeping table exists.
// logger may be nil.
func New(ctx context.Context, db *sql.DB, schema Schema, logger *zap.SugaredLogger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if schema.Table == "" {
		schema.Table = "schema_migrations"
	}

	steps, err := schema.Steps()
	if err != nil {
		return nil, err
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, schema.Table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("%s schema: creating %s: %w", schema.Name, schema.Table, err)
	}

	return &Migrator{db: db, schema: schema, steps: steps, logger: logger.With("schema", schema.Name)}, nil
}

// Latest is the newest version the binary knows about.
func (m *Migrator) Latest() int {
	return len(m.steps)
}

// Version returns the version currently applied, 0 for an empty database.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var v int
	q := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.schema.Table)
	if err := m.db.QueryRowContext(ctx, q).Scan(&v); err != nil {
		return 0, fmt.Errorf("%s schema: reading version: %w", m.schema.Name, err)
	}
	return v, nil
}

// Up applies every pending step and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	from, err := m.Version(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.To(ctx, m.Latest()); err != nil {
		return 0, err
	}
	return m.Latest() - from, nil
}

// To moves the database to target, applying up steps or rolling back as needed.
// Each step runs in its own transaction, so a failure leaves the database at the
// last step that succeeded.
func (m *Migrator) To(ctx context.Context, target int) error {
	if target < 0 || target > m.Latest() {
		return fmt.Errorf("%s schema: target version %d outside 0..%d", m.schema.Name, target, m.Latest())
	}

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	if current > m.Latest() {
		return fmt.Errorf("%s schema: database is at version %d, newer than this binary (%d)", m.schema.Name, current, m.Latest())
	}

	for v := current + 1; v <= target; v++ {
		if err := m.apply(ctx, m.steps[v-1], true); err != nil {
			return err
		}
	}
	for v := current; v > target; v-- {
		if err := m.apply(ctx, m.steps[v-1], false); err != nil {
			return err
		}
	}
	return nil
}

// Status reports the applied history and the steps still pending.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	st := Status{Schema: m.schema.Name, Latest: m.Latest()}

	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("SELECT version, name, applied_at FROM %s ORDER BY version", m.schema.Table))
	if err != nil {
		return st, fmt.Errorf("%s schema: reading history: %w", m.schema.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Applied
		var at string
		if err := rows.Scan(&a.Version, &a.Name, &at); err != nil {
			return st, err
		}
		a.AppliedAt = parseTimestamp(at)
		st.Applied = append(st.Applied, a)
		st.Current = a.Version
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	if st.Current < len(m.steps) {
		st.Pending = m.steps[st.Current:]
	}
	return st, nil
}

func (m *Migrator) apply(ctx context.Context, s Step, up bool) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	body, record, args := s.Up, fmt.Sprintf("INSERT INTO %s (version, name) VALUES (?, ?)", m.schema.Table), []interface{}{s.Version, s.Name}
	if !up {
		body, record, args = s.Down, fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.schema.Table), []interface{}{s.Version}
	}

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("%s schema: step %d (%s): %w", m.schema.Name, s.Version, s.Name, err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("%s schema: recording step %d: %w", m.schema.Name, s.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if up {
		m.logger.Infof("applied schema step %d (%s)", s.Version, s.Name)
	} else {
		m.logger.Infof("rolled back schema step %d (%s)", s.Version, s.Name)
	}
	return nil
}

// parseTimestamp accepts SQLite's CURRENT_TIMESTAMP text and the RFC 3339 form
// database/sql produces when the driver hands back a time.Time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
