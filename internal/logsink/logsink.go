// Package logsink persists periodic meter snapshots to SQLite, one row
// per measurement of each snapshot per timer tick, using a small
// Store/migrate idiom (CREATE TABLE IF NOT EXISTS at Open).
package logsink

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nugget/smldaq/internal/meter"
)

// Sink writes meter.Snapshot batches to a SQLite database.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string, logger *slog.Logger) (*Sink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("logsink: open database: %w", err)
	}
	s := &Sink{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("logsink: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

func (s *Sink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		meter_index INTEGER NOT NULL,
		meter_name TEXT NOT NULL,
		label TEXT NOT NULL,
		value REAL,
		unit TEXT,
		raw_octet BLOB,
		observed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_meter_index ON readings(meter_index);
	CREATE INDEX IF NOT EXISTS idx_readings_observed_at ON readings(observed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Write persists one tick's worth of snapshots in a single transaction,
// so a tick is either fully logged or not logged at all.
func (s *Sink) Write(snaps []meter.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("logsink: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO readings (meter_index, meter_name, label, value, unit, raw_octet, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("logsink: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		observedAt := snap.Timestamp
		if observedAt.IsZero() {
			observedAt = time.Now()
		}
		for _, m := range snap.Measurements {
			var value sql.NullFloat64
			var rawOctet []byte
			if m.Raw {
				rawOctet = m.RawOctet
			} else {
				value = sql.NullFloat64{Float64: m.Value, Valid: true}
			}
			if _, err := stmt.Exec(
				snap.MeterIndex, snap.MeterName, m.Label, value, m.Unit, rawOctet,
				observedAt.Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("logsink: insert reading: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("logsink: commit: %w", err)
	}
	return nil
}

// Notify implements events.Subscriber[[]meter.Snapshot]: it writes one
// batch of snapshots, such as a meter.System's Sweep result, and logs
// any error instead of returning it.
func (s *Sink) Notify(snaps []meter.Snapshot) {
	if err := s.Write(snaps); err != nil {
		s.logger.Error("failed to persist snapshot batch", "error", err)
	}
}
