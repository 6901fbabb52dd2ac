package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tutu-network/ledger/internal/domain"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the export schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS replay_runs (
			id           TEXT PRIMARY KEY,
			input        TEXT NOT NULL,
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL,
			records      INTEGER NOT NULL DEFAULT 0,
			applied      INTEGER NOT NULL DEFAULT 0,
			rejected     INTEGER NOT NULL DEFAULT 0,
			malformed    INTEGER NOT NULL DEFAULT 0
		)`,

		// Decimals are TEXT so precision survives the round trip.
		`CREATE TABLE IF NOT EXISTS accounts (
			run_id    TEXT NOT NULL REFERENCES replay_runs(id) ON DELETE CASCADE,
			client    INTEGER NOT NULL,
			available TEXT NOT NULL,
			held      TEXT NOT NULL,
			total     TEXT NOT NULL,
			locked    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, client)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_locked ON accounts(run_id, locked)`,
	}
}

// ─── Runs ───────────────────────────────────────────────────────────────────

// RunInfo describes one replay.
type RunInfo struct {
	ID         string
	Input      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int64
	Applied    int64
	Rejected   int64
	Malformed  int64
}

// timeLayout is fixed width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run id has no export.
var ErrRunNotFound = errors.New("replay run not found")

// SaveRun writes the run row and its account table in one transaction.
func (db *DB) SaveRun(run RunInfo, snap domain.Snapshot) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO replay_runs (id, input, started_at, finished_at, records, applied, rejected, malformed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Input,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Records, run.Applied, run.Rejected, run.Malformed)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO accounts (run_id, client, available, held, total, locked)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare accounts: %w", err)
	}
	defer stmt.Close()

	for _, a := range snap {
		locked := 0
		if a.Locked {
			locked = 1
		}
		if _, err := stmt.Exec(run.ID, int(a.Client),
			a.Available.String(), a.Held.String(), a.Total.String(), locked); err != nil {
			return fmt.Errorf("insert client %d: %w", a.Client, err)
		}
	}

	return tx.Commit()
}

// Sink returns a domain.SnapshotSink that saves the snapshot under run.
func (db *DB) Sink(run RunInfo) domain.SnapshotSink {
	return domain.SnapshotWriterFunc(func(snap domain.Snapshot) error {
		return db.SaveRun(run, snap)
	})
}

// GetRun retrieves a run row.
func (db *DB) GetRun(id string) (RunInfo, error) {
	var (
		run               RunInfo
		started, finished string
	)
	err := db.db.QueryRow(`
		SELECT id, input, started_at, finished_at, records, applied, rejected, malformed
		FROM replay_runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Input, &started, &finished,
		&run.Records, &run.Applied, &run.Rejected, &run.Malformed)
	if err == sql.ErrNoRows {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunInfo{}, err
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)
	run.FinishedAt, _ = time.Parse(timeLayout, finished)
	return run, nil
}

// LatestRunID returns the most recently finished run.
func (db *DB) LatestRunID() (string, error) {
	var id string
	err := db.db.QueryRow(`
		SELECT id FROM replay_runs ORDER BY finished_at DESC LIMIT 1
	`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrRunNotFound
	}
	return id, err
}

// LoadAccounts reads back the account table of a run, ordered by client.
func (db *DB) LoadAccounts(runID string) (domain.Snapshot, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := db.db.Query(`
		SELECT client, available, held, total, locked
		FROM accounts WHERE run_id = ? ORDER BY client
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := domain.Snapshot{}
	for rows.Next() {
		var (
			client                 int
			available, held, total string
			locked                 int
		)
		if err := rows.Scan(&client, &available, &held, &total, &locked); err != nil {
			return nil, err
		}
		a := domain.Account{Client: domain.ClientID(client), Locked: locked == 1}
		if a.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("client %d available: %w", client, err)
		}
		if a.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("client %d held: %w", client, err)
		}
		if a.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("client %d total: %w", client, err)
		}
		snap = append(snap, a)
	}
	return snap, rows.Err()
}
