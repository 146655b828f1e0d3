package persist

import (
	"context"
	"fmt"
)

// EventEntry is one recorded simulation notification.
type EventEntry struct {
	Step         int64
	EventType    string // "switch_toggled", "power_probe_toggled", "light_flicker", "point_destroyed", ...
	ElementIndex int64  // -1 when not applicable
	State        bool
	Detail       string
}

type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// CreateRun opens a new run row and returns its id.
func (r *TelemetryRepo) CreateRun(ctx context.Context, scenario string) (int64, error) {
	var runID int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO sim_run (scenario) VALUES ($1) RETURNING id`,
		scenario,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return runID, nil
}

// WriteEvents atomically writes a batch of event entries in a single
// transaction. Returns nil on success; on failure the caller keeps the
// batch and retries on the next flush.
func (r *TelemetryRepo) WriteEvents(ctx context.Context, runID int64, entries []EventEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("events begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sim_event (run_id, step, event_type, element_index, state, detail)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, e.Step, e.EventType, e.ElementIndex, e.State, e.Detail,
		); err != nil {
			return fmt.Errorf("events insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FinishRun stamps the run's end time and final step count.
func (r *TelemetryRepo) FinishRun(ctx context.Context, runID int64, steps int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE sim_run SET finished_at = now(), steps = $2 WHERE id = $1`,
		runID, steps,
	)
	return err
}
