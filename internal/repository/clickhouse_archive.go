package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// Schema statements for the archive tables. Executed idempotently at startup.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.decisions_history (
			ts DateTime64(3),
			instrument LowCardinality(String),
			horizon LowCardinality(String),
			verdict LowCardinality(String),
			confidence Float64,
			contested UInt8,
			lock_reason LowCardinality(String),
			locked_until DateTime64(3),
			reasons String
		) ENGINE = MergeTree() PARTITION BY toYYYYMM(ts) ORDER BY (instrument, horizon, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.outcomes (
			ts DateTime64(3),
			source LowCardinality(String),
			instrument LowCardinality(String),
			horizon LowCardinality(String),
			correct UInt8
		) ENGINE = MergeTree() PARTITION BY toYYYYMM(ts) ORDER BY (instrument, horizon, source, ts)`, database),
	}
}

// ClickHouseArchive is the append-only analytical sink. Writes here are
// best-effort from the engine's point of view; the caller logs and moves on.
type ClickHouseArchive struct {
	db       *sql.DB
	database string
}

func NewClickHouseArchive(db *sql.DB, database string) domrepo.Archive {
	return &ClickHouseArchive{db: db, database: database}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	for _, stmt := range ArchiveSchema(a.database) {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive init: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseArchive) AppendDecision(ctx context.Context, d *models.Decision) error {
	q := fmt.Sprintf(`INSERT INTO %s.decisions_history
		(ts, instrument, horizon, verdict, confidence, contested, lock_reason, locked_until, reasons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.database)
	_, err := a.db.ExecContext(ctx, q,
		d.UpdatedAt,
		d.InstrumentID,
		d.Horizon,
		string(d.Verdict),
		d.Confidence,
		boolToUint8(d.Contested),
		d.LockReason,
		d.LockedUntil,
		strings.Join(d.Reasons, "; "),
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) AppendOutcome(ctx context.Context, o *models.Outcome) error {
	q := fmt.Sprintf(`INSERT INTO %s.outcomes
		(ts, source, instrument, horizon, correct)
		VALUES (?, ?, ?, ?, ?)`, a.database)
	ts := o.ResolvedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := a.db.ExecContext(ctx, q,
		ts,
		o.SourceID,
		o.InstrumentID,
		o.Horizon,
		boolToUint8(o.WasCorrect),
	)
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// SourceOutcomes returns the most recent resolved outcomes for one key,
// newest first.
func (a *ClickHouseArchive) SourceOutcomes(ctx context.Context, instrumentID string, horizon domrepo.Horizon, limit int) ([]*models.Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT source, ts, correct
		FROM %s.outcomes
		WHERE instrument = ? AND horizon = ?
		ORDER BY ts DESC LIMIT ?`, a.database)
	rows, err := a.db.QueryContext(ctx, q, instrumentID, string(horizon), limit)
	if err != nil {
		return nil, fmt.Errorf("source outcomes: %w", err)
	}
	defer rows.Close()

	var out []*models.Outcome
	for rows.Next() {
		o := models.Outcome{InstrumentID: instrumentID, Horizon: string(horizon)}
		var correct uint8
		if err := rows.Scan(&o.SourceID, &o.ResolvedAt, &correct); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.WasCorrect = correct != 0
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // pool owned by pkg/clickhouse
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
