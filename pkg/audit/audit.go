// Package audit persists resolution runs to Postgres so imputation
// decisions stay traceable after the output files move on.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/santedata/tablemend/pkg/missing"
)

const (
	runsTable    = "resolution_runs"
	entriesTable = "resolution_entries"
	qualityTable = "resolution_quality"
)

// Sink writes run records to a Postgres database.
type Sink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to Postgres and ensures the audit tables exist.
func Open(dsn string, logger *zap.Logger) (*Sink, error) {
	if dsn == "" {
		return nil, errors.New("audit: empty dsn")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	s := &Sink{db: db, logger: logger}
	if err := s.ensureTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: setup tables: %w", err)
	}
	return s, nil
}

func (s *Sink) Close() error { return s.db.Close() }

func (s *Sink) ensureTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
			run_id TEXT PRIMARY KEY,
			dataset TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			duration_ms BIGINT NOT NULL,
			filled_columns INTEGER NOT NULL,
			dropped_columns INTEGER NOT NULL,
			recorded_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ` + entriesTable + ` (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES ` + runsTable + `(run_id),
			column_name TEXT NOT NULL,
			column_kind TEXT NOT NULL,
			strategy TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			rationale TEXT NOT NULL,
			missing_before INTEGER NOT NULL,
			missing_after TEXT NOT NULL,
			group_column TEXT,
			imputed_value TEXT,
			predictors TEXT,
			cv_score DOUBLE PRECISION,
			note TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ` + qualityTable + ` (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES ` + runsTable + `(run_id),
			column_name TEXT NOT NULL,
			mean_rel_diff DOUBLE PRECISION NOT NULL,
			std_rel_diff DOUBLE PRECISION NOT NULL,
			ks_statistic DOUBLE PRECISION NOT NULL,
			ks_p_value DOUBLE PRECISION NOT NULL,
			similar BOOLEAN NOT NULL,
			score DOUBLE PRECISION NOT NULL
		)`,
	} {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	s.logger.Info("Ensured audit tables exist")
	return nil
}

// RecordRun inserts one run with its entries and quality rows in a
// single transaction.
func (s *Sink) RecordRun(ctx context.Context, res *missing.Result, quality []missing.QualityResult) error {
	if res == nil {
		return errors.New("audit: nil result")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO `+runsTable+`
		(run_id, dataset, row_count, started_at, duration_ms, filled_columns, dropped_columns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.RunID, res.Dataset, res.Rows, res.StartedAt,
		res.Duration.Milliseconds(), len(res.Filled), len(res.Dropped))
	if err != nil {
		return fmt.Errorf("audit: insert run: %w", err)
	}

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO `+entriesTable+`
		(run_id, column_name, column_kind, strategy, confidence, rationale,
		 missing_before, missing_after, group_column, imputed_value, predictors, cv_score, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("audit: prepare entries: %w", err)
	}
	defer func() { _ = entryStmt.Close() }()
	for _, e := range res.Entries {
		if _, err = entryStmt.ExecContext(ctx, entryArgs(res.RunID, e)...); err != nil {
			return fmt.Errorf("audit: insert entry %s: %w", e.Column, err)
		}
	}

	if len(quality) > 0 {
		qualStmt, qerr := tx.PrepareContext(ctx, `INSERT INTO `+qualityTable+`
			(run_id, column_name, mean_rel_diff, std_rel_diff, ks_statistic, ks_p_value, similar, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if qerr != nil {
			err = qerr
			return fmt.Errorf("audit: prepare quality: %w", err)
		}
		defer func() { _ = qualStmt.Close() }()
		for _, q := range quality {
			if _, err = qualStmt.ExecContext(ctx, res.RunID, q.Column,
				q.MeanRelDiff, q.StdRelDiff, q.KSStatistic, q.KSPValue, q.Similar, q.Score); err != nil {
				return fmt.Errorf("audit: insert quality %s: %w", q.Column, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("audit: commit: %w", err)
	}
	s.logger.Info("Recorded resolution run",
		zap.String("run_id", res.RunID),
		zap.Int("entries", len(res.Entries)),
		zap.Int("quality_rows", len(quality)))
	return nil
}

// entryArgs renders one log entry as insert parameters. Empty optional
// fields become NULL so queries can filter on them.
func entryArgs(runID string, e missing.LogEntry) []any {
	var group, value, preds, note any
	if e.GroupColumn != "" {
		group = e.GroupColumn
	}
	if e.ImputedValue != "" {
		value = e.ImputedValue
	}
	if len(e.Predictors) > 0 {
		preds = strings.Join(e.Predictors, ",")
	}
	if e.Note != "" {
		note = e.Note
	}
	var cv any
	if e.CVComputed {
		cv = e.CVScore
	}
	return []any{
		runID, e.Column, e.Kind.String(), string(e.Strategy), e.Confidence, e.Rationale,
		e.MissingBefore, e.FinalMissing(), group, value, preds, cv, note,
	}
}
