package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// ErrNotFound is returned when a run ID has no stored report.
var ErrNotFound = errors.New("run not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	PlanID     string
	Success    bool
	Status     models.Status
	State      models.RunState
	Incomplete bool
	Summary    models.Summary
	TotalTime  time.Duration
	CreatedAt  time.Time
}

// Record stores a report and its per-tool results in one transaction.
// Recording the same run twice replaces the earlier rows.
func (s *Store) Record(ctx context.Context, r *models.AggregatedReport) error {
	if r == nil {
		return errors.New("record: nil report")
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	created := r.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM tool_results WHERE run_id = ?`, `DELETE FROM runs WHERE id = ?`} {
		if _, err := tx.ExecContext(ctx, q, r.RunID); err != nil {
			return fmt.Errorf("replace run %s: %w", r.RunID, err)
		}
	}

	sum := r.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, plan_id, success, status, state, incomplete,
			total, passed, failed, warnings, skipped, files_processed,
			message, total_ms, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.PlanID, r.Success, string(r.Status), string(r.State), r.Incomplete,
		sum.Total, sum.Passed, sum.Failed, sum.Warnings, sum.Skipped, sum.FilesProcessed,
		sum.Message, r.Details.Execution.TotalTime.Milliseconds(), string(blob), formatTime(created)); err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tool_results (run_id, tool, dimension, scope, success, status,
			errors, warnings, files_processed, execution_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare tool_results insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range r.Details.Tools {
		for _, res := range d.Results {
			if _, err := stmt.ExecContext(ctx, r.RunID, res.Tool, string(res.Dimension), string(res.Scope),
				res.Success, string(res.Status),
				res.CountSeverity(models.SeverityError), res.CountSeverity(models.SeverityWarning),
				res.Metadata.FilesProcessed, res.ExecutionTime.Milliseconds(), nullString(res.Error)); err != nil {
				return fmt.Errorf("insert result %s/%s: %w", res.Tool, res.Dimension, err)
			}
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, COALESCE(plan_id, ''), success, status, state, incomplete,
			total, passed, failed, warnings, skipped, files_processed,
			message, total_ms, created_at
		FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs        RunSummary
			status    string
			state     string
			totalMS   int64
			createdAt string
		)
		if err := rows.Scan(&rs.ID, &rs.PlanID, &rs.Success, &status, &state, &rs.Incomplete,
			&rs.Summary.Total, &rs.Summary.Passed, &rs.Summary.Failed, &rs.Summary.Warnings,
			&rs.Summary.Skipped, &rs.Summary.FilesProcessed, &rs.Summary.Message,
			&totalMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Status = models.Status(status)
		rs.State = models.RunState(state)
		rs.TotalTime = time.Duration(totalMS) * time.Millisecond
		if rs.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", rs.ID, err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Get returns the full stored report for a run. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*models.AggregatedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `SELECT report FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	defer rows.Close()

	var blobs []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		blobs = append(blobs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(blobs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	var r models.AggregatedReport
	if err := json.Unmarshal([]byte(blobs[0]), &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

// ToolStat aggregates stored results for one tool.
type ToolStat struct {
	Tool     string
	Runs     int
	Failures int
	AvgTime  time.Duration
}

// ToolStats summarizes how each tool has fared across stored runs.
func (s *Store) ToolStats(ctx context.Context) ([]ToolStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT tool, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), AVG(execution_ms)
		FROM tool_results GROUP BY tool ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("tool stats: %w", err)
	}
	defer rows.Close()

	var out []ToolStat
	for rows.Next() {
		var (
			ts  ToolStat
			avg float64
		)
		if err := rows.Scan(&ts.Tool, &ts.Runs, &ts.Failures, &avg); err != nil {
			return nil, fmt.Errorf("scan tool stat: %w", err)
		}
		ts.AvgTime = time.Duration(avg * float64(time.Millisecond))
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Purge deletes runs older than the given age and returns how many were removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tool_results WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("purge tool results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
