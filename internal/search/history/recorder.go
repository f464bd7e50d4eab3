// internal/search/history/recorder.go

// Package history appends completed searches to the Postgres history log
// and serves recent-query suggestions from it. Appends are fire-and-forget
// from the caller's point of view: a broken history store never affects a
// search response.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	stderrors "bizsearch/internal/common/errors"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/models"
)

// Recorder writes and reads the search_history table.
type Recorder struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// NewRecorder creates a history recorder on an open Postgres handle.
func NewRecorder(db *sql.DB, log logger.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{db: db, logger: log, now: now}
}

// Append inserts one history row. Errors are returned for logging but the
// caller treats them as non-fatal.
func (r *Recorder) Append(ctx context.Context, rec *models.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO search_history (id, query, sources, result_count, execution_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Query, pq.Array(rec.Sources), rec.ResultCount, rec.ExecutionTimeMs, rec.CreatedAt,
	)
	if err != nil {
		return stderrors.NewHistoryWriteFailedError(err)
	}
	return nil
}

// AppendAsync appends in the background and logs failures. The search
// response is already on its way back when this runs.
func (r *Recorder) AppendAsync(rec *models.HistoryRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.Append(ctx, rec); err != nil {
			r.logger.Warn("History append failed", map[string]interface{}{
				"query": rec.Query,
				"error": err.Error(),
			})
		}
	}()
}

// Prune deletes history rows older than the retention window and returns
// the number removed.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-retention)

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM search_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, stderrors.NewHistoryWriteFailedError(err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// Suggest returns the most recent distinct queries matching the prefix,
// newest first.
func (r *Recorder) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT query FROM (
			SELECT query, MAX(created_at) AS last_used
			FROM search_history
			WHERE query ILIKE $1 || '%'
			GROUP BY query
		) recent
		ORDER BY last_used DESC
		LIMIT $2`,
		prefix, limit,
	)
	if err != nil {
		return nil, stderrors.NewHistoryWriteFailedError(err)
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, q)
	}
	return suggestions, rows.Err()
}
