package statsdb

import (
	"context"
	"database/sql"
	"time"
)

// Summary aggregates every indexed run.
type Summary struct {
	Runs      int
	Collected int
	// AvgCollected is the mean duration of runs that ended with the reward.
	AvgCollected time.Duration
	ByReason     map[string]int
}

func (s *Index) Summary(ctx context.Context) (Summary, error) {
	return summarize(ctx, s.db)
}

func summarize(ctx context.Context, db *sql.DB) (Summary, error) {
	out := Summary{ByReason: map[string]int{}}

	var avg sql.NullFloat64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(collected), 0), AVG(CASE WHEN collected = 1 THEN duration_ms END) FROM runs`).
		Scan(&out.Runs, &out.Collected, &avg)
	if err != nil {
		return out, err
	}
	if avg.Valid {
		out.AvgCollected = time.Duration(avg.Float64 * float64(time.Millisecond))
	}

	rows, err := db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM runs GROUP BY reason ORDER BY reason`)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return out, err
		}
		out.ByReason[reason] = n
	}
	return out, rows.Err()
}
