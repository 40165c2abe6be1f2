package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var attemptEventFields = []string{
	"id", "sequence", "timestamp", "api_url", "student", "lesson_id", "topic", "score", "total",
}

func (r *eventRepo) AppendAttempt(ctx context.Context, data AttemptEventData) error {
	if data.Total <= 0 || data.Score < 0 || data.Score > data.Total {
		return fmt.Errorf("invalid attempt: score %d of %d", data.Score, data.Total)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := sqlite().Insert(tableAttemptEvents).
		Columns(attemptEventFields[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			data.APIURL,
			data.Student,
			data.LessonID,
			data.Topic,
			data.Score,
			data.Total,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryAttempts(ctx context.Context, opts QueryOpts) ([]AttemptEvent, error) {
	b := sqlite()
	sel := b.Select(attemptEventFields...).From(b.Table(tableAttemptEvents))
	if preds := optsPredicates(opts); len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt events: %w", err)
	}
	defer rows.Close()

	var out []AttemptEvent
	for rows.Next() {
		var e AttemptEvent
		if err := rows.Scan(
			&e.ID, &e.Sequence, &e.Timestamp, &e.APIURL, &e.Student,
			&e.LessonID, &e.Topic, &e.Score, &e.Total,
		); err != nil {
			return nil, fmt.Errorf("scan attempt event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) AttemptStats(ctx context.Context) (AttemptStats, error) {
	attempts, err := r.QueryAttempts(ctx, QueryOpts{})
	if err != nil {
		return AttemptStats{}, err
	}

	var st AttemptStats
	for i, a := range attempts {
		if i == 0 {
			st.LastAttempt = a.Timestamp
		}
		st.Attempts++
		st.Questions += a.Total
		st.Correct += a.Score
		if a.Score == a.Total {
			st.PerfectRuns++
		}
	}
	return st, nil
}
