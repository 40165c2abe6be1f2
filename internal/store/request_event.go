package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var requestEventFields = []string{
	"id", "sequence", "timestamp", "kind", "target", "model", "purpose",
	"request_id", "status", "input_tokens", "output_tokens", "latency_ms",
	"success", "error_message", "request_body", "response_body",
}

func (r *eventRepo) AppendRequest(ctx context.Context, data RequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := sqlite().Insert(tableRequestEvents).
		Columns(requestEventFields[1:]...).
		Values(
			seqNum,
			time.Now().UTC(),
			data.Kind,
			data.Target,
			data.Model,
			data.Purpose,
			data.RequestID,
			data.Status,
			data.InputTokens,
			data.OutputTokens,
			data.LatencyMs,
			data.Success,
			data.ErrorMessage,
			data.RequestBody,
			data.ResponseBody,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryRequests(ctx context.Context, kind string, opts QueryOpts) ([]RequestEvent, error) {
	b := sqlite()
	sel := b.Select(requestEventFields...).From(b.Table(tableRequestEvents))

	preds := optsPredicates(opts)
	if kind != "" {
		preds = append(preds, entsql.EQ("kind", kind))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query request events: %w", err)
	}
	defer rows.Close()

	var out []RequestEvent
	for rows.Next() {
		e, err := scanRequestEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetRequest(ctx context.Context, id int) (*RequestEvent, error) {
	b := sqlite()
	query, args := b.Select(requestEventFields...).
		From(b.Table(tableRequestEvents)).
		Where(entsql.EQ("id", id)).
		Query()

	e, err := scanRequestEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]UsageStat, error) {
	return r.usageBy(ctx, "purpose")
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]UsageStat, error) {
	return r.usageBy(ctx, "model")
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]UsageStat, error) {
	b := sqlite()
	query, args := b.Select(
		column,
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As(entsql.Sum("input_tokens"), "input"),
		entsql.As(entsql.Sum("output_tokens"), "output"),
		entsql.As(entsql.Avg("latency_ms"), "avg_latency"),
	).
		From(b.Table(tableRequestEvents)).
		Where(entsql.EQ("kind", KindLLM)).
		GroupBy(column).
		OrderBy(entsql.Desc("calls")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage by %s: %w", column, err)
	}
	defer rows.Close()

	var out []UsageStat
	for rows.Next() {
		var (
			st  UsageStat
			avg float64
		)
		if err := rows.Scan(&st.Key, &st.Calls, &st.InputTokens, &st.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		st.AvgLatencyMs = int64(avg)
		out = append(out, st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequestEvent(row rowScanner) (*RequestEvent, error) {
	var e RequestEvent
	err := row.Scan(
		&e.ID,
		&e.Sequence,
		&e.Timestamp,
		&e.Kind,
		&e.Target,
		&e.Model,
		&e.Purpose,
		&e.RequestID,
		&e.Status,
		&e.InputTokens,
		&e.OutputTokens,
		&e.LatencyMs,
		&e.Success,
		&e.ErrorMessage,
		&e.RequestBody,
		&e.ResponseBody,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan request event: %w", err)
	}
	return &e, nil
}

// optsPredicates turns the sequence and time bounds of opts into predicates.
func optsPredicates(opts QueryOpts) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC()))
	}
	return preds
}
