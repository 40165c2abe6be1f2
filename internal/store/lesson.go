package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// lessonRepo implements LessonRepo for offline mode.
type lessonRepo struct {
	db *sql.DB
}

func (r *lessonRepo) Save(ctx context.Context, l LessonRecord) error {
	if l.ID == "" {
		return errors.New("lesson id is required")
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	var score any
	if l.Score != nil {
		score = *l.Score
	}
	query, args := sqlite().Insert(tableLessons).
		Columns("id", "owner", "topic", "title", "content", "quiz", "is_assignment", "score", "created_at").
		Values(l.ID, l.Owner, l.Topic, l.Title, l.Content, l.Quiz, l.IsAssignment, score, l.CreatedAt.UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save lesson: %w", err)
	}
	return nil
}

func (r *lessonRepo) Get(ctx context.Context, owner, id string) (*LessonRecord, error) {
	b := sqlite()
	query, args := b.Select("id", "owner", "topic", "title", "content", "quiz", "is_assignment", "score", "created_at").
		From(b.Table(tableLessons)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("owner", owner))).
		Query()

	var (
		l     LessonRecord
		score sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&l.ID, &l.Owner, &l.Topic, &l.Title, &l.Content, &l.Quiz, &l.IsAssignment, &score, &l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	l.Score = nullableInt(score)
	return &l, nil
}

func (r *lessonRepo) List(ctx context.Context, owner string, limit int) ([]LessonRecord, error) {
	b := sqlite()
	sel := b.Select("id", "owner", "topic", "title", "is_assignment", "score", "created_at").
		From(b.Table(tableLessons)).
		Where(entsql.EQ("owner", owner)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var out []LessonRecord
	for rows.Next() {
		var (
			l     LessonRecord
			score sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.Owner, &l.Topic, &l.Title, &l.IsAssignment, &score, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		l.Score = nullableInt(score)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *lessonRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	query, args := sqlite().Delete(tableLessons).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("owner", owner))).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete lesson: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete lesson: %w", err)
	}
	return n > 0, nil
}

func (r *lessonRepo) SetScore(ctx context.Context, owner, id string, score int) error {
	query, args := sqlite().Update(tableLessons).
		Set("score", score).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("owner", owner))).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set lesson score: %w", err)
	}
	return nil
}

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
