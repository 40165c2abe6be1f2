package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// credentialRepo implements CredentialRepo; one row per backend URL.
type credentialRepo struct {
	db *sql.DB
}

func (r *credentialRepo) Save(ctx context.Context, c Credential) error {
	if c.APIURL == "" || c.Token == "" {
		return errors.New("credential needs an api url and a token")
	}
	query, args := sqlite().Insert(tableCredentials).
		Columns("api_url", "token", "email", "role", "updated_at").
		Values(c.APIURL, c.Token, c.Email, c.Role, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("api_url"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) Get(ctx context.Context, apiURL string) (*Credential, error) {
	b := sqlite()
	query, args := b.Select("api_url", "token", "email", "role", "updated_at").
		From(b.Table(tableCredentials)).
		Where(entsql.EQ("api_url", apiURL)).
		Query()

	var c Credential
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&c.APIURL, &c.Token, &c.Email, &c.Role, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

func (r *credentialRepo) Delete(ctx context.Context, apiURL string) error {
	query, args := sqlite().Delete(tableCredentials).
		Where(entsql.EQ("api_url", apiURL)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
