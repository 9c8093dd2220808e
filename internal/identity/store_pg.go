package identity

import (
	"context"
	"database/sql"
	"errors"

	"lms-edge/internal/token"
	"lms-edge/pkg/utils"
)

// NOTE: This store assumes the following table exists:
//
//	users (
//	  id            text primary key,
//	  email         text unique not null,
//	  role          text not null,
//	  tenant_id     text,
//	  node_id       text,
//	  token_version integer not null default 0
//	)
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) FindByEmail(ctx context.Context, email string) (token.Identity, error) {
	const q = `
SELECT id, email, role, COALESCE(tenant_id, ''), COALESCE(node_id, ''), token_version
FROM users
WHERE email = $1
`
	var id token.Identity
	if err := s.db.QueryRowContext(ctx, q, email).Scan(
		&id.UserID,
		&id.Email,
		&id.Role,
		&id.TenantID,
		&id.NodeID,
		&id.TokenVersion,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.Identity{}, ErrNotFound
		}
		return token.Identity{}, err
	}
	return id, nil
}

func (s *PGStore) TokenVersion(ctx context.Context, userID string) (int, error) {
	const q = `SELECT token_version FROM users WHERE id = $1`
	var v int
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return v, nil
}

// BumpTokenVersion locks the user row to serialize concurrent bumps, then
// increments the counter.
func (s *PGStore) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	var next int
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const lockQ = `SELECT token_version FROM users WHERE id = $1 FOR UPDATE`
		var current int
		if err := tx.QueryRowContext(ctx, lockQ, userID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		const updQ = `UPDATE users SET token_version = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updQ, userID, current+1); err != nil {
			return err
		}
		next = current + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
