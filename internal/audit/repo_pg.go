package audit

import (
	"context"
	"database/sql"
)

// NOTE: This repository assumes the following table exists, with an
// INSERT-only policy (optionally a trigger preventing UPDATE/DELETE):
//
//	audit_events (
//	  id            text primary key,
//	  tenant_id     text,
//	  type          text not null,
//	  actor_user_id text,
//	  actor_role    text,
//	  ip_address    text,
//	  message       text,
//	  metadata      jsonb,
//	  created_at    timestamptz not null
//	)
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, tenant_id, type, actor_user_id, actor_role, ip_address, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::jsonb, $9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.TenantID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
