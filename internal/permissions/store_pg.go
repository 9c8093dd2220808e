package permissions

import (
	"context"
	"database/sql"
)

// NOTE: This store assumes the following table exists:
//
//	role_permissions (
//	  role     text not null,
//	  resource text not null,
//	  action   text not null,
//	  primary key (role, resource, action)
//	)
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) PermissionsForRole(ctx context.Context, role string) ([]string, error) {
	const q = `
SELECT resource, action
FROM role_permissions
WHERE role = $1
ORDER BY resource, action
`
	rows, err := s.db.QueryContext(ctx, q, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var resource, action string
		if err := rows.Scan(&resource, &action); err != nil {
			return nil, err
		}
		perms = append(perms, resource+":"+action)
	}
	return perms, rows.Err()
}
