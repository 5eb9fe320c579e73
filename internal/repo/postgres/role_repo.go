package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepo checks membership in the role-assignment table. JWT role claims
// are advisory only; administrative operations re-verify here.
type RoleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

func (r *RoleRepo) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if userID <= 0 || role == "" {
		return false, fmt.Errorf("invalid role lookup payload")
	}

	var ok bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM user_roles
	WHERE user_id = $1
	  AND role = $2
)
`, userID, role).Scan(&ok); err != nil {
		return false, fmt.Errorf("check user role: %w", err)
	}

	return ok, nil
}
