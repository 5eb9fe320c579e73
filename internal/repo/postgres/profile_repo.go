package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)
`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check profile exists: %w", err)
	}

	return exists, nil
}

// MarkPaidUnlocked flips the paid-content flag and records the purchased tier
// label on the profile.
func (r *ProfileRepo) MarkPaidUnlocked(ctx context.Context, userID int64, tier string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	tier = strings.ToLower(strings.TrimSpace(tier))
	if userID <= 0 || tier == "" {
		return fmt.Errorf("invalid paid unlock payload")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE profiles
SET
	paid_unlocked = TRUE,
	subscription_tier = $2,
	updated_at = NOW()
WHERE user_id = $1
`, userID, tier)
	if err != nil {
		return fmt.Errorf("mark profile paid unlocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// SetAggregates rewrites the derived profile numbers after a reset. Both
// reset branches zero the streak counters and re-arm the puzzle intro.
func (r *ProfileRepo) SetAggregates(ctx context.Context, tx pgx.Tx, userID int64, xp int64, level int) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if userID <= 0 || xp < 0 || level < 1 {
		return fmt.Errorf("invalid profile aggregate payload")
	}

	tag, err := tx.Exec(ctx, `
UPDATE profiles
SET
	xp = $2,
	level = $3,
	streak = 0,
	longest_streak = 0,
	puzzle_intro_seen = FALSE,
	updated_at = NOW()
WHERE user_id = $1
`, userID, xp, level)
	if err != nil {
		return fmt.Errorf("set profile aggregates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}
