package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// progressTables declares every gameplay table that references a country.
// The reset cascade iterates this list with one uniform predicate, so a new
// progress kind only needs a new entry here.
type progressTable struct {
	name          string
	countryColumn string
}

var progressTables = []progressTable{
	{name: "missions", countryColumn: "country_code"},
	{name: "country_fragments", countryColumn: "country_code"},
	{name: "puzzle_pieces", countryColumn: "country_code"},
	{name: "country_tokens", countryColumn: "country_code"},
	{name: "country_progress", countryColumn: "country_code"},
}

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

// DeleteOutsideCountries removes the user's rows whose country is not in the
// retained set, for every declared progress table. An empty retained set
// matches nothing, so the same predicate deletes everything. Counts come
// from the delete command tags, not estimates.
func (r *ProgressRepo) DeleteOutsideCountries(ctx context.Context, tx pgx.Tx, userID int64, retained []string) (map[string]int64, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if retained == nil {
		retained = []string{}
	}

	counts := make(map[string]int64, len(progressTables))
	for _, table := range progressTables {
		query := fmt.Sprintf(
			`DELETE FROM %s WHERE user_id = $1 AND NOT (%s = ANY($2))`,
			table.name, table.countryColumn,
		)
		tag, err := tx.Exec(ctx, query, userID, retained)
		if err != nil {
			return nil, fmt.Errorf("delete %s rows: %w", table.name, err)
		}
		counts[table.name] = tag.RowsAffected()
	}

	return counts, nil
}

// SumMissionBestScores totals the best-score field over retained missions,
// the input of the XP recompute.
func (r *ProgressRepo) SumMissionBestScores(ctx context.Context, tx pgx.Tx, userID int64, retained []string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if retained == nil {
		retained = []string{}
	}

	var sum int64
	if err := tx.QueryRow(ctx, `
SELECT COALESCE(SUM(best_score), 0)
FROM missions
WHERE user_id = $1
  AND country_code = ANY($2)
`, userID, retained).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum mission best scores: %w", err)
	}

	return sum, nil
}

func (r *ProgressRepo) DeleteStoryState(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM story_state WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete story state: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *ProgressRepo) DeleteBadges(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user badges: %w", err)
	}

	return tag.RowsAffected(), nil
}
