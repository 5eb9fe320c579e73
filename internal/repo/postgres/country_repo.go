package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CountryRepo reads the static season catalog: every country belongs to
// exactly one numbered season.
type CountryRepo struct {
	pool *pgxpool.Pool
}

func NewCountryRepo(pool *pgxpool.Pool) *CountryRepo {
	return &CountryRepo{pool: pool}
}

func (r *CountryRepo) CodesBySeasons(ctx context.Context, tx pgx.Tx, seasons []int) ([]string, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if len(seasons) == 0 {
		return []string{}, nil
	}

	rows, err := tx.Query(ctx, `
SELECT code
FROM countries
WHERE season = ANY($1)
ORDER BY code
`, seasons)
	if err != nil {
		return nil, fmt.Errorf("list country codes by seasons: %w", err)
	}
	defer rows.Close()

	codes := make([]string, 0, 8)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan country code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate country codes: %w", err)
	}

	return codes, nil
}
