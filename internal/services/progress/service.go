package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/mkrivosheev/globetrek/backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("administrative role required")
	ErrProfileNotFound = errors.New("profile not found")
	ErrUnknownBoundary = errors.New("unknown reset boundary")
)

// Boundary names how much progress survives a reset: everything goes, season
// zero stays, or seasons zero and one stay.
type Boundary string

const (
	BoundaryAll     Boundary = "all"
	BoundarySeason1 Boundary = "season1"
	BoundarySeason2 Boundary = "season2"
)

func ParseBoundary(raw string) (Boundary, error) {
	switch Boundary(strings.ToLower(strings.TrimSpace(raw))) {
	case BoundaryAll:
		return BoundaryAll, nil
	case BoundarySeason1:
		return BoundarySeason1, nil
	case BoundarySeason2:
		return BoundarySeason2, nil
	default:
		return "", ErrUnknownBoundary
	}
}

func (b Boundary) retainedSeasons() []int {
	switch b {
	case BoundarySeason1:
		return []int{0}
	case BoundarySeason2:
		return []int{0, 1}
	default:
		return nil
	}
}

const (
	adminRole = "admin"

	// XP is a pure function of retained mission rows: best score times the
	// multiplier, one level per hundred points.
	xpPerScorePoint = 10
	xpPerLevel      = 100
)

type RoleStore interface {
	HasRole(ctx context.Context, userID int64, role string) (bool, error)
}

type ProfileStore interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	SetAggregates(ctx context.Context, tx pgx.Tx, userID int64, xp int64, level int) error
}

type CountryStore interface {
	CodesBySeasons(ctx context.Context, tx pgx.Tx, seasons []int) ([]string, error)
}

type ProgressStore interface {
	DeleteOutsideCountries(ctx context.Context, tx pgx.Tx, userID int64, retained []string) (map[string]int64, error)
	SumMissionBestScores(ctx context.Context, tx pgx.Tx, userID int64, retained []string) (int64, error)
	DeleteStoryState(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
	DeleteBadges(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
}

type Service struct {
	roles     RoleStore
	profiles  ProfileStore
	countries CountryStore
	progress  ProgressStore
	runTx     func(context.Context, func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Roles     RoleStore
	Profiles  ProfileStore
	Countries CountryStore
	Progress  ProgressStore
}

type ResetResult struct {
	Deleted map[string]int64
}

func NewService(deps Dependencies) *Service {
	return &Service{
		roles:     deps.Roles,
		profiles:  deps.Profiles,
		countries: deps.Countries,
		progress:  deps.Progress,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Reset deletes the target user's progress outside the retained boundary and
// recomputes the profile aggregates from what survives, in one transaction.
// The actor must hold the admin role in the role-assignment table; this is
// checked before any read of the target's data.
func (s *Service) Reset(ctx context.Context, actorID, targetUserID int64, boundary Boundary) (ResetResult, error) {
	if actorID <= 0 || targetUserID <= 0 {
		return ResetResult{}, ErrValidation
	}
	if s.roles == nil || s.profiles == nil || s.countries == nil || s.progress == nil {
		return ResetResult{}, fmt.Errorf("progress dependencies are not configured")
	}
	if _, err := ParseBoundary(string(boundary)); err != nil {
		return ResetResult{}, err
	}

	isAdmin, err := s.roles.HasRole(ctx, actorID, adminRole)
	if err != nil {
		return ResetResult{}, err
	}
	if !isAdmin {
		return ResetResult{}, ErrForbidden
	}

	exists, err := s.profiles.Exists(ctx, targetUserID)
	if err != nil {
		return ResetResult{}, err
	}
	if !exists {
		return ResetResult{}, ErrProfileNotFound
	}

	var deleted map[string]int64
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		retained := []string{}
		if seasons := boundary.retainedSeasons(); len(seasons) > 0 {
			codes, err := s.countries.CodesBySeasons(txCtx, tx, seasons)
			if err != nil {
				return err
			}
			retained = codes
		}

		counts, err := s.progress.DeleteOutsideCountries(txCtx, tx, targetUserID, retained)
		if err != nil {
			return err
		}

		if boundary == BoundaryAll {
			storyCount, err := s.progress.DeleteStoryState(txCtx, tx, targetUserID)
			if err != nil {
				return err
			}
			counts["story_state"] = storyCount

			badgeCount, err := s.progress.DeleteBadges(txCtx, tx, targetUserID)
			if err != nil {
				return err
			}
			counts["user_badges"] = badgeCount

			if err := s.profiles.SetAggregates(txCtx, tx, targetUserID, 0, 1); err != nil {
				return err
			}
		} else {
			sum, err := s.progress.SumMissionBestScores(txCtx, tx, targetUserID, retained)
			if err != nil {
				return err
			}
			xp := sum * xpPerScorePoint
			if err := s.profiles.SetAggregates(txCtx, tx, targetUserID, xp, levelForXP(xp)); err != nil {
				return err
			}
		}

		deleted = counts
		return nil
	})
	if err != nil {
		return ResetResult{}, err
	}

	return ResetResult{Deleted: deleted}, nil
}

func levelForXP(xp int64) int {
	return int(xp/xpPerLevel) + 1
}
