package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ToguyC/seisha/models"
	"github.com/lib/pq"
)

var (
	ErrSeriesNotFound      = errors.New("series not found")
	ErrSeriesMatchInvalid  = errors.New("series references an unknown match")
	ErrSeriesArcherInvalid = errors.New("series references an unknown archer")
)

type SeriesRepository interface {
	Create(ctx context.Context, exec SQLExecutor, series *models.Series) error
	GetByMatchAndArcher(ctx context.Context, matchID, archerID int) (*models.Series, error)
	ListByArcher(ctx context.Context, archerID int) ([]*models.Series, error)
	// UpdateArrows persists the series' raw arrow string.
	UpdateArrows(ctx context.Context, exec SQLExecutor, series *models.Series) error
}

type postgresSeriesRepository struct {
	db *sql.DB
}

func NewPostgresSeriesRepository(db *sql.DB) SeriesRepository {
	return &postgresSeriesRepository{db: db}
}

func (r *postgresSeriesRepository) Create(ctx context.Context, exec SQLExecutor, series *models.Series) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO series (match_id, archer_id, arrows_raw)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query, series.MatchID, series.ArcherID, series.ArrowsRaw).
		Scan(&series.ID, &series.CreatedAt, &series.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "series_match_id_fkey":
				return ErrSeriesMatchInvalid
			case "series_archer_id_fkey":
				return ErrSeriesArcherInvalid
			}
		}
		return fmt.Errorf("failed to insert series for match %d, archer %d: %w",
			series.MatchID, series.ArcherID, err)
	}
	return nil
}

func (r *postgresSeriesRepository) GetByMatchAndArcher(ctx context.Context, matchID, archerID int) (*models.Series, error) {
	query := `
		SELECT id, match_id, archer_id, arrows_raw, created_at, updated_at
		FROM series
		WHERE match_id = $1 AND archer_id = $2`

	s := &models.Series{}
	err := r.db.QueryRowContext(ctx, query, matchID, archerID).
		Scan(&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to scan series for match %d, archer %d: %w", matchID, archerID, err)
	}
	return s, nil
}

func (r *postgresSeriesRepository) ListByArcher(ctx context.Context, archerID int) ([]*models.Series, error) {
	query := `
		SELECT id, match_id, archer_id, arrows_raw, created_at, updated_at
		FROM series
		WHERE archer_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, archerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series for archer %d: %w", archerID, err)
	}
	defer rows.Close()

	list := make([]*models.Series, 0)
	for rows.Next() {
		s := &models.Series{}
		if scanErr := rows.Scan(&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", scanErr)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *postgresSeriesRepository) UpdateArrows(ctx context.Context, exec SQLExecutor, series *models.Series) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE series SET arrows_raw = $1, updated_at = NOW() WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, series.ArrowsRaw, series.ID)
	if err != nil {
		return fmt.Errorf("failed to update arrows for series %d: %w", series.ID, err)
	}
	return checkAffectedRows(result, ErrSeriesNotFound)
}
