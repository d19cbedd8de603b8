package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ToguyC/seisha/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]*models.Tournament, int, error)
	ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error)
	// ListAutoStatusCandidates returns tournaments whose status lags behind
	// their date range: upcoming ones already started, live ones already over.
	ListAutoStatusCandidates(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStageStatus(ctx context.Context, exec SQLExecutor, id int, stage models.TournamentStage, status models.TournamentStatus) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, name, start_date, end_date, format, type, status, current_stage,
	advancing_count, qualifiers_round_count, finals_round_count, target_count,
	created_at, updated_at`

const tournamentSelect = `SELECT` + tournamentColumns + `
	FROM tournaments`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.Format, &t.Type, &t.Status,
		&t.CurrentStage, &t.AdvancingCount, &t.QualifiersRoundCount,
		&t.FinalsRoundCount, &t.TargetCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(name, start_date, end_date, format, type, status, current_stage,
			 advancing_count, qualifiers_round_count, finals_round_count, target_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.StartDate, t.EndDate, t.Format, t.Type, t.Status, t.CurrentStage,
		t.AdvancingCount, t.QualifiersRoundCount, t.FinalsRoundCount, t.TargetCount,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := tournamentSelect + ` WHERE id = $1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListPaginated(ctx context.Context, limit, offset int) ([]*models.Tournament, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tournaments: %w", err)
	}

	query := tournamentSelect + ` ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tournaments page: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0, limit)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, total, rows.Err()
}

func (r *postgresTournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	query := tournamentSelect + ` WHERE status = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments by status %s: %w", status, err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) ListAutoStatusCandidates(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := tournamentSelect + `
		WHERE (status = $1 AND start_date <= $3)
		   OR (status = $2 AND end_date < $3)
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusUpcoming, models.StatusLive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto status candidates: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, start_date = $2, end_date = $3, format = $4, type = $5,
		    status = $6, advancing_count = $7, qualifiers_round_count = $8,
		    finals_round_count = $9, target_count = $10, updated_at = NOW()
		WHERE id = $11`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.StartDate, t.EndDate, t.Format, t.Type, t.Status,
		t.AdvancingCount, t.QualifiersRoundCount, t.FinalsRoundCount,
		t.TargetCount, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStageStatus(ctx context.Context, exec SQLExecutor, id int, stage models.TournamentStage, status models.TournamentStatus) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournaments SET current_stage = $1, status = $2, updated_at = NOW() WHERE id = $3`

	result, err := exec.ExecContext(ctx, query, stage, status, id)
	if err != nil {
		return fmt.Errorf("failed to update stage for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
