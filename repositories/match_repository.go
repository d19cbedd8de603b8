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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match references an unknown tournament")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, stage *models.TournamentStage) ([]*models.Match, error)
	SetFinished(ctx context.Context, exec SQLExecutor, id int, finished bool) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, format, stage, finished, created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(&m.ID, &m.TournamentID, &m.Format, &m.Stage, &m.Finished, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO matches (tournament_id, format, stage, finished)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query, match.TournamentID, match.Format, match.Stage, match.Finished).
		Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "matches_tournament_id_fkey" {
			return ErrMatchTournamentInvalid
		}
		return fmt.Errorf("failed to insert match for tournament %d: %w", match.TournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	if err := r.loadSeries(ctx, []*models.Match{match}); err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, stage *models.TournamentStage) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if stage != nil {
		query += ` AND stage = $2`
		args = append(args, *stage)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadSeries(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// loadSeries attaches every series (with its archer) to the given matches
// in one round trip.
func (r *postgresMatchRepository) loadSeries(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]int64, len(matches))
	byID := make(map[int]*models.Match, len(matches))
	for i, m := range matches {
		ids[i] = int64(m.ID)
		byID[m.ID] = m
		m.Series = make([]*models.Series, 0)
	}

	query := `
		SELECT s.id, s.match_id, s.archer_id, s.arrows_raw, s.created_at, s.updated_at,
		       a.id, a.name, a.position, a.accuracy, a.created_at, a.updated_at
		FROM series s
		JOIN archers a ON a.id = s.archer_id
		WHERE s.match_id = ANY($1)
		ORDER BY s.match_id ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query series for matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &models.Series{Archer: &models.Archer{}}
		if scanErr := rows.Scan(
			&s.ID, &s.MatchID, &s.ArcherID, &s.ArrowsRaw, &s.CreatedAt, &s.UpdatedAt,
			&s.Archer.ID, &s.Archer.Name, &s.Archer.Position, &s.Archer.Accuracy,
			&s.Archer.CreatedAt, &s.Archer.UpdatedAt,
		); scanErr != nil {
			return fmt.Errorf("failed to scan series row: %w", scanErr)
		}
		if match, ok := byID[s.MatchID]; ok {
			match.Series = append(match.Series, s)
		}
	}
	return rows.Err()
}

func (r *postgresMatchRepository) SetFinished(ctx context.Context, exec SQLExecutor, id int, finished bool) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE matches SET finished = $1, updated_at = NOW() WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, finished, id)
	if err != nil {
		return fmt.Errorf("failed to update finished for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
