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
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamMemberConflict = errors.New("archer is already a member of this team")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error)
	ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.Team, error)
	AddArcher(ctx context.Context, teamID, archerID int) error
	RemoveArcher(ctx context.Context, teamID, archerID int) error
	// MemberMap maps archer id to team id over all teams of the tournament.
	MemberMap(ctx context.Context, tournamentID int) (map[int]int, error)
	SetQualifiersPlace(ctx context.Context, exec SQLExecutor, teamID int, place *int) error
	SetFinalsPlace(ctx context.Context, exec SQLExecutor, teamID int, place *int) error
	SetTieBreak(ctx context.Context, exec SQLExecutor, teamID int, stage models.TournamentStage, flagged bool) error
	ClearTieBreak(ctx context.Context, exec SQLExecutor, tournamentID int, stage models.TournamentStage) error
	Delete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `
	id, tournament_id, name, number, qualifiers_place, finals_place,
	tie_break_qualifiers, tie_break_finals, created_at, updated_at`

const teamSelect = `SELECT` + teamColumns + `
	FROM teams`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	err := row.Scan(
		&t.ID, &t.TournamentID, &t.Name, &t.Number, &t.QualifiersPlace,
		&t.FinalsPlace, &t.TieBreakQualifiers, &t.TieBreakFinals,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name, number)
		VALUES ($1, $2, (
			SELECT COALESCE(MAX(number), 0) + 1 FROM teams WHERE tournament_id = $1
		))
		RETURNING id, number, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, team.TournamentID, team.Name).
		Scan(&team.ID, &team.Number, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert team for tournament %d: %w", team.TournamentID, err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := teamSelect + ` WHERE id = $1`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	if err := r.loadArchers(ctx, []*models.Team{team}); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	query := teamSelect + ` WHERE tournament_id = $1 ORDER BY number ASC`
	return r.queryTeams(ctx, query, tournamentID)
}

func (r *postgresTeamRepository) ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.Team, error) {
	query := teamSelect + `
		WHERE tournament_id = $1 AND ` + tieBreakColumn(stage) + ` = TRUE
		ORDER BY number ASC`
	return r.queryTeams(ctx, query, tournamentID)
}

func (r *postgresTeamRepository) queryTeams(ctx context.Context, query string, args ...interface{}) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teamPtrs := make([]*models.Team, 0)
	for rows.Next() {
		team, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teamPtrs = append(teamPtrs, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadArchers(ctx, teamPtrs); err != nil {
		return nil, err
	}

	teams := make([]models.Team, len(teamPtrs))
	for i, t := range teamPtrs {
		teams[i] = *t
	}
	return teams, nil
}

func (r *postgresTeamRepository) loadArchers(ctx context.Context, teams []*models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]int64, len(teams))
	byID := make(map[int]*models.Team, len(teams))
	for i, t := range teams {
		ids[i] = int64(t.ID)
		byID[t.ID] = t
		t.Archers = make([]models.Archer, 0)
	}

	query := `
		SELECT ta.team_id, a.id, a.name, a.position, a.accuracy, a.created_at, a.updated_at
		FROM team_archers ta
		JOIN archers a ON a.id = ta.archer_id
		WHERE ta.team_id = ANY($1)
		ORDER BY ta.team_id ASC, a.id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query team archers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int
		var a models.Archer
		if scanErr := rows.Scan(&teamID, &a.ID, &a.Name, &a.Position, &a.Accuracy, &a.CreatedAt, &a.UpdatedAt); scanErr != nil {
			return fmt.Errorf("failed to scan team archer row: %w", scanErr)
		}
		if team, ok := byID[teamID]; ok {
			team.Archers = append(team.Archers, a)
		}
	}
	return rows.Err()
}

func (r *postgresTeamRepository) AddArcher(ctx context.Context, teamID, archerID int) error {
	query := `INSERT INTO team_archers (team_id, archer_id) VALUES ($1, $2)`

	_, err := r.db.ExecContext(ctx, query, teamID, archerID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTeamMemberConflict
		}
		return fmt.Errorf("failed to add archer %d to team %d: %w", archerID, teamID, err)
	}
	return nil
}

func (r *postgresTeamRepository) RemoveArcher(ctx context.Context, teamID, archerID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM team_archers WHERE team_id = $1 AND archer_id = $2`, teamID, archerID)
	if err != nil {
		return fmt.Errorf("failed to remove archer %d from team %d: %w", archerID, teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) MemberMap(ctx context.Context, tournamentID int) (map[int]int, error) {
	query := `
		SELECT ta.archer_id, ta.team_id
		FROM team_archers ta
		JOIN teams t ON t.id = ta.team_id
		WHERE t.tournament_id = $1`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	members := make(map[int]int)
	for rows.Next() {
		var archerID, teamID int
		if scanErr := rows.Scan(&archerID, &teamID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", scanErr)
		}
		members[archerID] = teamID
	}
	return members, rows.Err()
}

func (r *postgresTeamRepository) SetQualifiersPlace(ctx context.Context, exec SQLExecutor, teamID int, place *int) error {
	return r.setColumn(ctx, exec, "qualifiers_place", teamID, place)
}

func (r *postgresTeamRepository) SetFinalsPlace(ctx context.Context, exec SQLExecutor, teamID int, place *int) error {
	return r.setColumn(ctx, exec, "finals_place", teamID, place)
}

func (r *postgresTeamRepository) SetTieBreak(ctx context.Context, exec SQLExecutor, teamID int, stage models.TournamentStage, flagged bool) error {
	return r.setColumn(ctx, exec, tieBreakColumn(stage), teamID, flagged)
}

func (r *postgresTeamRepository) setColumn(ctx context.Context, exec SQLExecutor, column string, teamID int, value interface{}) error {
	query := fmt.Sprintf(`UPDATE teams SET %s = $1, updated_at = NOW() WHERE id = $2`, column)

	result, err := r.getExecutor(exec).ExecContext(ctx, query, value, teamID)
	if err != nil {
		return fmt.Errorf("failed to set %s for team %d: %w", column, teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) ClearTieBreak(ctx context.Context, exec SQLExecutor, tournamentID int, stage models.TournamentStage) error {
	query := fmt.Sprintf(`UPDATE teams SET %s = FALSE WHERE tournament_id = $1`, tieBreakColumn(stage))

	_, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to clear team tie-break flags for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
