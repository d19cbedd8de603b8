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
	ErrEntryNotFound = errors.New("archer is not entered in this tournament")
	ErrEntryConflict = errors.New("archer is already entered in this tournament")
)

// EntryRepository manages tournament_archers rows: the per-tournament
// projection of each archer (target number, places, tie-break flags).
type EntryRepository interface {
	Add(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) (*models.TournamentArcher, error)
	Get(ctx context.Context, tournamentID, archerID int) (*models.TournamentArcher, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentArcher, error)
	ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.TournamentArcher, error)
	// Remove deletes the entry and re-packs the remaining numbers so they
	// stay dense (1..n).
	Remove(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) error
	SetQualifiersPlace(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, place *int) error
	SetFinalsPlace(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, place *int) error
	SetTieBreak(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, stage models.TournamentStage, flagged bool) error
	ClearTieBreak(ctx context.Context, exec SQLExecutor, tournamentID int, stage models.TournamentStage) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// tieBreakColumn picks the flag column for a tie-break stage. Qualifiers
// stages map to the qualifiers flag, finals stages to the finals flag.
func tieBreakColumn(stage models.TournamentStage) string {
	if stage == models.StageFinals || stage == models.StageFinalsTieBreak {
		return "tie_break_finals"
	}
	return "tie_break_qualifiers"
}

func (r *postgresEntryRepository) Add(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) (*models.TournamentArcher, error) {
	query := `
		INSERT INTO tournament_archers (tournament_id, archer_id, number)
		VALUES ($1, $2, (
			SELECT COALESCE(MAX(number), 0) + 1
			FROM tournament_archers
			WHERE tournament_id = $1
		))
		RETURNING number`

	entry := &models.TournamentArcher{TournamentID: tournamentID, ArcherID: archerID}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, archerID).Scan(&entry.Number)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrEntryConflict
		}
		return nil, fmt.Errorf("failed to enter archer %d in tournament %d: %w", archerID, tournamentID, err)
	}
	return entry, nil
}

const entryColumns = `
	e.tournament_id, e.archer_id, e.number, e.qualifiers_place, e.finals_place,
	e.tie_break_qualifiers, e.tie_break_finals,
	a.id, a.name, a.position, a.accuracy, a.created_at, a.updated_at`

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.TournamentArcher, error) {
	e := &models.TournamentArcher{Archer: &models.Archer{}}
	err := row.Scan(
		&e.TournamentID, &e.ArcherID, &e.Number, &e.QualifiersPlace, &e.FinalsPlace,
		&e.TieBreakQualifiers, &e.TieBreakFinals,
		&e.Archer.ID, &e.Archer.Name, &e.Archer.Position, &e.Archer.Accuracy,
		&e.Archer.CreatedAt, &e.Archer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *postgresEntryRepository) Get(ctx context.Context, tournamentID, archerID int) (*models.TournamentArcher, error) {
	query := `
		SELECT` + entryColumns + `
		FROM tournament_archers e
		JOIN archers a ON a.id = e.archer_id
		WHERE e.tournament_id = $1 AND e.archer_id = $2`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, tournamentID, archerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan entry (%d, %d): %w", tournamentID, archerID, err)
	}
	return entry, nil
}

func (r *postgresEntryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentArcher, error) {
	query := `
		SELECT` + entryColumns + `
		FROM tournament_archers e
		JOIN archers a ON a.id = e.archer_id
		WHERE e.tournament_id = $1
		ORDER BY e.number ASC`

	return r.queryEntries(ctx, query, tournamentID)
}

func (r *postgresEntryRepository) ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.TournamentArcher, error) {
	query := `
		SELECT` + entryColumns + `
		FROM tournament_archers e
		JOIN archers a ON a.id = e.archer_id
		WHERE e.tournament_id = $1 AND e.` + tieBreakColumn(stage) + ` = TRUE
		ORDER BY e.number ASC`

	return r.queryEntries(ctx, query, tournamentID)
}

func (r *postgresEntryRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.TournamentArcher, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournament entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.TournamentArcher, 0)
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", scanErr)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *postgresEntryRepository) Remove(ctx context.Context, exec SQLExecutor, tournamentID, archerID int) error {
	executor := r.getExecutor(exec)

	var removedNumber int
	err := executor.QueryRowContext(ctx, `
		DELETE FROM tournament_archers
		WHERE tournament_id = $1 AND archer_id = $2
		RETURNING number`, tournamentID, archerID).Scan(&removedNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to remove entry (%d, %d): %w", tournamentID, archerID, err)
	}

	_, err = executor.ExecContext(ctx, `
		UPDATE tournament_archers
		SET number = number - 1
		WHERE tournament_id = $1 AND number > $2`, tournamentID, removedNumber)
	if err != nil {
		return fmt.Errorf("failed to re-pack entry numbers for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresEntryRepository) SetQualifiersPlace(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, place *int) error {
	return r.setColumn(ctx, exec, "qualifiers_place", tournamentID, archerID, place)
}

func (r *postgresEntryRepository) SetFinalsPlace(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, place *int) error {
	return r.setColumn(ctx, exec, "finals_place", tournamentID, archerID, place)
}

func (r *postgresEntryRepository) SetTieBreak(ctx context.Context, exec SQLExecutor, tournamentID, archerID int, stage models.TournamentStage, flagged bool) error {
	return r.setColumn(ctx, exec, tieBreakColumn(stage), tournamentID, archerID, flagged)
}

func (r *postgresEntryRepository) setColumn(ctx context.Context, exec SQLExecutor, column string, tournamentID, archerID int, value interface{}) error {
	query := fmt.Sprintf(`
		UPDATE tournament_archers SET %s = $1
		WHERE tournament_id = $2 AND archer_id = $3`, column)

	result, err := r.getExecutor(exec).ExecContext(ctx, query, value, tournamentID, archerID)
	if err != nil {
		return fmt.Errorf("failed to set %s for entry (%d, %d): %w", column, tournamentID, archerID, err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *postgresEntryRepository) ClearTieBreak(ctx context.Context, exec SQLExecutor, tournamentID int, stage models.TournamentStage) error {
	query := fmt.Sprintf(`
		UPDATE tournament_archers SET %s = FALSE
		WHERE tournament_id = $1`, tieBreakColumn(stage))

	_, err := r.getExecutor(exec).ExecContext(ctx, query, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to clear tie-break flags for tournament %d: %w", tournamentID, err)
	}
	return nil
}
