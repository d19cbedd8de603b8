package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ToguyC/seisha/models"
)

var ErrArcherNotFound = errors.New("archer not found")

type ArcherRepository interface {
	Create(ctx context.Context, archer *models.Archer) error
	GetByID(ctx context.Context, id int) (*models.Archer, error)
	List(ctx context.Context) ([]*models.Archer, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]*models.Archer, int, error)
	Update(ctx context.Context, archer *models.Archer) error
	UpdateAccuracy(ctx context.Context, exec SQLExecutor, id int, accuracy float64) error
	Delete(ctx context.Context, id int) error
}

type postgresArcherRepository struct {
	db *sql.DB
}

func NewPostgresArcherRepository(db *sql.DB) ArcherRepository {
	return &postgresArcherRepository{db: db}
}

const archerColumns = `id, name, position, accuracy, created_at, updated_at`

func scanArcher(row interface{ Scan(...interface{}) error }) (*models.Archer, error) {
	a := &models.Archer{}
	err := row.Scan(&a.ID, &a.Name, &a.Position, &a.Accuracy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *postgresArcherRepository) Create(ctx context.Context, archer *models.Archer) error {
	query := `
		INSERT INTO archers (name, position, accuracy)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, archer.Name, archer.Position, archer.Accuracy).
		Scan(&archer.ID, &archer.CreatedAt, &archer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert archer: %w", err)
	}
	return nil
}

func (r *postgresArcherRepository) GetByID(ctx context.Context, id int) (*models.Archer, error) {
	query := `SELECT ` + archerColumns + ` FROM archers WHERE id = $1`

	archer, err := scanArcher(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArcherNotFound
		}
		return nil, fmt.Errorf("failed to scan archer %d: %w", id, err)
	}
	return archer, nil
}

func (r *postgresArcherRepository) List(ctx context.Context) ([]*models.Archer, error) {
	query := `SELECT ` + archerColumns + ` FROM archers ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query archers: %w", err)
	}
	defer rows.Close()

	archers := make([]*models.Archer, 0)
	for rows.Next() {
		archer, scanErr := scanArcher(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan archer row: %w", scanErr)
		}
		archers = append(archers, archer)
	}
	return archers, rows.Err()
}

func (r *postgresArcherRepository) ListPaginated(ctx context.Context, limit, offset int) ([]*models.Archer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count archers: %w", err)
	}

	query := `SELECT ` + archerColumns + ` FROM archers ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query archers page: %w", err)
	}
	defer rows.Close()

	archers := make([]*models.Archer, 0, limit)
	for rows.Next() {
		archer, scanErr := scanArcher(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan archer row: %w", scanErr)
		}
		archers = append(archers, archer)
	}
	return archers, total, rows.Err()
}

func (r *postgresArcherRepository) Update(ctx context.Context, archer *models.Archer) error {
	query := `
		UPDATE archers
		SET name = $1, position = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, archer.Name, archer.Position, archer.ID)
	if err != nil {
		return fmt.Errorf("failed to update archer %d: %w", archer.ID, err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}

func (r *postgresArcherRepository) UpdateAccuracy(ctx context.Context, exec SQLExecutor, id int, accuracy float64) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE archers SET accuracy = $1, updated_at = NOW() WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, accuracy, id)
	if err != nil {
		return fmt.Errorf("failed to update accuracy for archer %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}

func (r *postgresArcherRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM archers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete archer %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrArcherNotFound)
}
