package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/repositories"
)

type CreateArcherInput struct {
	Name     string                `json:"name"`
	Position models.ArcherPosition `json:"position"`
}

type ArcherService interface {
	CreateArcher(ctx context.Context, input CreateArcherInput) (*models.Archer, error)
	GetArcherByID(ctx context.Context, id int) (*models.Archer, error)
	ListArchers(ctx context.Context) ([]*models.Archer, error)
	ListArchersPaginated(ctx context.Context, limit, page int) (*models.Paginated[*models.Archer], error)
	UpdateArcher(ctx context.Context, id int, input CreateArcherInput) (*models.Archer, error)
	DeleteArcher(ctx context.Context, id int) error
	// RecalculateAccuracy re-derives the archer's accuracy from every series
	// they ever shot. Accuracy is never written directly.
	RecalculateAccuracy(ctx context.Context, archerID int) error
}

type archerService struct {
	archerRepo repositories.ArcherRepository
	seriesRepo repositories.SeriesRepository
}

func NewArcherService(
	archerRepo repositories.ArcherRepository,
	seriesRepo repositories.SeriesRepository,
) ArcherService {
	return &archerService{
		archerRepo: archerRepo,
		seriesRepo: seriesRepo,
	}
}

func validateArcherInput(input CreateArcherInput) error {
	if input.Name == "" {
		return ErrArcherNameRequired
	}
	if input.Position != models.PositionZasha && input.Position != models.PositionRissha {
		return fmt.Errorf("%w: %q", ErrInvalidArcherPosition, input.Position)
	}
	return nil
}

func (s *archerService) CreateArcher(ctx context.Context, input CreateArcherInput) (*models.Archer, error) {
	if err := validateArcherInput(input); err != nil {
		return nil, err
	}
	archer := &models.Archer{
		Name:     input.Name,
		Position: input.Position,
	}
	if err := s.archerRepo.Create(ctx, archer); err != nil {
		return nil, fmt.Errorf("failed to create archer: %w", err)
	}
	return archer, nil
}

func (s *archerService) GetArcherByID(ctx context.Context, id int) (*models.Archer, error) {
	archer, err := s.archerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, err
	}
	return archer, nil
}

func (s *archerService) ListArchers(ctx context.Context) ([]*models.Archer, error) {
	return s.archerRepo.List(ctx)
}

func (s *archerService) ListArchersPaginated(ctx context.Context, limit, page int) (*models.Paginated[*models.Archer], error) {
	if limit < 1 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	archers, total, err := s.archerRepo.ListPaginated(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[*models.Archer]{
		Count:      len(archers),
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		Limit:      limit,
		Data:       archers,
	}, nil
}

func (s *archerService) UpdateArcher(ctx context.Context, id int, input CreateArcherInput) (*models.Archer, error) {
	if err := validateArcherInput(input); err != nil {
		return nil, err
	}
	archer, err := s.GetArcherByID(ctx, id)
	if err != nil {
		return nil, err
	}
	archer.Name = input.Name
	archer.Position = input.Position
	if err := s.archerRepo.Update(ctx, archer); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return nil, ErrArcherNotFound
		}
		return nil, err
	}
	return archer, nil
}

func (s *archerService) DeleteArcher(ctx context.Context, id int) error {
	if err := s.archerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return ErrArcherNotFound
		}
		return err
	}
	return nil
}

func (s *archerService) RecalculateAccuracy(ctx context.Context, archerID int) error {
	series, err := s.seriesRepo.ListByArcher(ctx, archerID)
	if err != nil {
		return err
	}
	arrows, hits := 0, 0
	for _, sr := range series {
		arrows += sr.Len()
		hits += sr.HitCount()
	}
	accuracy := 0.0
	if arrows > 0 {
		accuracy = float64(hits) / float64(arrows)
	}
	if err := s.archerRepo.UpdateAccuracy(ctx, nil, archerID, accuracy); err != nil {
		if errors.Is(err, repositories.ErrArcherNotFound) {
			return ErrArcherNotFound
		}
		return err
	}
	return nil
}
