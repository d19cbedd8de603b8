package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToguyC/seisha/models"
)

func TestCreateArcherValidation(t *testing.T) {
	service := NewArcherService(newFakeArcherRepo(), newFakeSeriesRepo())

	_, err := service.CreateArcher(context.Background(), CreateArcherInput{Position: models.PositionZasha})
	assert.ErrorIs(t, err, ErrArcherNameRequired)

	_, err = service.CreateArcher(context.Background(), CreateArcherInput{Name: "Akira", Position: "seiza"})
	assert.ErrorIs(t, err, ErrInvalidArcherPosition)

	archer, err := service.CreateArcher(context.Background(), CreateArcherInput{Name: "Akira", Position: models.PositionZasha})
	require.NoError(t, err)
	assert.NotZero(t, archer.ID)
	assert.Zero(t, archer.Accuracy)
}

func TestListArchersPaginatedEnvelope(t *testing.T) {
	repo := newFakeArcherRepo(
		&models.Archer{ID: 1, Name: "A", Position: models.PositionZasha},
		&models.Archer{ID: 2, Name: "B", Position: models.PositionZasha},
		&models.Archer{ID: 3, Name: "C", Position: models.PositionRissha},
	)
	service := NewArcherService(repo, newFakeSeriesRepo())

	page, err := service.ListArchersPaginated(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 2, page.TotalPages, "3 archers at 2 per page round up to 2 pages")

	// Out-of-range inputs fall back to sane defaults.
	page, err = service.ListArchersPaginated(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 1, page.Page)
}

func TestRecalculateAccuracy(t *testing.T) {
	repo := newFakeArcherRepo(&models.Archer{ID: 1, Name: "Akira", Position: models.PositionZasha})
	seriesRepo := newFakeSeriesRepo()
	require.NoError(t, seriesRepo.Create(context.Background(), nil, &models.Series{MatchID: 1, ArcherID: 1, ArrowsRaw: "1101"}))
	require.NoError(t, seriesRepo.Create(context.Background(), nil, &models.Series{MatchID: 2, ArcherID: 1, ArrowsRaw: "0020"}))

	service := NewArcherService(repo, seriesRepo)
	require.NoError(t, service.RecalculateAccuracy(context.Background(), 1))

	archer, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	// 4 hits (three plain, one ensure) out of 8 arrows.
	assert.InDelta(t, 0.5, archer.Accuracy, 1e-9)
}

func TestRecalculateAccuracyNoSeries(t *testing.T) {
	repo := newFakeArcherRepo(&models.Archer{ID: 1, Name: "Akira", Position: models.PositionZasha, Accuracy: 0.9})
	service := NewArcherService(repo, newFakeSeriesRepo())

	require.NoError(t, service.RecalculateAccuracy(context.Background(), 1))
	archer, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, archer.Accuracy)
}
