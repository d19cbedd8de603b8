package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/scoring"
)

type matchFixture struct {
	service    MatchService
	tournament *models.Tournament
	broadcasts *fakeBroadcaster
	archers    *fakeArcherRepo
	entries    *fakeEntryRepo
}

func newMatchFixture(t *testing.T, tournamentType models.TournamentType) *matchFixture {
	t.Helper()

	tournament := &models.Tournament{
		ID:           1,
		Name:         "Spring Taikai",
		Format:       models.FormatIndividual,
		Type:         tournamentType,
		Status:       models.StatusLive,
		CurrentStage: models.StageQualifiers,
		StartDate:    time.Now().Add(-time.Hour),
		EndDate:      time.Now().Add(time.Hour),
		TargetCount:  4,
	}

	archers := newFakeArcherRepo(
		&models.Archer{ID: 1, Name: "Akira", Position: models.PositionZasha},
		&models.Archer{ID: 2, Name: "Mei", Position: models.PositionRissha},
	)
	entries := &fakeEntryRepo{entries: []models.TournamentArcher{
		{TournamentID: 1, ArcherID: 1, Number: 1},
		{TournamentID: 1, ArcherID: 2, Number: 2},
	}}

	seriesRepo := newFakeSeriesRepo()
	broadcasts := &fakeBroadcaster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewMatchService(
		newFakeMatchRepo(),
		seriesRepo,
		newFakeTournamentRepo(tournament),
		entries,
		newFakeTeamRepo(),
		NewArcherService(archers, seriesRepo),
		NewLockTable(),
		broadcasts,
		logger,
	)
	return &matchFixture{
		service:    service,
		tournament: tournament,
		broadcasts: broadcasts,
		archers:    archers,
		entries:    entries,
	}
}

func TestCreateMatchCreatesSeriesPerArcher(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)

	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1, 2})
	require.NoError(t, err)

	assert.Equal(t, models.StageQualifiers, match.Stage)
	require.Len(t, match.Series, 2)
	for _, s := range match.Series {
		assert.Equal(t, match.ID, s.MatchID)
		assert.NotZero(t, s.ID)
	}
}

func TestCreateMatchRejectsUnenteredArcher(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)

	_, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1, 99})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestCreateMatchRejectsMoreArchersThanTargets(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	f.tournament.TargetCount = 1

	_, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1, 2})
	assert.ErrorIs(t, err, ErrTargetCountExceeded)

	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	require.NoError(t, err)
	assert.Len(t, match.Series, 1)
}

func TestCreateMatchRejectsClosedTournament(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	f.tournament.Status = models.StatusCancelled

	_, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	assert.ErrorIs(t, err, scoring.ErrTournamentClosed)
}

func TestCreateMatchTieBreakRequiresFlaggedArchers(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	f.tournament.CurrentStage = models.StageQualifiersTieBreak
	f.entries.entries[0].TieBreakQualifiers = true

	_, err := f.service.CreateMatch(context.Background(), 1, models.MatchEnkin, []int{1, 2})
	assert.ErrorIs(t, err, ErrParticipantNotInTieBreak)

	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchEnkin, []int{1})
	require.NoError(t, err)
	assert.Len(t, match.Series, 1)
}

func TestSubmitArrowRecordsAndUpdatesAccuracy(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1, 2})
	require.NoError(t, err)

	series, err := f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeHit)
	require.NoError(t, err)
	assert.Equal(t, "1", series.ArrowsRaw)

	series, err = f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeMiss)
	require.NoError(t, err)
	assert.Equal(t, "10", series.ArrowsRaw)

	archer, err := f.archers.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, archer.Accuracy, 1e-9)
}

func TestSubmitArrowFinishesMatchOnLastArrow(t *testing.T) {
	// Emperor shortens the standard round to two arrows.
	f := newMatchFixture(t, models.TournamentEmperor)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	require.NoError(t, err)

	_, err = f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeHit)
	require.NoError(t, err)
	_, err = f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeHit)
	require.NoError(t, err)

	got, err := f.service.GetMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished)

	_, err = f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeHit)
	assert.ErrorIs(t, err, scoring.ErrMatchAlreadyFinished)
}

func TestReplaceAndGetArrow(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	require.NoError(t, err)

	_, err = f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeMiss)
	require.NoError(t, err)

	series, err := f.service.ReplaceArrow(context.Background(), match.ID, 1, 0, models.OutcomeEnsure)
	require.NoError(t, err)
	assert.Equal(t, "2", series.ArrowsRaw)

	outcome, err := f.service.GetArrow(context.Background(), match.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnsure, outcome)

	_, err = f.service.GetArrow(context.Background(), match.ID, 1, 2)
	assert.ErrorIs(t, err, scoring.ErrIndexOutOfRange)
}

func TestFinishMatchOverride(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	require.NoError(t, err)

	finished, err := f.service.FinishMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.True(t, finished.Finished)

	_, err = f.service.FinishMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, scoring.ErrAlreadyFinished)
}

func TestDeleteMatch(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteMatch(context.Background(), match.ID))
	_, err = f.service.GetMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestConcurrentSubmitsNeverOvershootTheRound(t *testing.T) {
	f := newMatchFixture(t, models.TournamentStandard)
	match, err := f.service.CreateMatch(context.Background(), 1, models.MatchStandard, []int{1, 2})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SubmitArrow(context.Background(), match.ID, 1, models.OutcomeHit)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, scoring.ErrSequenceFull)
			rejected++
		}
	}
	assert.Equal(t, 4, succeeded, "a standard round holds exactly four arrows")
	assert.Equal(t, attempts-4, rejected)

	got, err := f.service.GetMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SeriesFor(1).Len())
}
