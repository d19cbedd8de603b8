package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToguyC/seisha/models"
)

func intPtr(n int) *int { return &n }

func finishedMatch(t *testing.T, stage models.TournamentStage, scores map[int]string) *models.Match {
	t.Helper()
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	m, err := NewMatch(models.MatchStandard, stage, ids)
	require.NoError(t, err)
	for _, s := range m.Series {
		s.ArrowsRaw = scores[s.ArcherID]
	}
	m.Finished = true
	return m
}

func TestStageTotalsSumsAcrossMatches(t *testing.T) {
	stage := models.StageQualifiers
	m1 := finishedMatch(t, stage, map[int]string{1: "1111", 2: "1000"})
	m2 := finishedMatch(t, stage, map[int]string{1: "0001", 2: "1121"})

	totals, err := StageTotals([]*models.Match{m1, m2}, stage)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 5, 2: 5}, totals)
}

func TestStageTotalsRejectsForeignStage(t *testing.T) {
	m := finishedMatch(t, models.StageFinals, map[int]string{1: "1111"})
	_, err := StageTotals([]*models.Match{m}, models.StageQualifiers)
	assert.ErrorIs(t, err, ErrStageMismatch)
}

func TestStageTotalsRejectsUnfinishedMatch(t *testing.T) {
	m := finishedMatch(t, models.StageQualifiers, map[int]string{1: "11"})
	m.Finished = false
	_, err := StageTotals([]*models.Match{m}, models.StageQualifiers)
	assert.ErrorIs(t, err, ErrMatchNotFinished)
}

func TestComputeStageResultCleanCut(t *testing.T) {
	// Two equal leaders still fit the two slots: no tie-break.
	totals := map[int]int{1: 5, 2: 5, 3: 4, 4: 3}
	res, err := ComputeStageResult(models.StageQualifiers, totals, intPtr(2))
	require.NoError(t, err)

	assert.False(t, res.TieBreakerNeeded)
	assert.Empty(t, res.Tied)
	require.Len(t, res.Advancing, 2)
	assert.Equal(t, 1, res.Advancing[0].ID)
	assert.Equal(t, 2, res.Advancing[1].ID)
}

func TestComputeStageResultAmbiguousBoundary(t *testing.T) {
	// Three archers share the boundary score for two slots.
	totals := map[int]int{1: 5, 2: 5, 3: 5, 4: 3}
	res, err := ComputeStageResult(models.StageQualifiers, totals, intPtr(2))
	require.NoError(t, err)

	assert.True(t, res.TieBreakerNeeded)
	assert.Empty(t, res.Advancing)
	require.Len(t, res.Tied, 3)
	for _, p := range res.Tied {
		assert.Equal(t, 5, p.HitCount)
	}
}

func TestComputeStageResultPartialCut(t *testing.T) {
	// The leader is clear, the second slot is contested.
	totals := map[int]int{1: 6, 2: 4, 3: 4, 4: 1}
	res, err := ComputeStageResult(models.StageQualifiers, totals, intPtr(2))
	require.NoError(t, err)

	assert.True(t, res.TieBreakerNeeded)
	require.Len(t, res.Advancing, 1)
	assert.Equal(t, 1, res.Advancing[0].ID)
	require.Len(t, res.Tied, 2)
}

func TestComputeStageResultSingleWinner(t *testing.T) {
	totals := map[int]int{1: 5, 2: 4, 3: 4, 4: 3}
	res, err := ComputeStageResult(models.StageFinals, totals, intPtr(1))
	require.NoError(t, err)

	assert.False(t, res.TieBreakerNeeded)
	require.Len(t, res.Advancing, 1)
	assert.Equal(t, 1, res.Advancing[0].ID)
}

func TestComputeStageResultNilCountAdvancesEveryone(t *testing.T) {
	totals := map[int]int{1: 5, 2: 5, 3: 0}
	res, err := ComputeStageResult(models.StageQualifiers, totals, nil)
	require.NoError(t, err)

	assert.False(t, res.TieBreakerNeeded)
	assert.Len(t, res.Advancing, 3)
}

func TestComputeStageResultErrors(t *testing.T) {
	_, err := ComputeStageResult(models.StageQualifiers, map[int]int{}, nil)
	assert.ErrorIs(t, err, ErrEmptyStage)

	totals := map[int]int{1: 5, 2: 3}
	_, err = ComputeStageResult(models.StageQualifiers, totals, intPtr(0))
	assert.ErrorIs(t, err, ErrInvalidAdvancingCount)

	_, err = ComputeStageResult(models.StageQualifiers, totals, intPtr(3))
	assert.ErrorIs(t, err, ErrAdvancingCountExceedsParticipants)
}

func TestComputeStageResultDeterministicRanking(t *testing.T) {
	totals := map[int]int{5: 3, 2: 7, 9: 3, 1: 7}
	first, err := ComputeStageResult(models.StageQualifiers, totals, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ComputeStageResult(models.StageQualifiers, totals, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Ranking, again.Ranking)
	}

	// Hits descending, id ascending among equals.
	ids := make([]int, len(first.Ranking))
	for i, p := range first.Ranking {
		ids[i] = p.ID
	}
	assert.Equal(t, []int{1, 2, 5, 9}, ids)
}
