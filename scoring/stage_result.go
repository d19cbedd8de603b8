package scoring

import (
	"fmt"
	"sort"

	"github.com/ToguyC/seisha/models"
)

// ParticipantTotal is one participant's aggregated hit count for a stage.
// The id is an archer id in individual tournaments and a team id in team
// tournaments.
type ParticipantTotal struct {
	ID       int `json:"id"`
	HitCount int `json:"hit_count"`
}

// StageResult ranks the participants of one stage and flags an ambiguous cut
// at the advancement boundary. Repeated computation over the same finished
// matches yields the identical result.
type StageResult struct {
	Stage            models.TournamentStage `json:"stage"`
	Ranking          []ParticipantTotal     `json:"ranking"`
	Advancing        []ParticipantTotal     `json:"advancing_participants"`
	Tied             []ParticipantTotal     `json:"tied_participants,omitempty"`
	TieBreakerNeeded bool                   `json:"tie_breaker_needed"`
}

// StageTotals sums per-archer hits across the finished matches of one stage.
// A match from another stage or a match still in progress invalidates the
// whole computation.
func StageTotals(matches []*models.Match, stage models.TournamentStage) (map[int]int, error) {
	totals := make(map[int]int)
	for _, m := range matches {
		if m.Stage != stage {
			return nil, fmt.Errorf("%w: match %d belongs to %s, want %s", ErrStageMismatch, m.ID, m.Stage, stage)
		}
		if !m.Finished {
			return nil, fmt.Errorf("%w: match %d", ErrMatchNotFinished, m.ID)
		}
		for id, hits := range HitTotals(m) {
			totals[id] += hits
		}
	}
	return totals, nil
}

// ComputeStageResult ranks totals descending and determines the advancing
// set for the given cut. Equal hit counts are never broken by a secondary
// key: when the boundary spans more equal scores than there are remaining
// slots, the subset is reported tied and a tie-break round is required.
// A nil advancingCount means every participant advances.
func ComputeStageResult(stage models.TournamentStage, totals map[int]int, advancingCount *int) (*StageResult, error) {
	if len(totals) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyStage, stage)
	}

	ranking := make([]ParticipantTotal, 0, len(totals))
	for id, hits := range totals {
		ranking = append(ranking, ParticipantTotal{ID: id, HitCount: hits})
	}
	// Hits descending; id ascending among equals for a stable presentation
	// order. Equal scores remain tied, the id is not a tie-breaker.
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].HitCount != ranking[j].HitCount {
			return ranking[i].HitCount > ranking[j].HitCount
		}
		return ranking[i].ID < ranking[j].ID
	})

	res := &StageResult{Stage: stage, Ranking: ranking}
	if advancingCount == nil {
		res.Advancing = ranking
		return res, nil
	}

	n := *advancingCount
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAdvancingCount, n)
	}
	if n > len(ranking) {
		return nil, fmt.Errorf("%w: advancing %d of %d", ErrAdvancingCountExceedsParticipants, n, len(ranking))
	}

	boundary := ranking[n-1].HitCount
	var above, atBoundary []ParticipantTotal
	for _, p := range ranking {
		switch {
		case p.HitCount > boundary:
			above = append(above, p)
		case p.HitCount == boundary:
			atBoundary = append(atBoundary, p)
		}
	}

	if len(atBoundary) == n-len(above) {
		res.Advancing = ranking[:n]
		return res, nil
	}

	// More participants sit on the boundary score than there are slots left:
	// no unambiguous cut exists.
	res.TieBreakerNeeded = true
	res.Advancing = above
	res.Tied = atBoundary
	return res, nil
}
