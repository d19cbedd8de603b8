package scoring

import (
	"fmt"

	"github.com/ToguyC/seisha/models"
)

// NewMatch builds a match for the given stage with one empty series per
// participating archer.
func NewMatch(format models.MatchFormat, stage models.TournamentStage, archerIDs []int) (*models.Match, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
	if len(archerIDs) == 0 {
		return nil, ErrEmptyParticipantSet
	}
	seen := make(map[int]struct{}, len(archerIDs))
	m := &models.Match{Format: format, Stage: stage}
	for _, id := range archerIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: archer %d", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
		m.Series = append(m.Series, &models.Series{ArcherID: id})
	}
	return m, nil
}

// RecordArrow appends one outcome to the archer's series. When this was the
// last outstanding arrow across all series, the match flips to finished.
func RecordArrow(m *models.Match, archerID int, outcome models.HitOutcome, arrowsPerRound int) (*models.Series, error) {
	if m.Finished {
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyFinished, m.ID)
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, outcome)
	}
	s := m.SeriesFor(archerID)
	if s == nil {
		return nil, fmt.Errorf("%w: archer %d in match %d", ErrUnknownParticipant, archerID, m.ID)
	}
	arrows, err := s.Arrows()
	if err != nil {
		return nil, err
	}
	if len(arrows) >= arrowsPerRound {
		return nil, fmt.Errorf("%w: archer %d already shot %d of %d arrows", ErrSequenceFull, archerID, len(arrows), arrowsPerRound)
	}
	s.ArrowsRaw = models.EncodeArrows(append(arrows, outcome))
	if IsFinished(m, arrowsPerRound) {
		m.Finished = true
	}
	return s, nil
}

// ReplaceArrow overwrites one already-recorded outcome. Only indexes that
// were actually written can be replaced, and a finished match stays frozen.
func ReplaceArrow(m *models.Match, archerID, index int, outcome models.HitOutcome) (*models.Series, error) {
	if m.Finished {
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyFinished, m.ID)
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, outcome)
	}
	s := m.SeriesFor(archerID)
	if s == nil {
		return nil, fmt.Errorf("%w: archer %d in match %d", ErrUnknownParticipant, archerID, m.ID)
	}
	arrows, err := s.Arrows()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(arrows) {
		return nil, fmt.Errorf("%w: index %d, %d arrows recorded", ErrIndexOutOfRange, index, len(arrows))
	}
	arrows[index] = outcome
	s.ArrowsRaw = models.EncodeArrows(arrows)
	return s, nil
}

// ArrowAt fetches one recorded outcome by index.
func ArrowAt(m *models.Match, archerID, index int) (models.HitOutcome, error) {
	s := m.SeriesFor(archerID)
	if s == nil {
		return 0, fmt.Errorf("%w: archer %d in match %d", ErrUnknownParticipant, archerID, m.ID)
	}
	arrows, err := s.Arrows()
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(arrows) {
		return 0, fmt.Errorf("%w: index %d, %d arrows recorded", ErrIndexOutOfRange, index, len(arrows))
	}
	return arrows[index], nil
}

// IsFinished reports whether every series holds the full arrow count.
func IsFinished(m *models.Match, arrowsPerRound int) bool {
	for _, s := range m.Series {
		if s.Len() < arrowsPerRound {
			return false
		}
	}
	return len(m.Series) > 0
}

// Finish marks the match finished. The transition normally fires on the
// last arrow write; calling it directly is the administrative override.
func Finish(m *models.Match) error {
	if m.Finished {
		return fmt.Errorf("%w: match %d", ErrAlreadyFinished, m.ID)
	}
	m.Finished = true
	return nil
}

// HitTotals maps each participating archer to the hit count of their series.
func HitTotals(m *models.Match) map[int]int {
	totals := make(map[int]int, len(m.Series))
	for _, s := range m.Series {
		totals[s.ArcherID] = s.HitCount()
	}
	return totals
}
