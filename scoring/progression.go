package scoring

import (
	"fmt"

	"github.com/ToguyC/seisha/models"
)

// Advance applies a stage result to the tournament: qualifiers feed the
// finals, an ambiguous cut detours through the matching tie-break stage, and
// a resolved finals result finishes the tournament. A tie-break stage that
// is still tied stays where it is; another sudden-death round is expected.
//
// Only a result computed for the tournament's current stage is accepted, and
// a finished or cancelled tournament rejects every transition.
func Advance(t *models.Tournament, res *StageResult) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: tournament %d is %s", ErrTournamentClosed, t.ID, t.Status)
	}
	if res.Stage != t.CurrentStage {
		return fmt.Errorf("%w: result for %s, tournament at %s", ErrStageMismatch, res.Stage, t.CurrentStage)
	}

	switch t.CurrentStage {
	case models.StageQualifiers:
		if res.TieBreakerNeeded {
			t.CurrentStage = models.StageQualifiersTieBreak
		} else {
			t.CurrentStage = models.StageFinals
		}
	case models.StageQualifiersTieBreak:
		if !res.TieBreakerNeeded {
			t.CurrentStage = models.StageFinals
		}
	case models.StageFinals:
		if res.TieBreakerNeeded {
			t.CurrentStage = models.StageFinalsTieBreak
		} else {
			t.Status = models.StatusFinished
		}
	case models.StageFinalsTieBreak:
		if !res.TieBreakerNeeded {
			t.Status = models.StatusFinished
		}
	default:
		return fmt.Errorf("%w: unknown stage %q", ErrStageMismatch, t.CurrentStage)
	}
	return nil
}

// Cancel moves the tournament to the absorbing cancelled state.
func Cancel(t *models.Tournament) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: tournament %d is %s", ErrTournamentClosed, t.ID, t.Status)
	}
	t.Status = models.StatusCancelled
	return nil
}
