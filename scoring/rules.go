package scoring

import "github.com/ToguyC/seisha/models"

// ArrowsPerRound returns the fixed arrow count of one series for the given
// match format. The emperor tournament type halves the standard round;
// enkin and izume are always single-arrow formats.
func ArrowsPerRound(format models.MatchFormat, tournamentType models.TournamentType) int {
	switch format {
	case models.MatchEnkin, models.MatchIzume:
		return 1
	case models.MatchStandard:
		if tournamentType == models.TournamentEmperor {
			return 2
		}
		return 4
	default:
		return 4
	}
}
