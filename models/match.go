package models

import "time"

// MatchFormat selects how many arrows each archer shoots per series. An
// emperor-type tournament reuses the standard format with a halved round.
type MatchFormat string

const (
	MatchStandard MatchFormat = "standard"
	MatchEnkin    MatchFormat = "enkin"
	MatchIzume    MatchFormat = "izume"
)

func (f MatchFormat) Valid() bool {
	switch f {
	case MatchStandard, MatchEnkin, MatchIzume:
		return true
	}
	return false
}

// Match is a single contest instance within one tournament stage. It owns
// exactly one series per participating archer.
type Match struct {
	ID           int             `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	Format       MatchFormat     `json:"format" db:"format"`
	Stage        TournamentStage `json:"stage" db:"stage"`
	Finished     bool            `json:"finished" db:"finished"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	Series []*Series `json:"series,omitempty" db:"-"`
}

// SeriesFor returns the series of the given archer, or nil when the archer
// does not shoot in this match.
func (m *Match) SeriesFor(archerID int) *Series {
	for _, s := range m.Series {
		if s.ArcherID == archerID {
			return s
		}
	}
	return nil
}
