package models

// TournamentArcher is the per-tournament projection of an archer: the target
// number, stage places once a ranking is finalized, and tie-break
// participation flags. Places stay nil until the stage resolves.
type TournamentArcher struct {
	TournamentID       int  `json:"tournament_id" db:"tournament_id"`
	ArcherID           int  `json:"archer_id" db:"archer_id"`
	Number             int  `json:"number" db:"number"`
	QualifiersPlace    *int `json:"qualifiers_place" db:"qualifiers_place"`
	FinalsPlace        *int `json:"finals_place" db:"finals_place"`
	TieBreakQualifiers bool `json:"tie_break_qualifiers" db:"tie_break_qualifiers"`
	TieBreakFinals     bool `json:"tie_break_finals" db:"tie_break_finals"`

	Archer *Archer `json:"archer,omitempty" db:"-"`
}
