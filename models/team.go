package models

import "time"

// Team is a named group of archers competing together in one team-format
// tournament. It carries the same per-tournament projection as an
// individual entry.
type Team struct {
	ID                 int       `json:"id" db:"id"`
	TournamentID       int       `json:"tournament_id" db:"tournament_id"`
	Name               string    `json:"name" db:"name"`
	Number             int       `json:"number" db:"number"`
	QualifiersPlace    *int      `json:"qualifiers_place" db:"qualifiers_place"`
	FinalsPlace        *int      `json:"finals_place" db:"finals_place"`
	TieBreakQualifiers bool      `json:"tie_break_qualifiers" db:"tie_break_qualifiers"`
	TieBreakFinals     bool      `json:"tie_break_finals" db:"tie_break_finals"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`

	Archers []Archer `json:"archers,omitempty" db:"-"`
}
