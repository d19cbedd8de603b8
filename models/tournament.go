package models

import "time"

// TournamentStage is one phase of a tournament. The tie-break stages are
// entered only when the advancement boundary is ambiguous.
type TournamentStage string

const (
	StageQualifiers         TournamentStage = "qualifiers"
	StageQualifiersTieBreak TournamentStage = "qualifiers_tie_break"
	StageFinals             TournamentStage = "finals"
	StageFinalsTieBreak     TournamentStage = "finals_tie_break"
)

func (s TournamentStage) Valid() bool {
	switch s {
	case StageQualifiers, StageQualifiersTieBreak, StageFinals, StageFinalsTieBreak:
		return true
	}
	return false
}

// IsTieBreak reports whether the stage is a tie-break sub-stage.
func (s TournamentStage) IsTieBreak() bool {
	return s == StageQualifiersTieBreak || s == StageFinalsTieBreak
}

type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusFinished  TournamentStatus = "finished"
	StatusCancelled TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the tournament accepts no further mutations.
func (s TournamentStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// TournamentFormat says whether participants compete individually or in teams.
type TournamentFormat string

const (
	FormatIndividual TournamentFormat = "individual"
	FormatTeam       TournamentFormat = "team"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatIndividual || f == FormatTeam
}

// TournamentType distinguishes the regular competition from the emperor
// variant, which shortens the standard round to two arrows.
type TournamentType string

const (
	TournamentStandard TournamentType = "standard"
	TournamentEmperor  TournamentType = "emperor"
)

func (t TournamentType) Valid() bool {
	return t == TournamentStandard || t == TournamentEmperor
}

// Tournament owns its participants, teams and matches. CurrentStage is
// mutated only by the progression transition, never by ad hoc writes.
type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	StartDate            time.Time        `json:"start_date" db:"start_date"`
	EndDate              time.Time        `json:"end_date" db:"end_date"`
	Format               TournamentFormat `json:"format" db:"format"`
	Type                 TournamentType   `json:"type" db:"type"`
	Status               TournamentStatus `json:"status" db:"status"`
	CurrentStage         TournamentStage  `json:"current_stage" db:"current_stage"`
	AdvancingCount       *int             `json:"advancing_count" db:"advancing_count"` // nil: everyone advances
	QualifiersRoundCount int              `json:"qualifiers_round_count" db:"qualifiers_round_count"`
	FinalsRoundCount     int              `json:"finals_round_count" db:"finals_round_count"`
	TargetCount          int              `json:"target_count" db:"target_count"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`

	Archers []TournamentArcher `json:"archers,omitempty" db:"-"`
	Teams   []Team             `json:"teams,omitempty" db:"-"`
	Matches []*Match           `json:"matches,omitempty" db:"-"`
}

// Paginated mirrors the listing envelope the client renders.
type Paginated[T any] struct {
	Count      int `json:"count"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Limit      int `json:"limit"`
	Data       []T `json:"data"`
}
