package services

import "errors"

// Errors shared across services and the HTTP mapping. Engine errors
// (sequence full, stage mismatch, tournament closed, ...) are not duplicated
// here: services surface the scoring package's sentinels directly.
var (
	// Not found
	ErrArcherNotFound     = errors.New("archer not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrSeriesNotFound     = errors.New("series not found")
	ErrEntryNotFound      = errors.New("archer is not entered in this tournament")

	// Validation / business rules
	ErrArcherNameRequired         = errors.New("archer name is required")
	ErrInvalidArcherPosition      = errors.New("invalid archer position")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must be after start date")
	ErrInvalidTournamentFormat    = errors.New("invalid tournament format")
	ErrInvalidTournamentType      = errors.New("invalid tournament type")
	ErrInvalidTargetCount         = errors.New("tournament target count must be positive")
	ErrTargetCountExceeded        = errors.New("match participants exceed the tournament's target count")
	ErrTeamNameRequired           = errors.New("team name is required")
	ErrTeamsRequireTeamFormat     = errors.New("teams can only be added to team-format tournaments")
	ErrArcherWithoutTeam          = errors.New("archer shot in a team tournament without a team")
	ErrParticipantNotInTieBreak   = errors.New("participant is not part of the pending tie-break")
	ErrStageResultMismatch        = errors.New("submitted stage result does not match the one computed from the matches")

	// Conflicts
	ErrEntryConflict      = errors.New("archer is already entered in this tournament")
	ErrTeamMemberConflict = errors.New("archer is already a member of this team")
)
