package scoring

import "errors"

// Kind classifies engine failures by what the caller should do with them:
// validation errors and computation errors are caller or configuration bugs,
// state conflicts mean the operation arrived against a closed or mismatched
// state. None of them is transient, so nothing here is retried.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindStateConflict
	KindComputation
)

var (
	// Validation
	ErrInvalidOutcome        = errors.New("outcome is not a recordable value")
	ErrInvalidFormat         = errors.New("unknown match format")
	ErrEmptyParticipantSet   = errors.New("match requires at least one participant")
	ErrDuplicateParticipant  = errors.New("duplicate participant in match")
	ErrUnknownParticipant    = errors.New("archer has no series in this match")
	ErrIndexOutOfRange       = errors.New("arrow index was never recorded")
	ErrInvalidAdvancingCount = errors.New("advancing count must be positive")
	ErrSequenceFull          = errors.New("series already holds the format's full arrow count")

	// State conflicts
	ErrMatchAlreadyFinished = errors.New("match is finished, arrow writes are rejected")
	ErrAlreadyFinished      = errors.New("match is already finished")
	ErrMatchNotFinished     = errors.New("match is not finished")
	ErrStageMismatch        = errors.New("stage does not match the tournament's current stage")
	ErrTournamentClosed     = errors.New("tournament is finished or cancelled")

	// Computation / configuration
	ErrEmptyStage                        = errors.New("stage has no participants")
	ErrAdvancingCountExceedsParticipants = errors.New("advancing count exceeds participant count")
)

// KindOf reports the failure class of an engine error.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidOutcome),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrEmptyParticipantSet),
		errors.Is(err, ErrDuplicateParticipant),
		errors.Is(err, ErrUnknownParticipant),
		errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrInvalidAdvancingCount),
		errors.Is(err, ErrSequenceFull):
		return KindValidation
	case errors.Is(err, ErrMatchAlreadyFinished),
		errors.Is(err, ErrAlreadyFinished),
		errors.Is(err, ErrMatchNotFinished),
		errors.Is(err, ErrStageMismatch),
		errors.Is(err, ErrTournamentClosed):
		return KindStateConflict
	case errors.Is(err, ErrEmptyStage),
		errors.Is(err, ErrAdvancingCountExceedsParticipants):
		return KindComputation
	}
	return KindUnknown
}
