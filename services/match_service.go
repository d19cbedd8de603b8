package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ToguyC/seisha/live"
	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/repositories"
	"github.com/ToguyC/seisha/scoring"
)

// Broadcaster pushes tournament events to connected clients. Satisfied by
// *live.Hub.
type Broadcaster interface {
	BroadcastToRoom(room string, event string, payload interface{})
}

type MatchService interface {
	// CreateMatch opens a match for the tournament's current stage with one
	// empty series per listed archer. During a tie-break stage only flagged
	// participants may shoot.
	CreateMatch(ctx context.Context, tournamentID int, format models.MatchFormat, archerIDs []int) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	// SubmitArrow records one outcome for (match, archer) and finishes the
	// match when it was the last outstanding arrow.
	SubmitArrow(ctx context.Context, matchID, archerID int, outcome models.HitOutcome) (*models.Series, error)
	// ReplaceArrow overwrites one already-recorded arrow by index.
	ReplaceArrow(ctx context.Context, matchID, archerID, index int, outcome models.HitOutcome) (*models.Series, error)
	GetArrow(ctx context.Context, matchID, archerID, index int) (models.HitOutcome, error)
	FinishMatch(ctx context.Context, matchID int) (*models.Match, error)
	DeleteMatch(ctx context.Context, matchID int) error
}

type matchService struct {
	matchRepo      repositories.MatchRepository
	seriesRepo     repositories.SeriesRepository
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	teamRepo       repositories.TeamRepository
	archerService  ArcherService
	locks          *LockTable
	hub            Broadcaster
	logger         *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	seriesRepo repositories.SeriesRepository,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	teamRepo repositories.TeamRepository,
	archerService ArcherService,
	locks *LockTable,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:      matchRepo,
		seriesRepo:     seriesRepo,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		teamRepo:       teamRepo,
		archerService:  archerService,
		locks:          locks,
		hub:            hub,
		logger:         logger,
	}
}

func mapMatchRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrSeriesNotFound):
		return ErrSeriesNotFound
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	}
	return err
}

func (s *matchService) CreateMatch(ctx context.Context, tournamentID int, format models.MatchFormat, archerIDs []int) (*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if tournament.Status.Terminal() {
		return nil, fmt.Errorf("%w: tournament %d is %s", scoring.ErrTournamentClosed, tournamentID, tournament.Status)
	}
	// One target per shooter: a match cannot seat more archers than the
	// venue has targets.
	if len(archerIDs) > tournament.TargetCount {
		return nil, fmt.Errorf("%w: %d archers for %d targets", ErrTargetCountExceeded, len(archerIDs), tournament.TargetCount)
	}
	if err := s.checkParticipants(ctx, tournament, archerIDs); err != nil {
		return nil, err
	}

	match, err := scoring.NewMatch(format, tournament.CurrentStage, archerIDs)
	if err != nil {
		return nil, err
	}
	match.TournamentID = tournamentID

	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, mapMatchRepoError(err)
	}
	for _, series := range match.Series {
		series.MatchID = match.ID
		if err := s.seriesRepo.Create(ctx, nil, series); err != nil {
			return nil, mapMatchRepoError(err)
		}
	}

	s.hub.BroadcastToRoom(room(tournamentID), live.EventMatchCreated, match)
	return match, nil
}

// checkParticipants verifies every archer is entered in the tournament and,
// during a tie-break stage, part of the pending tie.
func (s *matchService) checkParticipants(ctx context.Context, tournament *models.Tournament, archerIDs []int) error {
	if tournament.Format == models.FormatTeam {
		members, err := s.teamRepo.MemberMap(ctx, tournament.ID)
		if err != nil {
			return err
		}
		var tied map[int]bool
		if tournament.CurrentStage.IsTieBreak() {
			teams, err := s.teamRepo.ListTieBreak(ctx, tournament.ID, tournament.CurrentStage)
			if err != nil {
				return err
			}
			tied = make(map[int]bool, len(teams))
			for _, t := range teams {
				tied[t.ID] = true
			}
		}
		for _, id := range archerIDs {
			teamID, ok := members[id]
			if !ok {
				return fmt.Errorf("%w: archer %d", ErrEntryNotFound, id)
			}
			if tied != nil && !tied[teamID] {
				return fmt.Errorf("%w: archer %d (team %d)", ErrParticipantNotInTieBreak, id, teamID)
			}
		}
		return nil
	}

	entries, err := s.entryRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return err
	}
	entered := make(map[int]models.TournamentArcher, len(entries))
	for _, e := range entries {
		entered[e.ArcherID] = e
	}
	for _, id := range archerIDs {
		entry, ok := entered[id]
		if !ok {
			return fmt.Errorf("%w: archer %d", ErrEntryNotFound, id)
		}
		if tournament.CurrentStage.IsTieBreak() {
			flagged := entry.TieBreakQualifiers
			if tournament.CurrentStage == models.StageFinalsTieBreak {
				flagged = entry.TieBreakFinals
			}
			if !flagged {
				return fmt.Errorf("%w: archer %d", ErrParticipantNotInTieBreak, id)
			}
		}
	}
	return nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *matchService) SubmitArrow(ctx context.Context, matchID, archerID int, outcome models.HitOutcome) (*models.Series, error) {
	var series *models.Series
	var tournamentID int
	err := s.withMatchLock(ctx, matchID, func(match *models.Match, tournament *models.Tournament) error {
		arrows := scoring.ArrowsPerRound(match.Format, tournament.Type)
		recorded, err := scoring.RecordArrow(match, archerID, outcome, arrows)
		if err != nil {
			return err
		}
		if err := s.seriesRepo.UpdateArrows(ctx, nil, recorded); err != nil {
			return mapMatchRepoError(err)
		}
		if match.Finished {
			if err := s.matchRepo.SetFinished(ctx, nil, match.ID, true); err != nil {
				return mapMatchRepoError(err)
			}
			s.hub.BroadcastToRoom(room(match.TournamentID), live.EventMatchFinished, match)
		}
		series = recorded
		tournamentID = match.TournamentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshAccuracy(ctx, archerID)
	s.hub.BroadcastToRoom(room(tournamentID), live.EventArrowRecorded, series)
	return series, nil
}

func (s *matchService) ReplaceArrow(ctx context.Context, matchID, archerID, index int, outcome models.HitOutcome) (*models.Series, error) {
	var series *models.Series
	var tournamentID int
	err := s.withMatchLock(ctx, matchID, func(match *models.Match, tournament *models.Tournament) error {
		replaced, err := scoring.ReplaceArrow(match, archerID, index, outcome)
		if err != nil {
			return err
		}
		if err := s.seriesRepo.UpdateArrows(ctx, nil, replaced); err != nil {
			return mapMatchRepoError(err)
		}
		series = replaced
		tournamentID = match.TournamentID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshAccuracy(ctx, archerID)
	s.hub.BroadcastToRoom(room(tournamentID), live.EventArrowRecorded, series)
	return series, nil
}

func (s *matchService) GetArrow(ctx context.Context, matchID, archerID, index int) (models.HitOutcome, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return 0, mapMatchRepoError(err)
	}
	return scoring.ArrowAt(match, archerID, index)
}

func (s *matchService) FinishMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var finished *models.Match
	err := s.withMatchLock(ctx, matchID, func(match *models.Match, tournament *models.Tournament) error {
		if err := scoring.Finish(match); err != nil {
			return err
		}
		if err := s.matchRepo.SetFinished(ctx, nil, match.ID, true); err != nil {
			return mapMatchRepoError(err)
		}
		finished = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(room(finished.TournamentID), live.EventMatchFinished, finished)
	return finished, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapMatchRepoError(err)
	}

	lock := s.locks.match(matchID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		return mapMatchRepoError(err)
	}
	s.locks.forgetMatch(matchID)

	s.hub.BroadcastToRoom(room(match.TournamentID), live.EventMatchFinished, map[string]int{"deleted_match_id": matchID})
	return nil
}

// withMatchLock runs fn holding the tournament read lock and the match
// mutex, with the match re-read under the lock so fn sees current state.
func (s *matchService) withMatchLock(ctx context.Context, matchID int, fn func(*models.Match, *models.Tournament) error) error {
	peek, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapMatchRepoError(err)
	}

	tournamentLock := s.locks.tournament(peek.TournamentID)
	tournamentLock.RLock()
	defer tournamentLock.RUnlock()

	matchLock := s.locks.match(matchID)
	matchLock.Lock()
	defer matchLock.Unlock()

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapMatchRepoError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return mapMatchRepoError(err)
	}
	return fn(match, tournament)
}

func (s *matchService) refreshAccuracy(ctx context.Context, archerID int) {
	if err := s.archerService.RecalculateAccuracy(ctx, archerID); err != nil {
		s.logger.Warn("failed to recalculate accuracy",
			slog.Int("archer_id", archerID), slog.Any("error", err))
	}
}

func room(tournamentID int) string {
	return strconv.Itoa(tournamentID)
}
