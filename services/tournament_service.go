package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ToguyC/seisha/live"
	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/repositories"
	"github.com/ToguyC/seisha/scoring"
)

type CreateTournamentInput struct {
	Name                 string                  `json:"name"`
	StartDate            time.Time               `json:"start_date"`
	EndDate              time.Time               `json:"end_date"`
	Format               models.TournamentFormat `json:"format"`
	Type                 models.TournamentType   `json:"type"`
	AdvancingCount       *int                    `json:"advancing_count"`
	QualifiersRoundCount int                     `json:"qualifiers_round_count"`
	FinalsRoundCount     int                     `json:"finals_round_count"`
	TargetCount          int                     `json:"target_count"`
}

// NextStageInput is the client's view of the stage outcome. The engine
// recomputes the result from the recorded matches and refuses to advance when
// the two disagree.
type NextStageInput struct {
	AdvancingParticipants []scoring.ParticipantTotal `json:"advancing_participants"`
	TieBreakerNeeded      bool                       `json:"tie_breaker_needed"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	// GetTournamentByID returns the tournament with entries, teams and
	// matches loaded.
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournamentsPaginated(ctx context.Context, limit, page int) (*models.Paginated[*models.Tournament], error)
	ListLiveTournaments(ctx context.Context) ([]*models.Tournament, error)
	UpdateTournament(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	CancelTournament(ctx context.Context, id int) (*models.Tournament, error)

	AddArcher(ctx context.Context, tournamentID, archerID int) (*models.TournamentArcher, error)
	RemoveArcher(ctx context.Context, tournamentID, archerID int) error

	// NextStage recomputes the current stage's result, validates it against
	// the client's view and applies the transition: places, tie-break flags
	// and the new stage in one transaction.
	NextStage(ctx context.Context, tournamentID int, input NextStageInput) (*scoring.StageResult, error)
	// TieBreakParticipants lists who still has to shoot the pending
	// tie-break round of the current stage.
	TieBreakParticipants(ctx context.Context, tournamentID int) ([]scoring.ParticipantTotal, error)

	// AutoUpdateStatusesByDates flips upcoming tournaments to live once their
	// start date passes. Called periodically by the scheduler.
	AutoUpdateStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	archerRepo     repositories.ArcherRepository
	locks          *LockTable
	hub            Broadcaster
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	archerRepo repositories.ArcherRepository,
	locks *LockTable,
	hub Broadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		archerRepo:     archerRepo,
		locks:          locks,
		hub:            hub,
		logger:         logger,
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrArcherNotFound):
		return ErrArcherNotFound
	case errors.Is(err, repositories.ErrEntryNotFound):
		return ErrEntryNotFound
	case errors.Is(err, repositories.ErrEntryConflict):
		return ErrEntryConflict
	}
	return err
}

func validateTournamentInput(input CreateTournamentInput) error {
	if input.Name == "" {
		return ErrTournamentNameRequired
	}
	if !input.EndDate.After(input.StartDate) {
		return ErrTournamentInvalidDateRange
	}
	if !input.Format.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTournamentFormat, input.Format)
	}
	if !input.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTournamentType, input.Type)
	}
	if input.TargetCount < 1 {
		return ErrInvalidTargetCount
	}
	if input.AdvancingCount != nil && *input.AdvancingCount < 1 {
		return fmt.Errorf("%w: got %d", scoring.ErrInvalidAdvancingCount, *input.AdvancingCount)
	}
	return nil
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}
	tournament := &models.Tournament{
		Name:                 input.Name,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Format:               input.Format,
		Type:                 input.Type,
		Status:               models.StatusUpcoming,
		CurrentStage:         models.StageQualifiers,
		AdvancingCount:       input.AdvancingCount,
		QualifiersRoundCount: input.QualifiersRoundCount,
		FinalsRoundCount:     input.FinalsRoundCount,
		TargetCount:          input.TargetCount,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.entryRepo.ListByTournament(gctx, id)
		if err != nil {
			return err
		}
		tournament.Archers = entries
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, id, nil)
		if err != nil {
			return err
		}
		tournament.Matches = matches
		return nil
	})
	if tournament.Format == models.FormatTeam {
		g.Go(func() error {
			teams, err := s.teamRepo.ListByTournament(gctx, id)
			if err != nil {
				return err
			}
			tournament.Teams = teams
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournamentsPaginated(ctx context.Context, limit, page int) (*models.Paginated[*models.Tournament], error) {
	if limit < 1 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	tournaments, total, err := s.tournamentRepo.ListPaginated(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[*models.Tournament]{
		Count:      len(tournaments),
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		Limit:      limit,
		Data:       tournaments,
	}, nil
}

func (s *tournamentService) ListLiveTournaments(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.ListByStatus(ctx, models.StatusLive)
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status.Terminal() {
		return nil, fmt.Errorf("%w: tournament %d is %s", scoring.ErrTournamentClosed, id, tournament.Status)
	}

	tournament.Name = input.Name
	tournament.StartDate = input.StartDate
	tournament.EndDate = input.EndDate
	tournament.Format = input.Format
	tournament.Type = input.Type
	tournament.AdvancingCount = input.AdvancingCount
	tournament.QualifiersRoundCount = input.QualifiersRoundCount
	tournament.FinalsRoundCount = input.FinalsRoundCount
	tournament.TargetCount = input.TargetCount

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.hub.BroadcastToRoom(room(id), live.EventTournamentUpdated, tournament)
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	return mapTournamentRepoError(s.tournamentRepo.Delete(ctx, id))
}

func (s *tournamentService) CancelTournament(ctx context.Context, id int) (*models.Tournament, error) {
	lock := s.locks.tournament(id)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if err := scoring.Cancel(tournament); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, tournament.Status); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.hub.BroadcastToRoom(room(id), live.EventTournamentUpdated, tournament)
	return tournament, nil
}

func (s *tournamentService) AddArcher(ctx context.Context, tournamentID, archerID int) (*models.TournamentArcher, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status.Terminal() {
		return nil, fmt.Errorf("%w: tournament %d is %s", scoring.ErrTournamentClosed, tournamentID, tournament.Status)
	}
	if _, err := s.archerRepo.GetByID(ctx, archerID); err != nil {
		return nil, mapTournamentRepoError(err)
	}

	entry, err := s.entryRepo.Add(ctx, nil, tournamentID, archerID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.hub.BroadcastToRoom(room(tournamentID), live.EventTournamentUpdated, entry)
	return entry, nil
}

func (s *tournamentService) RemoveArcher(ctx context.Context, tournamentID, archerID int) error {
	// Remove deletes the entry and re-packs the remaining target numbers;
	// both writes belong to one transaction.
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.entryRepo.Remove(ctx, tx, tournamentID, archerID)
	})
	if err != nil {
		return mapTournamentRepoError(err)
	}
	s.hub.BroadcastToRoom(room(tournamentID), live.EventTournamentUpdated,
		map[string]int{"removed_archer_id": archerID})
	return nil
}

func (s *tournamentService) NextStage(ctx context.Context, tournamentID int, input NextStageInput) (*scoring.StageResult, error) {
	// The write lock excludes every arrow write into this tournament while
	// the stage result is computed and applied.
	lock := s.locks.tournament(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status.Terminal() {
		return nil, fmt.Errorf("%w: tournament %d is %s", scoring.ErrTournamentClosed, tournamentID, tournament.Status)
	}

	stage := tournament.CurrentStage
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &stage)
	if err != nil {
		return nil, err
	}

	totals, err := scoring.StageTotals(matches, stage)
	if err != nil {
		return nil, err
	}
	if tournament.Format == models.FormatTeam {
		if totals, err = s.aggregateByTeam(ctx, tournamentID, totals); err != nil {
			return nil, err
		}
	}
	if stage.IsTieBreak() {
		if totals, err = s.restrictToTieBreak(ctx, tournament, totals); err != nil {
			return nil, err
		}
	}

	advancingCount, err := s.effectiveAdvancingCount(ctx, tournament)
	if err != nil {
		return nil, err
	}

	result, err := scoring.ComputeStageResult(stage, totals, advancingCount)
	if err != nil {
		return nil, err
	}
	if err := validateClientResult(result, input); err != nil {
		return nil, err
	}

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.applyResult(ctx, tx, tournament, result); err != nil {
			return err
		}
		if err := scoring.Advance(tournament, result); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStageStatus(ctx, tx, tournamentID, tournament.CurrentStage, tournament.Status)
	}); err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(room(tournamentID), live.EventStageAdvanced, map[string]interface{}{
		"tournament": tournament,
		"result":     result,
	})
	return result, nil
}

// aggregateByTeam folds per-archer hit totals into per-team totals. Every
// shooter must belong to a team; a team with no recorded series scores zero
// only if it never shot, which StageTotals already rules out.
func (s *tournamentService) aggregateByTeam(ctx context.Context, tournamentID int, totals map[int]int) (map[int]int, error) {
	members, err := s.teamRepo.MemberMap(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	teamTotals := make(map[int]int)
	for archerID, hits := range totals {
		teamID, ok := members[archerID]
		if !ok {
			return nil, fmt.Errorf("%w: archer %d", ErrArcherWithoutTeam, archerID)
		}
		teamTotals[teamID] += hits
	}
	return teamTotals, nil
}

// restrictToTieBreak narrows stage totals to the participants still flagged
// for the pending tie-break. Stage totals accumulate over every match of the
// stage, so after a partial resolution an already-placed participant would
// otherwise re-enter the ranking of the next round.
func (s *tournamentService) restrictToTieBreak(ctx context.Context, t *models.Tournament, totals map[int]int) (map[int]int, error) {
	flagged := make(map[int]bool)
	if t.Format == models.FormatTeam {
		teams, err := s.teamRepo.ListTieBreak(ctx, t.ID, t.CurrentStage)
		if err != nil {
			return nil, err
		}
		for _, team := range teams {
			flagged[team.ID] = true
		}
	} else {
		entries, err := s.entryRepo.ListTieBreak(ctx, t.ID, t.CurrentStage)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			flagged[entry.ArcherID] = true
		}
	}

	restricted := make(map[int]int, len(flagged))
	for id, hits := range totals {
		if flagged[id] {
			restricted[id] = hits
		}
	}
	return restricted, nil
}

// effectiveAdvancingCount resolves the cut for the current stage: the
// configured count during qualifiers, a single winner during finals, and the
// still-unfilled slots during a tie-break round.
func (s *tournamentService) effectiveAdvancingCount(ctx context.Context, t *models.Tournament) (*int, error) {
	switch t.CurrentStage {
	case models.StageQualifiers:
		return t.AdvancingCount, nil
	case models.StageFinals:
		one := 1
		return &one, nil
	}

	var cut int
	if t.CurrentStage == models.StageFinalsTieBreak {
		cut = 1
	} else {
		if t.AdvancingCount == nil {
			// Everyone advances when no cut is configured, so a tie-break
			// stage cannot be entered in the first place.
			return nil, fmt.Errorf("%w: tie-break without an advancing count", scoring.ErrStageMismatch)
		}
		cut = *t.AdvancingCount
	}

	places, err := s.assignedPlaces(ctx, t)
	if err != nil {
		return nil, err
	}
	filled := 0
	for p := range places {
		if p <= cut {
			filled++
		}
	}
	remaining := cut - filled
	if remaining < 1 {
		return nil, fmt.Errorf("%w: no open slots left at the cut", scoring.ErrStageMismatch)
	}
	return &remaining, nil
}

// assignedPlaces collects the places already written for the stage family the
// tournament is currently in.
func (s *tournamentService) assignedPlaces(ctx context.Context, t *models.Tournament) (map[int]bool, error) {
	finals := t.CurrentStage == models.StageFinals || t.CurrentStage == models.StageFinalsTieBreak
	places := make(map[int]bool)

	if t.Format == models.FormatTeam {
		teams, err := s.teamRepo.ListByTournament(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, team := range teams {
			place := team.QualifiersPlace
			if finals {
				place = team.FinalsPlace
			}
			if place != nil {
				places[*place] = true
			}
		}
		return places, nil
	}

	entries, err := s.entryRepo.ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		place := entry.QualifiersPlace
		if finals {
			place = entry.FinalsPlace
		}
		if place != nil {
			places[*place] = true
		}
	}
	return places, nil
}

// validateClientResult rejects a submitted outcome that disagrees with the
// one recomputed from the matches.
func validateClientResult(result *scoring.StageResult, input NextStageInput) error {
	if input.TieBreakerNeeded != result.TieBreakerNeeded {
		return fmt.Errorf("%w: tie_breaker_needed is %t, computed %t",
			ErrStageResultMismatch, input.TieBreakerNeeded, result.TieBreakerNeeded)
	}
	if len(input.AdvancingParticipants) != len(result.Advancing) {
		return fmt.Errorf("%w: %d advancing participants submitted, computed %d",
			ErrStageResultMismatch, len(input.AdvancingParticipants), len(result.Advancing))
	}
	computed := make(map[int]int, len(result.Advancing))
	for _, p := range result.Advancing {
		computed[p.ID] = p.HitCount
	}
	for _, p := range input.AdvancingParticipants {
		hits, ok := computed[p.ID]
		if !ok {
			return fmt.Errorf("%w: participant %d is not in the computed advancing set",
				ErrStageResultMismatch, p.ID)
		}
		if hits != p.HitCount {
			return fmt.Errorf("%w: participant %d has %d hits, submitted %d",
				ErrStageResultMismatch, p.ID, hits, p.HitCount)
		}
	}
	return nil
}

// applyResult writes places and tie-break flags for the stage outcome.
// Participants outside an ambiguous boundary get their final place right
// away; the tied subset keeps a nil place and a raised flag until a
// tie-break round resolves it.
func (s *tournamentService) applyResult(ctx context.Context, tx *sql.Tx, t *models.Tournament, result *scoring.StageResult) error {
	basePlace := 1
	if t.CurrentStage.IsTieBreak() {
		// A tie-break round re-ranks only the previously tied block; its
		// places fill the contiguous gap the first pass left open.
		places, err := s.assignedPlaces(ctx, t)
		if err != nil {
			return err
		}
		for places[basePlace] {
			basePlace++
		}
	}

	tied := make(map[int]bool, len(result.Tied))
	for _, p := range result.Tied {
		tied[p.ID] = true
	}

	for i, p := range result.Ranking {
		if tied[p.ID] {
			if err := s.setTieBreakFlag(ctx, tx, t, p.ID, true); err != nil {
				return err
			}
			continue
		}
		place := basePlace + i
		if err := s.setPlace(ctx, tx, t, p.ID, &place); err != nil {
			return err
		}
		if t.CurrentStage.IsTieBreak() {
			if err := s.setTieBreakFlag(ctx, tx, t, p.ID, false); err != nil {
				return err
			}
		}
	}

	if t.CurrentStage.IsTieBreak() && !result.TieBreakerNeeded {
		return s.clearTieBreakFlags(ctx, tx, t)
	}
	return nil
}

func (s *tournamentService) setPlace(ctx context.Context, tx *sql.Tx, t *models.Tournament, participantID int, place *int) error {
	finals := t.CurrentStage == models.StageFinals || t.CurrentStage == models.StageFinalsTieBreak
	if t.Format == models.FormatTeam {
		if finals {
			return s.teamRepo.SetFinalsPlace(ctx, tx, participantID, place)
		}
		return s.teamRepo.SetQualifiersPlace(ctx, tx, participantID, place)
	}
	if finals {
		return s.entryRepo.SetFinalsPlace(ctx, tx, t.ID, participantID, place)
	}
	return s.entryRepo.SetQualifiersPlace(ctx, tx, t.ID, participantID, place)
}

func (s *tournamentService) setTieBreakFlag(ctx context.Context, tx *sql.Tx, t *models.Tournament, participantID int, flagged bool) error {
	if t.Format == models.FormatTeam {
		return s.teamRepo.SetTieBreak(ctx, tx, participantID, t.CurrentStage, flagged)
	}
	return s.entryRepo.SetTieBreak(ctx, tx, t.ID, participantID, t.CurrentStage, flagged)
}

func (s *tournamentService) clearTieBreakFlags(ctx context.Context, tx *sql.Tx, t *models.Tournament) error {
	if t.Format == models.FormatTeam {
		return s.teamRepo.ClearTieBreak(ctx, tx, t.ID, t.CurrentStage)
	}
	return s.entryRepo.ClearTieBreak(ctx, tx, t.ID, t.CurrentStage)
}

func (s *tournamentService) TieBreakParticipants(ctx context.Context, tournamentID int) ([]scoring.ParticipantTotal, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if !tournament.CurrentStage.IsTieBreak() {
		return []scoring.ParticipantTotal{}, nil
	}

	if tournament.Format == models.FormatTeam {
		teams, err := s.teamRepo.ListTieBreak(ctx, tournamentID, tournament.CurrentStage)
		if err != nil {
			return nil, err
		}
		participants := make([]scoring.ParticipantTotal, 0, len(teams))
		for _, team := range teams {
			participants = append(participants, scoring.ParticipantTotal{ID: team.ID})
		}
		return participants, nil
	}

	entries, err := s.entryRepo.ListTieBreak(ctx, tournamentID, tournament.CurrentStage)
	if err != nil {
		return nil, err
	}
	participants := make([]scoring.ParticipantTotal, 0, len(entries))
	for _, entry := range entries {
		participants = append(participants, scoring.ParticipantTotal{ID: entry.ArcherID})
	}
	return participants, nil
}

func (s *tournamentService) AutoUpdateStatusesByDates(ctx context.Context) error {
	now := time.Now()
	candidates, err := s.tournamentRepo.ListAutoStatusCandidates(ctx, now)
	if err != nil {
		return err
	}
	for _, t := range candidates {
		switch {
		case t.Status == models.StatusUpcoming && !t.StartDate.After(now):
			if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, models.StatusLive); err != nil {
				return err
			}
			s.logger.Info("tournament went live", slog.Int("tournament_id", t.ID), slog.String("name", t.Name))
			s.hub.BroadcastToRoom(room(t.ID), live.EventTournamentUpdated, t)
		case t.Status == models.StatusLive && t.EndDate.Before(now):
			// Finishing is a deliberate act via the finals result; a live
			// tournament past its end date is only worth a warning.
			s.logger.Warn("live tournament past its end date",
				slog.Int("tournament_id", t.ID), slog.String("name", t.Name))
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error or panic.
func (s *tournamentService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
