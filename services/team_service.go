package services

import (
	"context"
	"errors"

	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/repositories"
)

type TeamService interface {
	// CreateTeam registers a team in a team-format tournament. The team
	// number is assigned automatically.
	CreateTeam(ctx context.Context, tournamentID int, name string) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	ListTeams(ctx context.Context, tournamentID int) ([]models.Team, error)
	AddArcher(ctx context.Context, teamID, archerID int) error
	RemoveArcher(ctx context.Context, teamID, archerID int) error
	DeleteTeam(ctx context.Context, id int) error
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	archerRepo     repositories.ArcherRepository
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	archerRepo repositories.ArcherRepository,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		archerRepo:     archerRepo,
	}
}

func mapTeamRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamMemberConflict):
		return ErrTeamMemberConflict
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrArcherNotFound):
		return ErrArcherNotFound
	}
	return err
}

func (s *teamService) CreateTeam(ctx context.Context, tournamentID int, name string) (*models.Team, error) {
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}
	if tournament.Format != models.FormatTeam {
		return nil, ErrTeamsRequireTeamFormat
	}

	team := &models.Team{TournamentID: tournamentID, Name: name}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		return nil, mapTeamRepoError(err)
	}
	team.Archers = make([]models.Archer, 0)
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, tournamentID int) ([]models.Team, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapTeamRepoError(err)
	}
	return s.teamRepo.ListByTournament(ctx, tournamentID)
}

func (s *teamService) AddArcher(ctx context.Context, teamID, archerID int) error {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		return mapTeamRepoError(err)
	}
	if _, err := s.archerRepo.GetByID(ctx, archerID); err != nil {
		return mapTeamRepoError(err)
	}
	return mapTeamRepoError(s.teamRepo.AddArcher(ctx, teamID, archerID))
}

func (s *teamService) RemoveArcher(ctx context.Context, teamID, archerID int) error {
	return mapTeamRepoError(s.teamRepo.RemoveArcher(ctx, teamID, archerID))
}

func (s *teamService) DeleteTeam(ctx context.Context, id int) error {
	return mapTeamRepoError(s.teamRepo.Delete(ctx, id))
}
