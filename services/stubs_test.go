package services

import (
	"context"
	"sync"
	"time"

	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/repositories"
)

// In-memory repository fakes backing the service tests. They share pointers
// with the caller the way loaded rows would share state within one request.

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) BroadcastToRoom(room, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match.ID = r.nextID
	r.nextID++
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, stage *models.TournamentStage) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if stage != nil && m.Stage != *stage {
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (r *fakeMatchRepo) SetFinished(ctx context.Context, exec repositories.SQLExecutor, id int, finished bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Finished = finished
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeSeriesRepo struct {
	mu     sync.Mutex
	nextID int
	series []*models.Series
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{nextID: 1}
}

func (r *fakeSeriesRepo) Create(ctx context.Context, exec repositories.SQLExecutor, series *models.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	series.ID = r.nextID
	r.nextID++
	r.series = append(r.series, series)
	return nil
}

func (r *fakeSeriesRepo) GetByMatchAndArcher(ctx context.Context, matchID, archerID int) (*models.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.series {
		if s.MatchID == matchID && s.ArcherID == archerID {
			return s, nil
		}
	}
	return nil, repositories.ErrSeriesNotFound
}

func (r *fakeSeriesRepo) ListByArcher(ctx context.Context, archerID int) ([]*models.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*models.Series, 0)
	for _, s := range r.series {
		if s.ArcherID == archerID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (r *fakeSeriesRepo) UpdateArrows(ctx context.Context, exec repositories.SQLExecutor, series *models.Series) error {
	return nil // the fake shares pointers, the write already happened
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = len(r.tournaments) + 1
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) ListPaginated(ctx context.Context, limit, offset int) ([]*models.Tournament, int, error) {
	return nil, 0, nil
}

func (r *fakeTournamentRepo) ListByStatus(ctx context.Context, status models.TournamentStatus) ([]*models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) ListAutoStatusCandidates(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	return nil
}

func (r *fakeTournamentRepo) UpdateStageStatus(ctx context.Context, exec repositories.SQLExecutor, id int, stage models.TournamentStage, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentStage = stage
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tournaments, id)
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []models.TournamentArcher
}

func (r *fakeEntryRepo) Add(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int) (*models.TournamentArcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TournamentID == tournamentID && e.ArcherID == archerID {
			return nil, repositories.ErrEntryConflict
		}
	}
	entry := models.TournamentArcher{
		TournamentID: tournamentID,
		ArcherID:     archerID,
		Number:       len(r.entries) + 1,
	}
	r.entries = append(r.entries, entry)
	return &entry, nil
}

func (r *fakeEntryRepo) Get(ctx context.Context, tournamentID, archerID int) (*models.TournamentArcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].TournamentID == tournamentID && r.entries[i].ArcherID == archerID {
			return &r.entries[i], nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (r *fakeEntryRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentArcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]models.TournamentArcher, 0)
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (r *fakeEntryRepo) ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.TournamentArcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	list := make([]models.TournamentArcher, 0)
	for _, e := range r.entries {
		if e.TournamentID != tournamentID {
			continue
		}
		if (finals && e.TieBreakFinals) || (!finals && e.TieBreakQualifiers) {
			list = append(list, e)
		}
	}
	return list, nil
}

func (r *fakeEntryRepo) Remove(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.TournamentID == tournamentID && e.ArcherID == archerID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

func (r *fakeEntryRepo) SetQualifiersPlace(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int, place *int) error {
	return r.set(tournamentID, archerID, func(e *models.TournamentArcher) { e.QualifiersPlace = place })
}

func (r *fakeEntryRepo) SetFinalsPlace(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int, place *int) error {
	return r.set(tournamentID, archerID, func(e *models.TournamentArcher) { e.FinalsPlace = place })
}

func (r *fakeEntryRepo) SetTieBreak(ctx context.Context, exec repositories.SQLExecutor, tournamentID, archerID int, stage models.TournamentStage, flagged bool) error {
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	return r.set(tournamentID, archerID, func(e *models.TournamentArcher) {
		if finals {
			e.TieBreakFinals = flagged
		} else {
			e.TieBreakQualifiers = flagged
		}
	})
}

func (r *fakeEntryRepo) ClearTieBreak(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, stage models.TournamentStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	for i := range r.entries {
		if r.entries[i].TournamentID != tournamentID {
			continue
		}
		if finals {
			r.entries[i].TieBreakFinals = false
		} else {
			r.entries[i].TieBreakQualifiers = false
		}
	}
	return nil
}

func (r *fakeEntryRepo) set(tournamentID, archerID int, apply func(*models.TournamentArcher)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].TournamentID == tournamentID && r.entries[i].ArcherID == archerID {
			apply(&r.entries[i])
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

type fakeTeamRepo struct {
	mu      sync.Mutex
	teams   map[int]*models.Team
	members map[int]int // archer id -> team id
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team), members: make(map[int]int)}
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team.ID = len(r.teams) + 1
	team.Number = team.ID
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return t, nil
}

func (r *fakeTeamRepo) ListByTournament(ctx context.Context, tournamentID int) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]models.Team, 0)
	for _, t := range r.teams {
		if t.TournamentID == tournamentID {
			list = append(list, *t)
		}
	}
	return list, nil
}

func (r *fakeTeamRepo) ListTieBreak(ctx context.Context, tournamentID int, stage models.TournamentStage) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	list := make([]models.Team, 0)
	for _, t := range r.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		if (finals && t.TieBreakFinals) || (!finals && t.TieBreakQualifiers) {
			list = append(list, *t)
		}
	}
	return list, nil
}

func (r *fakeTeamRepo) AddArcher(ctx context.Context, teamID, archerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[archerID]; ok {
		return repositories.ErrTeamMemberConflict
	}
	r.members[archerID] = teamID
	return nil
}

func (r *fakeTeamRepo) RemoveArcher(ctx context.Context, teamID, archerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, archerID)
	return nil
}

func (r *fakeTeamRepo) MemberMap(ctx context.Context, tournamentID int) (map[int]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make(map[int]int, len(r.members))
	for archerID, teamID := range r.members {
		members[archerID] = teamID
	}
	return members, nil
}

func (r *fakeTeamRepo) SetQualifiersPlace(ctx context.Context, exec repositories.SQLExecutor, teamID int, place *int) error {
	return r.setTeam(teamID, func(t *models.Team) { t.QualifiersPlace = place })
}

func (r *fakeTeamRepo) SetFinalsPlace(ctx context.Context, exec repositories.SQLExecutor, teamID int, place *int) error {
	return r.setTeam(teamID, func(t *models.Team) { t.FinalsPlace = place })
}

func (r *fakeTeamRepo) SetTieBreak(ctx context.Context, exec repositories.SQLExecutor, teamID int, stage models.TournamentStage, flagged bool) error {
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	return r.setTeam(teamID, func(t *models.Team) {
		if finals {
			t.TieBreakFinals = flagged
		} else {
			t.TieBreakQualifiers = flagged
		}
	})
}

func (r *fakeTeamRepo) ClearTieBreak(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, stage models.TournamentStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	finals := stage == models.StageFinals || stage == models.StageFinalsTieBreak
	for _, t := range r.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		if finals {
			t.TieBreakFinals = false
		} else {
			t.TieBreakQualifiers = false
		}
	}
	return nil
}

func (r *fakeTeamRepo) setTeam(teamID int, apply func(*models.Team)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	apply(t)
	return nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type fakeArcherRepo struct {
	mu      sync.Mutex
	archers map[int]*models.Archer
}

func newFakeArcherRepo(archers ...*models.Archer) *fakeArcherRepo {
	r := &fakeArcherRepo{archers: make(map[int]*models.Archer)}
	for _, a := range archers {
		r.archers[a.ID] = a
	}
	return r
}

func (r *fakeArcherRepo) Create(ctx context.Context, archer *models.Archer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	archer.ID = len(r.archers) + 1
	r.archers[archer.ID] = archer
	return nil
}

func (r *fakeArcherRepo) GetByID(ctx context.Context, id int) (*models.Archer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.archers[id]
	if !ok {
		return nil, repositories.ErrArcherNotFound
	}
	return a, nil
}

func (r *fakeArcherRepo) List(ctx context.Context) ([]*models.Archer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*models.Archer, 0, len(r.archers))
	for _, a := range r.archers {
		list = append(list, a)
	}
	return list, nil
}

func (r *fakeArcherRepo) ListPaginated(ctx context.Context, limit, offset int) ([]*models.Archer, int, error) {
	list, _ := r.List(ctx)
	return list, len(list), nil
}

func (r *fakeArcherRepo) Update(ctx context.Context, archer *models.Archer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.archers[archer.ID]; !ok {
		return repositories.ErrArcherNotFound
	}
	r.archers[archer.ID] = archer
	return nil
}

func (r *fakeArcherRepo) UpdateAccuracy(ctx context.Context, exec repositories.SQLExecutor, id int, accuracy float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.archers[id]
	if !ok {
		return repositories.ErrArcherNotFound
	}
	a.Accuracy = accuracy
	return nil
}

func (r *fakeArcherRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.archers[id]; !ok {
		return repositories.ErrArcherNotFound
	}
	delete(r.archers, id)
	return nil
}
