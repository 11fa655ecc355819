package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/scrimline/tournament-engine/brackets"
	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMatchRepo хранит матчи в памяти и протоколирует мутации.
type fakeMatchRepo struct {
	matches map[string]*models.Match
	byID    map[int]*models.Match

	mapResults       []models.MapResult
	mapResultErr     error
	playerStats      []models.PlayerMatchStats
	statusUpdates    []models.MatchStatus
	winnerUpdates    []int
	slotUpdates      map[int]map[int]int
	vetoUpdates      int
	serverAssigned   *int
	lastReportCalled bool
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{
		matches:     make(map[string]*models.Match),
		byID:        make(map[int]*models.Match),
		slotUpdates: make(map[int]map[int]int),
	}
	for _, m := range matches {
		r.matches[m.Slug] = m
		r.byID[m.ID] = m
	}
	return r
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = len(r.byID) + 1
	r.matches[match.Slug] = match
	r.byID[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetBySlug(ctx context.Context, slug string) (*models.Match, error) {
	if m, ok := r.matches[slug]; ok {
		return m, nil
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0, len(r.byID))
	for _, m := range r.byID {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMatchRepo) GetActiveByServer(ctx context.Context, serverID int) (*models.Match, error) {
	for _, m := range r.byID {
		if m.ServerID != nil && *m.ServerID == serverID && !m.Status.IsTerminal() {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.statusUpdates = append(r.statusUpdates, status)
	if m, ok := r.byID[id]; ok {
		m.Status = status
	}
	return nil
}

func (r *fakeMatchRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID *int, status models.MatchStatus) error {
	if winnerID != nil {
		r.winnerUpdates = append(r.winnerUpdates, *winnerID)
	}
	if m, ok := r.byID[id]; ok {
		m.WinnerID = winnerID
		m.Status = status
	}
	return nil
}

func (r *fakeMatchRepo) UpdateParticipantSlot(ctx context.Context, exec repositories.SQLExecutor, id, slot int, teamID int) error {
	if r.slotUpdates[id] == nil {
		r.slotUpdates[id] = make(map[int]int)
	}
	r.slotUpdates[id][slot] = teamID
	return nil
}

func (r *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	return nil
}

func (r *fakeMatchRepo) SetServer(ctx context.Context, exec repositories.SQLExecutor, id int, serverID *int) error {
	r.serverAssigned = serverID
	if m, ok := r.byID[id]; ok {
		m.ServerID = serverID
	}
	return nil
}

func (r *fakeMatchRepo) UpdateVetoState(ctx context.Context, exec repositories.SQLExecutor, id int, state *models.VetoState) error {
	r.vetoUpdates++
	if m, ok := r.byID[id]; ok {
		m.Veto = state
	}
	return nil
}

func (r *fakeMatchRepo) UpdateLastReport(ctx context.Context, exec repositories.SQLExecutor, id int, reportedAt time.Time, mapNumber int) error {
	r.lastReportCalled = true
	if m, ok := r.byID[id]; ok {
		m.LastReportAt = &reportedAt
		m.CurrentMapNumber = mapNumber
	}
	return nil
}

func (r *fakeMatchRepo) CreateMapResult(ctx context.Context, exec repositories.SQLExecutor, result *models.MapResult) error {
	if r.mapResultErr != nil {
		return r.mapResultErr
	}
	r.mapResults = append(r.mapResults, *result)
	return nil
}

func (r *fakeMatchRepo) ListMapResults(ctx context.Context, matchID int) ([]models.MapResult, error) {
	out := make([]models.MapResult, 0, len(r.mapResults))
	for _, mr := range r.mapResults {
		if mr.MatchID == matchID {
			out = append(out, mr)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) SetMapResultDemo(ctx context.Context, exec repositories.SQLExecutor, matchID, mapNumber int, demoKey string) error {
	for i := range r.mapResults {
		if r.mapResults[i].MatchID == matchID && r.mapResults[i].MapNumber == mapNumber {
			r.mapResults[i].DemoKey = &demoKey
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) CreatePlayerStats(ctx context.Context, exec repositories.SQLExecutor, stats *models.PlayerMatchStats) error {
	r.playerStats = append(r.playerStats, *stats)
	return nil
}

func (r *fakeMatchRepo) ListPlayerStats(ctx context.Context, matchID int) ([]models.PlayerMatchStats, error) {
	out := make([]models.PlayerMatchStats, 0, len(r.playerStats))
	for _, ps := range r.playerStats {
		if ps.MatchID == matchID {
			out = append(out, ps)
		}
	}
	return out, nil
}

// fakeServerRepo симулирует пул серверов и проигранные CAS-гонки.
type fakeServerRepo struct {
	servers   []*models.Server
	claimErrs map[int]error
	claimed   []int
	released  []int
	statuses  map[int]models.ServerStatus
}

func newFakeServerRepo(servers ...*models.Server) *fakeServerRepo {
	return &fakeServerRepo{
		servers:   servers,
		claimErrs: make(map[int]error),
		statuses:  make(map[int]models.ServerStatus),
	}
}

func (r *fakeServerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, server *models.Server) error {
	server.ID = len(r.servers) + 1
	r.servers = append(r.servers, server)
	return nil
}

func (r *fakeServerRepo) GetByID(ctx context.Context, id int) (*models.Server, error) {
	for _, s := range r.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repositories.ErrServerNotFound
}

func (r *fakeServerRepo) ListEnabled(ctx context.Context) ([]*models.Server, error) {
	out := make([]*models.Server, 0, len(r.servers))
	for _, s := range r.servers {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServerRepo) ListFree(ctx context.Context) ([]*models.Server, error) {
	out := make([]*models.Server, 0, len(r.servers))
	for _, s := range r.servers {
		if s.Enabled && s.CurrentMatchID == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServerRepo) Claim(ctx context.Context, exec repositories.SQLExecutor, serverID, matchID int) error {
	if err := r.claimErrs[serverID]; err != nil {
		return err
	}
	r.claimed = append(r.claimed, serverID)
	for _, s := range r.servers {
		if s.ID == serverID {
			id := matchID
			s.CurrentMatchID = &id
		}
	}
	return nil
}

func (r *fakeServerRepo) Release(ctx context.Context, exec repositories.SQLExecutor, serverID int) error {
	r.released = append(r.released, serverID)
	for _, s := range r.servers {
		if s.ID == serverID {
			s.CurrentMatchID = nil
		}
	}
	return nil
}

func (r *fakeServerRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, serverID int, status models.ServerStatus) error {
	r.statuses[serverID] = status
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	t.ID = len(r.tournaments) + 1
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if t, ok := r.tournaments[id]; ok {
		return t, nil
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) GetActive(ctx context.Context) (*models.Tournament, error) {
	for _, t := range r.tournaments {
		if t.Status == models.TournamentSetup || t.Status == models.TournamentInProgress {
			return t, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus, winnerTeamID *int) error {
	if t, ok := r.tournaments[id]; ok {
		t.Status = status
		t.WinnerTeamID = winnerTeamID
	}
	return nil
}

func (r *fakeTournamentRepo) UpdateCurrentRound(ctx context.Context, exec repositories.SQLExecutor, id int, round int) error {
	if t, ok := r.tournaments[id]; ok {
		t.CurrentRound = round
	}
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	delete(r.tournaments, id)
	return nil
}

type fakeTeamRepo struct {
	teams map[int]*models.Team
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[int]*models.Team)}
	for _, t := range teams {
		r.teams[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	team.ID = len(r.teams) + 1
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	if t, ok := r.teams[id]; ok {
		return t, nil
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	out := make([]*models.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTeamRepo) AddToTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID, seed int) error {
	return nil
}

type fakePlayerRepo struct {
	players       map[string]*models.Player
	ratingUpdates map[int][3]float64
	teamMoves     map[int]int
}

func newFakePlayerRepo(players ...*models.Player) *fakePlayerRepo {
	r := &fakePlayerRepo{
		players:       make(map[string]*models.Player),
		ratingUpdates: make(map[int][3]float64),
		teamMoves:     make(map[int]int),
	}
	for _, p := range players {
		r.players[p.SteamID] = p
	}
	return r
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	player.ID = len(r.players) + 1
	r.players[player.SteamID] = player
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	for _, p := range r.players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) UpdateTeam(ctx context.Context, exec repositories.SQLExecutor, id, teamID int) error {
	for _, p := range r.players {
		if p.ID == id {
			moved := teamID
			p.TeamID = &moved
			r.teamMoves[id] = teamID
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) GetBySteamID(ctx context.Context, steamID string) (*models.Player, error) {
	if p, ok := r.players[steamID]; ok {
		return p, nil
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListAll(ctx context.Context) ([]*models.Player, error) {
	out := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePlayerRepo) UpdateRating(ctx context.Context, exec repositories.SQLExecutor, id int, elo int, mu, sigma float64) error {
	r.ratingUpdates[id] = [3]float64{float64(elo), mu, sigma}
	return nil
}

type fakeRatingRepo struct {
	template    *models.RatingTemplate
	templateErr error
	history     []models.RatingHistory
}

func (r *fakeRatingRepo) GetTemplate(ctx context.Context, id int) (*models.RatingTemplate, error) {
	if r.templateErr != nil {
		return nil, r.templateErr
	}
	if r.template == nil {
		return nil, repositories.ErrRatingTemplateNotFound
	}
	return r.template, nil
}

func (r *fakeRatingRepo) CreateHistory(ctx context.Context, exec repositories.SQLExecutor, history *models.RatingHistory) error {
	r.history = append(r.history, *history)
	return nil
}

func (r *fakeRatingRepo) GetByPlayerAndMatch(ctx context.Context, playerID, matchID int) (*models.RatingHistory, error) {
	for i := range r.history {
		if r.history[i].PlayerID == playerID && r.history[i].MatchID == matchID {
			return &r.history[i], nil
		}
	}
	return nil, repositories.ErrRatingHistoryNotFound
}

func (r *fakeRatingRepo) ListByPlayer(ctx context.Context, playerID int, limit int) ([]models.RatingHistory, error) {
	out := make([]models.RatingHistory, 0, len(r.history))
	for _, h := range r.history {
		if h.PlayerID == playerID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeEventRepo struct {
	events []models.MatchEvent
}

func (r *fakeEventRepo) Create(ctx context.Context, exec repositories.SQLExecutor, event *models.MatchEvent) error {
	event.ReceivedAt = time.Now().UTC()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) ListBySlug(ctx context.Context, slug string) ([]models.MatchEvent, error) {
	out := make([]models.MatchEvent, 0, len(r.events))
	for _, e := range r.events {
		if e.MatchSlug == slug {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeBroadcaster собирает отправленные события по именам.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) BroadcastToTournament(tournamentID int, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) sent(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e == event {
			return true
		}
	}
	return false
}

// fakeGameClient отвечает заранее заданным ответом либо ошибкой.
// onSend, если задан, вызывается перед ответом: тесты подменяют им
// состояние, меняющееся между снимком матча и командой серверу.
type fakeGameClient struct {
	response string
	err      error
	commands []string
	onSend   func()
}

func (c *fakeGameClient) SendCommand(ctx context.Context, server *models.Server, command string) (string, error) {
	if c.onSend != nil {
		c.onSend()
	}
	if c.err != nil {
		return "", c.err
	}
	c.commands = append(c.commands, command)
	return c.response, nil
}

type fakeRatingService struct {
	calls int
	err   error
}

func (s *fakeRatingService) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, team1, team2 *models.Team, winnerTeamID int, stats []models.PlayerMatchStats) error {
	s.calls++
	return s.err
}

func (s *fakeRatingService) PlayerHistory(ctx context.Context, playerID, limit int) ([]models.RatingHistory, error) {
	return nil, nil
}

type fakeBracketService struct {
	advance    *brackets.RoundAdvance
	created    []*models.Match
	advanceErr error
	calls      int
}

func (s *fakeBracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	return nil, nil
}

func (s *fakeBracketService) AdvanceRound(ctx context.Context, tournament *models.Tournament, completedRound int) (*brackets.RoundAdvance, []*models.Match, error) {
	s.calls++
	return s.advance, s.created, s.advanceErr
}

func rawPayload(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func intPtr(v int) *int { return &v }
