package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scrimline/tournament-engine/gameserver"
	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
	"github.com/scrimline/tournament-engine/veto"
)

type VetoActionInput struct {
	TeamID int                   `json:"team_id"`
	Type   models.VetoActionType `json:"type"`
	Map    string                `json:"map,omitempty"`
	Side   models.TeamSide       `json:"side,omitempty"`
}

type MatchService interface {
	GetMatch(ctx context.Context, slug string) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListMapResults(ctx context.Context, slug string) ([]models.MapResult, error)
	ListEvents(ctx context.Context, slug string) ([]models.MatchEvent, error)

	// StartMatch занимает свободный сервер и открывает veto-переговоры.
	StartMatch(ctx context.Context, slug string) (*models.Match, error)
	HandleVetoAction(ctx context.Context, slug string, input VetoActionInput) (*models.Match, error)
	HandleEvent(ctx context.Context, slug string, eventType models.MatchEventType, payload json.RawMessage) error
	AbortMatch(ctx context.Context, slug string) (*models.Match, error)
	ReassignServer(ctx context.Context, slug string) (*models.Match, error)
	AttachDemo(ctx context.Context, slug string, mapNumber int, demoKey string) error

	// PollServers опрашивает занятые серверы; вызывается фоновым тикером.
	PollServers(ctx context.Context) error
}

type matchService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	playerRepo     repositories.PlayerRepository
	serverRepo     repositories.ServerRepository
	eventRepo      repositories.EventRepository
	ratingService  RatingService
	bracketService BracketService
	client         gameserver.Client
	hub            Broadcaster
	logger         *slog.Logger

	// Все изменения одного матча сериализуются через его мьютекс:
	// вебхуки, опрос серверов и действия оператора приходят конкурентно.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	serverRepo repositories.ServerRepository,
	eventRepo repositories.EventRepository,
	ratingService RatingService,
	bracketService BracketService,
	client gameserver.Client,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		playerRepo:     playerRepo,
		serverRepo:     serverRepo,
		eventRepo:      eventRepo,
		ratingService:  ratingService,
		bracketService: bracketService,
		client:         client,
		hub:            hub,
		logger:         logger,
		locks:          make(map[string]*sync.Mutex),
	}
}

func (s *matchService) lockMatch(slug string) func() {
	s.mu.Lock()
	l, ok := s.locks[slug]
	if !ok {
		l = &sync.Mutex{}
		s.locks[slug] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *matchService) GetMatch(ctx context.Context, slug string) (*models.Match, error) {
	match, err := s.matchRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
}

func (s *matchService) ListMapResults(ctx context.Context, slug string) ([]models.MapResult, error) {
	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.matchRepo.ListMapResults(ctx, match.ID)
}

func (s *matchService) ListEvents(ctx context.Context, slug string) ([]models.MatchEvent, error) {
	if _, err := s.GetMatch(ctx, slug); err != nil {
		return nil, err
	}
	return s.eventRepo.ListBySlug(ctx, slug)
}

func (s *matchService) StartMatch(ctx context.Context, slug string) (*models.Match, error) {
	unlock := s.lockMatch(slug)
	defer unlock()

	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}
	if match.Status != models.MatchPending {
		return nil, ErrMatchAlreadyStarted
	}
	if match.Team1ID == nil || match.Team2ID == nil {
		return nil, ErrMatchNotReady
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentInProgress {
		return nil, ErrTournamentNotActive
	}

	server, err := s.claimFreeServer(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	// Переговоры открывает команда первого слота (верхний seed).
	state, err := veto.New(tournament.Format, tournament.MapPool, *match.Team1ID, *match.Team2ID, *match.Team1ID)
	if err != nil {
		s.releaseServer(ctx, server.ID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapPool, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.releaseServer(ctx, server.ID)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.SetServer(ctx, tx, match.ID, &server.ID); err != nil {
		return nil, err
	}
	if err := s.matchRepo.UpdateVetoState(ctx, tx, match.ID, state); err != nil {
		return nil, err
	}
	if err := s.matchRepo.UpdateStatus(ctx, tx, match.ID, models.MatchVeto); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.releaseServer(ctx, server.ID)
		return nil, fmt.Errorf("failed to commit match start: %w", err)
	}

	match.ServerID = &server.ID
	match.Veto = state
	match.Status = models.MatchVeto

	s.logger.InfoContext(ctx, "match started",
		slog.String("match", slug),
		slog.Int("server_id", server.ID))
	s.broadcastMatch(match)
	return match, nil
}

// claimFreeServer перебирает свободные серверы и пытается занять каждый
// CAS-обновлением; проигранная гонка двигает к следующему кандидату.
func (s *matchService) claimFreeServer(ctx context.Context, matchID int) (*models.Server, error) {
	servers, err := s.serverRepo.ListFree(ctx)
	if err != nil {
		return nil, err
	}
	for _, server := range servers {
		err := s.serverRepo.Claim(ctx, s.db, server.ID, matchID)
		if err == nil {
			return server, nil
		}
		if errors.Is(err, repositories.ErrServerTaken) {
			continue
		}
		return nil, err
	}
	return nil, ErrServerUnavailable
}

func (s *matchService) releaseServer(ctx context.Context, serverID int) {
	if err := s.serverRepo.Release(ctx, s.db, serverID); err != nil {
		s.logger.Error("failed to release server", slog.Int("server_id", serverID), slog.Any("error", err))
	}
}

func (s *matchService) HandleVetoAction(ctx context.Context, slug string, input VetoActionInput) (*models.Match, error) {
	unlock := s.lockMatch(slug)
	defer unlock()

	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchVeto || match.Veto == nil {
		return nil, ErrInvalidVetoAction
	}

	state := match.Veto
	switch input.Type {
	case models.VetoBan, models.VetoPick:
		err = veto.Apply(state, input.TeamID, input.Type, input.Map)
	case models.VetoSide:
		err = veto.ChooseSide(state, input.TeamID, input.Side)
	default:
		err = veto.ErrInvalidVetoAction
	}
	if err != nil {
		if errors.Is(err, veto.ErrInvalidVetoAction) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVetoAction, err)
		}
		return nil, err
	}

	if err := s.matchRepo.UpdateVetoState(ctx, s.db, match.ID, state); err != nil {
		return nil, err
	}
	s.hub.BroadcastToTournament(match.TournamentID, EventVetoUpdated, match)

	if state.Status == models.VetoCompleted {
		if err := s.pushMatchConfig(ctx, match); err != nil {
			return nil, err
		}
	}
	return match, nil
}

// pushMatchConfig отправляет серверу полную конфигурацию серии после
// завершения veto. Недоступный сервер переводит матч в error.
func (s *matchService) pushMatchConfig(ctx context.Context, match *models.Match) error {
	server, err := s.serverRepo.GetByID(ctx, *match.ServerID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	team1, err := s.teamRepo.GetByID(ctx, *match.Team1ID)
	if err != nil {
		return err
	}
	team2, err := s.teamRepo.GetByID(ctx, *match.Team2ID)
	if err != nil {
		return err
	}

	commands := gameserver.MatchConfigCommands(match, team1, team2, veto.FinalMaps(match.Veto), tournament.OvertimeEnabled)
	for _, command := range commands {
		if _, err := s.client.SendCommand(ctx, server, command); err != nil {
			if errors.Is(err, gameserver.ErrServerOffline) {
				s.markServerOffline(ctx, server, match)
				return ErrServerOffline
			}
			return fmt.Errorf("failed to configure server %d: %w", server.ID, err)
		}
	}

	if err := s.matchRepo.UpdateStatus(ctx, s.db, match.ID, models.MatchLoading); err != nil {
		return err
	}
	match.Status = models.MatchLoading

	s.logger.InfoContext(ctx, "match config pushed",
		slog.String("match", match.Slug),
		slog.Int("server_id", server.ID),
		slog.Int("maps", len(veto.FinalMaps(match.Veto))))
	s.broadcastMatch(match)
	return nil
}

func (s *matchService) markServerOffline(ctx context.Context, server *models.Server, match *models.Match) {
	s.logger.Error("server went offline",
		slog.Int("server_id", server.ID),
		slog.String("match", match.Slug))

	if err := s.serverRepo.UpdateStatus(ctx, s.db, server.ID, models.ServerOffline); err != nil {
		s.logger.Error("failed to flag server offline", slog.Int("server_id", server.ID), slog.Any("error", err))
	}
	if err := s.matchRepo.UpdateStatus(ctx, s.db, match.ID, models.MatchError); err != nil {
		s.logger.Error("failed to mark match errored", slog.String("match", match.Slug), slog.Any("error", err))
	}
	match.Status = models.MatchError
	s.broadcastMatch(match)
}

func (s *matchService) HandleEvent(ctx context.Context, slug string, eventType models.MatchEventType, payload json.RawMessage) error {
	// Событие сохраняется до обработки: журнал полон даже для событий,
	// которые обработчик отбросит.
	event := &models.MatchEvent{MatchSlug: slug, Type: eventType, Payload: payload}
	if err := s.eventRepo.Create(ctx, s.db, event); err != nil {
		return err
	}

	unlock := s.lockMatch(slug)
	defer unlock()

	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return err
	}
	if match.Status.IsTerminal() {
		s.logger.WarnContext(ctx, "event for terminal match dropped",
			slog.String("match", slug),
			slog.String("type", string(eventType)))
		return nil
	}

	switch eventType {
	case models.EventSeriesStart, models.EventGoingLive, models.EventStatusChanged:
		return s.handleStatusEvent(ctx, match, payload)
	case models.EventRoundEnd:
		return s.handleRoundEnd(ctx, match, payload)
	case models.EventMapResult:
		return s.handleMapResult(ctx, match, payload)
	case models.EventSeriesEnd:
		return s.completeFromMapResults(ctx, match)
	case models.EventDemoUploadEnded:
		// Ключ demo записывается отдельным вызовом AttachDemo после
		// загрузки файла; само событие только аудируется.
		return nil
	default:
		s.logger.WarnContext(ctx, "unknown event type ignored",
			slog.String("match", slug),
			slog.String("type", string(eventType)))
		return nil
	}
}

func (s *matchService) handleStatusEvent(ctx context.Context, match *models.Match, payload json.RawMessage) error {
	var p models.StatusChangedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed status payload for match %s: %w", match.Slug, err)
	}
	report := models.ServerReport{
		Status:     models.ServerStatus(p.Status),
		MapNumber:  p.MapNumber,
		ReportedAt: parseEventTime(p.Timestamp),
	}
	return s.applyReport(ctx, match, report)
}

func (s *matchService) handleRoundEnd(ctx context.Context, match *models.Match, payload json.RawMessage) error {
	var p models.RoundEndPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed round_end payload for match %s: %w", match.Slug, err)
	}
	report := models.ServerReport{
		Status:     models.ServerLive,
		MapNumber:  p.MapNumber,
		Team1Score: p.Team1Score,
		Team2Score: p.Team2Score,
		ReportedAt: parseEventTime(p.Timestamp),
	}
	return s.applyReport(ctx, match, report)
}

// applyReport обновляет матч по отчёту сервера. Отчёты старше уже принятого
// отбрасываются: опрос и вебхуки могут прийти в любом порядке.
func (s *matchService) applyReport(ctx context.Context, match *models.Match, report models.ServerReport) error {
	if match.LastReportAt != nil && report.ReportedAt.Before(*match.LastReportAt) {
		s.logger.WarnContext(ctx, "stale server report dropped",
			slog.String("match", match.Slug),
			slog.Time("reported_at", report.ReportedAt),
			slog.Time("last_report_at", *match.LastReportAt))
		return nil
	}

	status, ok := report.Status.MatchStatusFor()
	if !ok {
		s.logger.WarnContext(ctx, "unmapped server status ignored",
			slog.String("match", match.Slug),
			slog.String("status", string(report.Status)))
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if status != match.Status {
		if err := s.matchRepo.UpdateStatus(ctx, tx, match.ID, status); err != nil {
			return err
		}
	}
	if err := s.matchRepo.UpdateLastReport(ctx, tx, match.ID, report.ReportedAt, report.MapNumber); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}

	match.Status = status
	match.CurrentMapNumber = report.MapNumber
	match.LastReportAt = &report.ReportedAt
	s.broadcastMatch(match)
	return nil
}

func (s *matchService) handleMapResult(ctx context.Context, match *models.Match, payload json.RawMessage) error {
	var p models.MapResultPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed map_result payload for match %s: %w", match.Slug, err)
	}

	var mapWinnerID *int
	if p.Team1Score > p.Team2Score {
		mapWinnerID = match.Team1ID
	} else if p.Team2Score > p.Team1Score {
		mapWinnerID = match.Team2ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &models.MapResult{
		MatchID:    match.ID,
		MapNumber:  p.MapNumber,
		MapName:    p.MapName,
		Team1Score: p.Team1Score,
		Team2Score: p.Team2Score,
		WinnerID:   mapWinnerID,
	}
	if err := s.matchRepo.CreateMapResult(ctx, tx, result); err != nil {
		if errors.Is(err, repositories.ErrMapResultConflict) {
			s.logger.WarnContext(ctx, "duplicate map result dropped",
				slog.String("match", match.Slug),
				slog.Int("map_number", p.MapNumber))
			return nil
		}
		return err
	}
	if err := s.storePlayerStats(ctx, tx, match, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit map result: %w", err)
	}

	s.logger.InfoContext(ctx, "map result recorded",
		slog.String("match", match.Slug),
		slog.Int("map_number", p.MapNumber),
		slog.String("map", p.MapName),
		slog.Int("team1_score", p.Team1Score),
		slog.Int("team2_score", p.Team2Score))
	s.broadcastMatch(match)

	return s.completeFromMapResults(ctx, match)
}

func (s *matchService) storePlayerStats(ctx context.Context, tx *sql.Tx, match *models.Match, p models.MapResultPayload) error {
	for _, line := range p.Players {
		stats := &models.PlayerMatchStats{
			MatchID:   match.ID,
			MapNumber: p.MapNumber,
			SteamID:   line.SteamID,
			Kills:     line.Kills,
			Deaths:    line.Deaths,
			Assists:   line.Assists,
			Damage:    line.Damage,
		}
		if player, err := s.playerRepo.GetBySteamID(ctx, line.SteamID); err == nil {
			stats.PlayerID = player.ID
		} else {
			s.logger.WarnContext(ctx, "stats for unknown player skipped",
				slog.String("match", match.Slug),
				slog.String("steam_id", line.SteamID))
			continue
		}
		if err := s.matchRepo.CreatePlayerStats(ctx, tx, stats); err != nil {
			return err
		}
	}
	return nil
}

// completeFromMapResults завершает серию, когда одна из команд набрала
// необходимое число карт. Идемпотентен.
func (s *matchService) completeFromMapResults(ctx context.Context, match *models.Match) error {
	if match.Status == models.MatchCompleted {
		return nil
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	results, err := s.matchRepo.ListMapResults(ctx, match.ID)
	if err != nil {
		return err
	}

	team1Wins, team2Wins := 0, 0
	for _, r := range results {
		if r.WinnerID == nil {
			continue
		}
		switch {
		case match.Team1ID != nil && *r.WinnerID == *match.Team1ID:
			team1Wins++
		case match.Team2ID != nil && *r.WinnerID == *match.Team2ID:
			team2Wins++
		}
	}

	need := tournament.Format.MapsToWin()
	var winnerID *int
	switch {
	case team1Wins >= need:
		winnerID = match.Team1ID
	case team2Wins >= need:
		winnerID = match.Team2ID
	default:
		return nil
	}
	return s.completeMatch(ctx, tournament, match, *winnerID)
}

func (s *matchService) completeMatch(ctx context.Context, tournament *models.Tournament, match *models.Match, winnerTeamID int) error {
	if match.Status == models.MatchCompleted {
		return nil
	}
	loserTeamID := *match.Team1ID
	if loserTeamID == winnerTeamID {
		loserTeamID = *match.Team2ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.UpdateWinner(ctx, tx, match.ID, &winnerTeamID, models.MatchCompleted); err != nil {
		return err
	}

	// Продвижение по сетке: победитель и проигравший занимают свои слоты
	// в следующих матчах.
	if match.NextMatchID != nil && match.NextMatchSlot != nil {
		if err := s.matchRepo.UpdateParticipantSlot(ctx, tx, *match.NextMatchID, *match.NextMatchSlot, winnerTeamID); err != nil {
			return err
		}
	}
	if match.LoserNextMatchID != nil && match.LoserNextMatchSlot != nil {
		if err := s.matchRepo.UpdateParticipantSlot(ctx, tx, *match.LoserNextMatchID, *match.LoserNextMatchSlot, loserTeamID); err != nil {
			return err
		}
	}

	// Рейтинг считается внутри той же транзакции; полный провал расчёта
	// не блокирует завершение матча.
	if err := s.applyRatings(ctx, tx, tournament, match, winnerTeamID); err != nil {
		s.logger.Error("rating computation failed, match completed without rating update",
			slog.String("match", match.Slug),
			slog.Any("error", fmt.Errorf("%w: %v", ErrRatingComputationFailed, err)))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match completion: %w", err)
	}
	match.Status = models.MatchCompleted
	match.WinnerID = &winnerTeamID

	if match.ServerID != nil {
		s.releaseServer(ctx, *match.ServerID)
	}

	s.logger.InfoContext(ctx, "match completed",
		slog.String("match", match.Slug),
		slog.Int("winner_team_id", winnerTeamID))
	s.broadcastMatch(match)

	if err := s.afterCompletion(ctx, tournament, match, winnerTeamID); err != nil {
		return err
	}
	s.hub.BroadcastToTournament(tournament.ID, EventStandingsUpdated, nil)
	return nil
}

func (s *matchService) applyRatings(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, match *models.Match, winnerTeamID int) error {
	team1, err := s.teamRepo.GetByID(ctx, *match.Team1ID)
	if err != nil {
		return err
	}
	team2, err := s.teamRepo.GetByID(ctx, *match.Team2ID)
	if err != nil {
		return err
	}
	stats, err := s.matchRepo.ListPlayerStats(ctx, match.ID)
	if err != nil {
		return err
	}
	return s.ratingService.ApplyMatchResult(ctx, tx, tournament, match, team1, team2, winnerTeamID, stats)
}

// afterCompletion обрабатывает следствия завершения матча на уровне сетки:
// отмену или активацию второй карты гранд-финала, генерацию следующего
// раунда swiss, завершение турнира.
func (s *matchService) afterCompletion(ctx context.Context, tournament *models.Tournament, match *models.Match, winnerTeamID int) error {
	if match.Side == models.SideGrandFinal && !match.IsContingent {
		if match.Team1ID != nil && winnerTeamID == *match.Team1ID {
			// Чемпион winners-сетки выиграл первую игру: reset не нужен.
			if err := s.cancelContingentFinal(ctx, tournament.ID); err != nil {
				return err
			}
		} else {
			s.logger.InfoContext(ctx, "bracket reset, grand final game two activated",
				slog.Int("tournament_id", tournament.ID))
		}
	}

	advance, created, err := s.bracketService.AdvanceRound(ctx, tournament, match.Round)
	if err != nil {
		return err
	}
	if advance != nil && (advance.Complete || len(created) > 0) {
		s.hub.BroadcastToTournament(tournament.ID, EventBracketUpdated, nil)
	}
	return nil
}

func (s *matchService) cancelContingentFinal(ctx context.Context, tournamentID int) error {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil, nil)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.IsContingent && m.Side == models.SideGrandFinal && !m.Status.IsTerminal() {
			if err := s.matchRepo.UpdateStatus(ctx, s.db, m.ID, models.MatchCancelled); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *matchService) AbortMatch(ctx context.Context, slug string) (*models.Match, error) {
	unlock := s.lockMatch(slug)
	defer unlock()

	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}

	if err := s.matchRepo.UpdateStatus(ctx, s.db, match.ID, models.MatchCancelled); err != nil {
		return nil, err
	}
	if match.ServerID != nil {
		s.releaseServer(ctx, *match.ServerID)
	}
	match.Status = models.MatchCancelled

	s.logger.InfoContext(ctx, "match aborted", slog.String("match", slug))
	s.broadcastMatch(match)
	return match, nil
}

// ReassignServer переводит errored-матч на новый сервер и повторяет
// отправку конфигурации, если veto уже завершён.
func (s *matchService) ReassignServer(ctx context.Context, slug string) (*models.Match, error) {
	unlock := s.lockMatch(slug)
	defer unlock()

	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}

	if match.ServerID != nil {
		s.releaseServer(ctx, *match.ServerID)
	}
	server, err := s.claimFreeServer(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if err := s.matchRepo.SetServer(ctx, s.db, match.ID, &server.ID); err != nil {
		return nil, err
	}
	match.ServerID = &server.ID

	if match.Veto != nil && match.Veto.Status == models.VetoCompleted {
		if err := s.pushMatchConfig(ctx, match); err != nil {
			return nil, err
		}
	} else if match.Status == models.MatchError {
		if err := s.matchRepo.UpdateStatus(ctx, s.db, match.ID, models.MatchVeto); err != nil {
			return nil, err
		}
		match.Status = models.MatchVeto
	}

	s.logger.InfoContext(ctx, "server reassigned",
		slog.String("match", slug),
		slog.Int("server_id", server.ID))
	s.broadcastMatch(match)
	return match, nil
}

func (s *matchService) AttachDemo(ctx context.Context, slug string, mapNumber int, demoKey string) error {
	match, err := s.GetMatch(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.matchRepo.SetMapResultDemo(ctx, s.db, match.ID, mapNumber, demoKey); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "demo attached",
		slog.String("match", slug),
		slog.Int("map_number", mapNumber),
		slog.String("demo_key", demoKey))
	return nil
}

func (s *matchService) PollServers(ctx context.Context) error {
	servers, err := s.serverRepo.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, server := range servers {
		if server.CurrentMatchID == nil {
			continue
		}
		s.pollServer(ctx, server)
	}
	return nil
}

func (s *matchService) pollServer(ctx context.Context, server *models.Server) {
	match, err := s.matchRepo.GetActiveByServer(ctx, server.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return
		}
		s.logger.Error("failed to load match for busy server",
			slog.Int("server_id", server.ID),
			slog.Any("error", err))
		return
	}

	response, err := s.client.SendCommand(ctx, server, gameserver.StatusQuery())
	if err != nil {
		if errors.Is(err, gameserver.ErrServerOffline) {
			unlock := s.lockMatch(match.Slug)
			defer unlock()
			match, err = s.reloadUnderLock(ctx, match.Slug)
			if err != nil || match == nil {
				return
			}
			s.markServerOffline(ctx, server, match)
			return
		}
		s.logger.Error("server poll failed",
			slog.Int("server_id", server.ID),
			slog.Any("error", err))
		return
	}

	report, err := gameserver.ReportFromCvars(gameserver.ParseCvars(response))
	if err != nil {
		s.logger.Warn("unparseable server status response",
			slog.Int("server_id", server.ID),
			slog.Any("error", err))
		return
	}

	unlock := s.lockMatch(match.Slug)
	defer unlock()
	match, err = s.reloadUnderLock(ctx, match.Slug)
	if err != nil || match == nil {
		return
	}
	if err := s.applyReport(ctx, match, report); err != nil {
		s.logger.Error("failed to apply poll report",
			slog.String("match", match.Slug),
			slog.Any("error", err))
	}
}

// reloadUnderLock перечитывает матч уже внутри критической секции: между
// снимком до опроса и взятием лока вебхук мог принять более свежий отчёт
// или завершить матч. Для терминального матча возвращается nil.
func (s *matchService) reloadUnderLock(ctx context.Context, slug string) (*models.Match, error) {
	match, err := s.matchRepo.GetBySlug(ctx, slug)
	if err != nil {
		s.logger.Error("failed to reload match",
			slog.String("match", slug),
			slog.Any("error", err))
		return nil, err
	}
	if match.Status.IsTerminal() {
		return nil, nil
	}
	return match, nil
}

func (s *matchService) broadcastMatch(match *models.Match) {
	s.hub.BroadcastToTournament(match.TournamentID, EventMatchUpdated, match)
}

func parseEventTime(value string) time.Time {
	if value != "" {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
