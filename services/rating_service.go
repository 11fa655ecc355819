package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

// Параметры движка рейтинга. Sigma играет роль неуверенности: у новичков
// большой шаг обновления, со временем шаг сжимается к floor.
const (
	defaultSigma = 350.0
	sigmaFloor   = 75.0
	sigmaDecay   = 0.95

	ratingKBase     = 32.0
	ratingScale     = 400.0
	maxDisplayDelta = 50
)

type RatingService interface {
	// ApplyMatchResult пересчитывает рейтинг всех игроков обеих команд.
	// Идемпотентен: игрок, у которого уже есть запись истории по этому
	// матчу, пропускается.
	ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, team1, team2 *models.Team, winnerTeamID int, stats []models.PlayerMatchStats) error
	// PlayerHistory возвращает последние записи истории рейтинга игрока,
	// от новых к старым.
	PlayerHistory(ctx context.Context, playerID, limit int) ([]models.RatingHistory, error)
}

type ratingService struct {
	playerRepo repositories.PlayerRepository
	ratingRepo repositories.RatingRepository
	logger     *slog.Logger
}

func NewRatingService(
	playerRepo repositories.PlayerRepository,
	ratingRepo repositories.RatingRepository,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		playerRepo: playerRepo,
		ratingRepo: ratingRepo,
		logger:     logger,
	}
}

func (s *ratingService) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, team1, team2 *models.Team, winnerTeamID int, stats []models.PlayerMatchStats) error {
	if len(team1.Players) == 0 || len(team2.Players) == 0 {
		return fmt.Errorf("%w: empty roster in match %s", ErrRatingComputationFailed, match.Slug)
	}

	mu1 := rosterMu(team1)
	mu2 := rosterMu(team2)

	var template *models.RatingTemplate
	if tournament.RatingTemplateID != nil {
		var err error
		template, err = s.ratingRepo.GetTemplate(ctx, *tournament.RatingTemplateID)
		if err != nil {
			// Деградация: матч завершается, корректировка по статистике
			// не применяется.
			s.logger.WarnContext(ctx, "rating template unavailable, applying base delta only",
				slog.Int("template_id", *tournament.RatingTemplateID),
				slog.String("match", match.Slug),
				slog.Any("error", err))
			template = nil
		}
	}
	statsByPlayer := aggregateStats(stats)

	for _, roster := range []struct {
		team       *models.Team
		ownMu      float64
		opponentMu float64
	}{
		{team1, mu1, mu2},
		{team2, mu2, mu1},
	} {
		won := roster.team.ID == winnerTeamID
		for i := range roster.team.Players {
			player := &roster.team.Players[i]
			if err := s.applyPlayer(ctx, exec, tournament, match, player, roster.ownMu, roster.opponentMu, won, template, statsByPlayer); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ratingService) PlayerHistory(ctx context.Context, playerID, limit int) ([]models.RatingHistory, error) {
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return s.ratingRepo.ListByPlayer(ctx, playerID, limit)
}

func (s *ratingService) applyPlayer(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, player *models.Player, teamMu, opponentMu float64, won bool, template *models.RatingTemplate, statsByPlayer map[int]models.PlayerMatchStats) error {
	if _, err := s.ratingRepo.GetByPlayerAndMatch(ctx, player.ID, match.ID); err == nil {
		s.logger.DebugContext(ctx, "rating already applied, skipping",
			slog.Int("player_id", player.ID),
			slog.Int("match_id", match.ID))
		return nil
	} else if !errors.Is(err, repositories.ErrRatingHistoryNotFound) {
		return err
	}

	expected := 1.0 / (1.0 + math.Pow(10, (opponentMu-teamMu)/ratingScale))
	outcome := 0.0
	if won {
		outcome = 1.0
	}

	k := ratingKBase * (player.Sigma / defaultSigma)
	deltaMu := k * (outcome - expected)

	baseDelta := clampInt(int(math.Round(deltaMu)), -maxDisplayDelta, maxDisplayDelta)

	statAdjustment := 0
	var templateID *int
	if template != nil {
		if line, ok := statsByPlayer[player.ID]; ok {
			statAdjustment = statDelta(template, line)
			templateID = &template.ID
		}
	}

	history := &models.RatingHistory{
		PlayerID:       player.ID,
		MatchID:        match.ID,
		TournamentID:   tournament.ID,
		TemplateID:     templateID,
		EloBefore:      player.CurrentElo,
		MuBefore:       player.Mu,
		SigmaBefore:    player.Sigma,
		BaseDelta:      baseDelta,
		StatAdjustment: statAdjustment,
	}

	player.Mu += deltaMu
	player.Sigma = math.Max(sigmaFloor, player.Sigma*sigmaDecay)
	player.CurrentElo += baseDelta + statAdjustment

	history.EloAfter = player.CurrentElo
	history.MuAfter = player.Mu
	history.SigmaAfter = player.Sigma

	if err := s.playerRepo.UpdateRating(ctx, exec, player.ID, player.CurrentElo, player.Mu, player.Sigma); err != nil {
		return err
	}
	if err := s.ratingRepo.CreateHistory(ctx, exec, history); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "rating updated",
		slog.Int("player_id", player.ID),
		slog.Int("match_id", match.ID),
		slog.Int("base_delta", baseDelta),
		slog.Int("stat_adjustment", statAdjustment),
		slog.Int("elo_after", player.CurrentElo))
	return nil
}

// statDelta - взвешенная корректировка по статистике, зажатая в пределы шаблона.
func statDelta(template *models.RatingTemplate, line models.PlayerMatchStats) int {
	raw := float64(line.Kills)*template.KillWeight +
		float64(line.Deaths)*template.DeathWeight +
		float64(line.Assists)*template.AssistWeight +
		float64(line.Damage)*template.DamageWeight
	return clampInt(int(math.Round(raw)), template.MinAdjustment, template.MaxAdjustment)
}

// aggregateStats суммирует строки статистики игрока по всем картам серии.
func aggregateStats(stats []models.PlayerMatchStats) map[int]models.PlayerMatchStats {
	byPlayer := make(map[int]models.PlayerMatchStats)
	for _, line := range stats {
		agg := byPlayer[line.PlayerID]
		agg.PlayerID = line.PlayerID
		agg.Kills += line.Kills
		agg.Deaths += line.Deaths
		agg.Assists += line.Assists
		agg.Damage += line.Damage
		byPlayer[line.PlayerID] = agg
	}
	return byPlayer
}

func rosterMu(team *models.Team) float64 {
	if len(team.Players) == 0 {
		return float64(defaultStartingElo)
	}
	sum := 0.0
	for _, p := range team.Players {
		sum += p.Mu
	}
	return sum / float64(len(team.Players))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
