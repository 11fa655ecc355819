package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scrimline/tournament-engine/brackets"
	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error)
	// AdvanceRound вызывается координатором после закрытия раунда.
	// Возвращает признак завершения турнира и созданные матчи следующего
	// раунда (swiss генерирует раунды лениво).
	AdvanceRound(ctx context.Context, tournament *models.Tournament, completedRound int) (*brackets.RoundAdvance, []*models.Match, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		logger:         logger,
	}
}

func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) ([]*models.Match, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournament.ID, err)
	}
	if len(teams) < 2 {
		return nil, ErrInsufficientParticipants
	}

	generator, err := brackets.ForType(tournament.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTournamentType, err)
	}

	skeletons, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament: tournament,
		Teams:      teams,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientParticipants) {
			return nil, ErrInsufficientParticipants
		}
		if errors.Is(err, brackets.ErrInvalidMapPool) {
			return nil, ErrInvalidMapPool
		}
		return nil, fmt.Errorf("failed to generate bracket for tournament %d: %w", tournament.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := s.persistSkeletons(ctx, tx, tournament, skeletons)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bracket for tournament %d: %w", tournament.ID, err)
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("type", string(tournament.Type)),
		slog.Int("matches", len(created)))
	return created, nil
}

// persistSkeletons сохраняет скелеты в два прохода: сначала строки матчей,
// затем forward-указатели, полученные разворотом ссылок на источники.
func (s *bracketService) persistSkeletons(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, skeletons []*brackets.BracketMatch) ([]*models.Match, error) {
	uidToMatch := make(map[string]*models.Match, len(skeletons))
	created := make([]*models.Match, 0, len(skeletons))

	// ПЕРВЫЙ ПРОХОД: создаём строки. Bye в elimination-сетках уже учтён
	// генератором и строки не получает; bye в swiss фиксируется завершённым
	// матчем без соперника, чтобы история раундов была полной.
	for _, bm := range skeletons {
		if bm.IsBye && bm.Side != models.SideNone {
			continue
		}

		uid := bm.UID
		match := &models.Match{
			TournamentID: tournament.ID,
			Slug:         matchSlug(tournament.ID, bm.UID),
			Round:        bm.Round,
			Number:       bm.OrderInRound,
			Side:         bm.Side,
			BracketUID:   &uid,
			Team1ID:      bm.Team1ID,
			Team2ID:      bm.Team2ID,
			Status:       models.MatchPending,
			IsContingent: bm.IsContingent,
		}
		if bm.IsBye {
			match.Team1ID = bm.ByeTeamID
			match.Team2ID = nil
			match.WinnerID = bm.ByeTeamID
			match.Status = models.MatchCompleted
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return nil, err
		}
		uidToMatch[bm.UID] = match
		created = append(created, match)
	}

	// ВТОРОЙ ПРОХОД: разворачиваем Source-ссылки целевых матчей в указатели
	// next_match_id / loser_next_match_id на матчах-источниках.
	for _, target := range skeletons {
		targetMatch, ok := uidToMatch[target.UID]
		if !ok {
			continue
		}
		for slot, source := range map[int]*brackets.SlotSource{1: target.Source1, 2: target.Source2} {
			if source == nil {
				continue
			}
			sourceMatch, ok := uidToMatch[source.MatchUID]
			if !ok {
				continue
			}
			slotCopy := slot
			switch source.Take {
			case brackets.TakeWinner:
				sourceMatch.NextMatchID = &targetMatch.ID
				sourceMatch.NextMatchSlot = &slotCopy
			case brackets.TakeLoser:
				sourceMatch.LoserNextMatchID = &targetMatch.ID
				sourceMatch.LoserNextMatchSlot = &slotCopy
			}
		}
	}
	for _, m := range created {
		if m.NextMatchID == nil && m.LoserNextMatchID == nil {
			continue
		}
		if err := s.matchRepo.UpdateNextMatchInfo(ctx, tx, m.ID,
			m.NextMatchID, m.NextMatchSlot, m.LoserNextMatchID, m.LoserNextMatchSlot); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func matchSlug(tournamentID int, uid string) string {
	return fmt.Sprintf("t%d-%s", tournamentID, strings.ToLower(uid))
}

func (s *bracketService) AdvanceRound(ctx context.Context, tournament *models.Tournament, completedRound int) (*brackets.RoundAdvance, []*models.Match, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID, nil, nil)
	if err != nil {
		return nil, nil, err
	}

	generator, err := brackets.ForType(tournament.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTournamentType, err)
	}
	advance, err := generator.AdvanceRound(ctx, brackets.AdvanceParams{
		Tournament:     tournament,
		Teams:          teams,
		Matches:        matches,
		CompletedRound: completedRound,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to advance round %d of tournament %d: %w", completedRound, tournament.ID, err)
	}
	if advance == nil {
		return nil, nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var createdMatches []*models.Match
	if len(advance.Matches) > 0 {
		createdMatches, err = s.persistSkeletons(ctx, tx, tournament, advance.Matches)
		if err != nil {
			return nil, nil, err
		}
	}

	if advance.Complete {
		if err := s.tournamentRepo.UpdateStatus(ctx, tx, tournament.ID, models.TournamentCompleted, advance.WinnerTeamID); err != nil {
			return nil, nil, err
		}
	} else if advance.NextRound > tournament.CurrentRound {
		if err := s.tournamentRepo.UpdateCurrentRound(ctx, tx, tournament.ID, advance.NextRound); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit round advance: %w", err)
	}

	if advance.Complete {
		s.logger.InfoContext(ctx, "tournament completed",
			slog.Int("tournament_id", tournament.ID),
			slog.Any("winner_team_id", advance.WinnerTeamID))
	} else if len(createdMatches) > 0 {
		s.logger.InfoContext(ctx, "next round generated",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("round", advance.NextRound),
			slog.Int("matches", len(createdMatches)))
	}
	return advance, createdMatches, nil
}
