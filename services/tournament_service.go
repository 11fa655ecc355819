package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

// Broadcaster доставляет live-обновления подписчикам турнира.
type Broadcaster interface {
	BroadcastToTournament(tournamentID int, event string, payload interface{})
}

const (
	EventMatchUpdated     = "MATCH_UPDATED"
	EventVetoUpdated      = "VETO_UPDATED"
	EventBracketUpdated   = "BRACKET_UPDATED"
	EventStandingsUpdated = "STANDINGS_UPDATED"
)

type CreateTournamentInput struct {
	Name             string                `json:"name"`
	Type             models.TournamentType `json:"type"`
	Format           models.SeriesFormat   `json:"format"`
	MapPool          []string              `json:"map_pool"`
	MaxRounds        *int                  `json:"max_rounds,omitempty"`
	OvertimeEnabled  bool                  `json:"overtime_enabled"`
	RatingTemplateID *int                  `json:"rating_template_id,omitempty"`
}

type RegisterTeamInput struct {
	Name    string              `json:"name"`
	Tag     string              `json:"tag"`
	Seed    int                 `json:"seed"`
	Players []RegisterPlayerRef `json:"players"`
}

type RegisterPlayerRef struct {
	SteamID     string `json:"steam_id"`
	Name        string `json:"name"`
	StartingElo int    `json:"starting_elo,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	GetActiveTournament(ctx context.Context) (*models.Tournament, error)
	RegisterTeam(ctx context.Context, tournamentID int, input RegisterTeamInput) (*models.Team, error)
	StartTournament(ctx context.Context, id int) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	playerRepo     repositories.PlayerRepository
	bracketService BracketService
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	bracketService BracketService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		playerRepo:     playerRepo,
		bracketService: bracketService,
		logger:         logger,
	}
}

const defaultStartingElo = 1000

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	switch input.Type {
	case models.TypeSingleElimination, models.TypeDoubleElimination, models.TypeRoundRobin, models.TypeSwiss:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTournamentType, input.Type)
	}
	switch input.Format {
	case models.FormatBo1, models.FormatBo3, models.FormatBo5:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeriesFormat, input.Format)
	}
	if err := validateMapPool(input.MapPool, input.Format); err != nil {
		return nil, err
	}
	if input.MaxRounds != nil && *input.MaxRounds < 1 {
		return nil, fmt.Errorf("%w: max_rounds must be positive", ErrValidationFailed)
	}

	// Одновременно живёт только один турнир: пока предыдущий не завершён,
	// новый создать нельзя.
	if _, err := s.tournamentRepo.GetActive(ctx); err == nil {
		return nil, ErrActiveTournamentExists
	} else if !errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, fmt.Errorf("failed to check active tournament: %w", err)
	}

	tournament := &models.Tournament{
		Name:             input.Name,
		Type:             input.Type,
		Format:           input.Format,
		Status:           models.TournamentSetup,
		MapPool:          input.MapPool,
		MaxRounds:        input.MaxRounds,
		OvertimeEnabled:  input.OvertimeEnabled,
		RatingTemplateID: input.RatingTemplateID,
	}
	if err := s.tournamentRepo.Create(ctx, s.db, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentConflict) {
			return nil, ErrActiveTournamentExists
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("type", string(tournament.Type)),
		slog.String("format", string(tournament.Format)))
	return tournament, nil
}

func validateMapPool(pool []string, format models.SeriesFormat) error {
	if len(pool) < format.MapCount() {
		return fmt.Errorf("%w: %d maps for %s", ErrInvalidMapPool, len(pool), format)
	}
	seen := make(map[string]struct{}, len(pool))
	for _, m := range pool {
		if m == "" {
			return fmt.Errorf("%w: empty map name", ErrInvalidMapPool)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: duplicate map %q", ErrInvalidMapPool, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	teams, err := s.teamRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		tournament.Teams = append(tournament.Teams, *t)
	}
	return tournament, nil
}

func (s *tournamentService) GetActiveTournament(ctx context.Context) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.GetTournament(ctx, tournament.ID)
}

func (s *tournamentService) RegisterTeam(ctx context.Context, tournamentID int, input RegisterTeamInput) (*models.Team, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentSetup {
		return nil, ErrTournamentAlreadyStarted
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidationFailed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	team := &models.Team{Name: input.Name, Tag: input.Tag, Seed: input.Seed}
	if err := s.teamRepo.Create(ctx, tx, team); err != nil {
		return nil, err
	}
	for _, ref := range input.Players {
		player, err := s.resolvePlayer(ctx, tx, ref, team.ID)
		if err != nil {
			return nil, err
		}
		team.Players = append(team.Players, *player)
	}
	if err := s.teamRepo.AddToTournament(ctx, tx, tournamentID, team.ID, input.Seed); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit team registration: %w", err)
	}

	team.Seed = input.Seed
	return team, nil
}

// resolvePlayer находит игрока по steam_id или создаёт нового с рейтингом
// по умолчанию. Существующий игрок переписывается в новую команду.
func (s *tournamentService) resolvePlayer(ctx context.Context, tx *sql.Tx, ref RegisterPlayerRef, teamID int) (*models.Player, error) {
	if ref.SteamID == "" {
		return nil, fmt.Errorf("%w: player steam_id is required", ErrValidationFailed)
	}
	existing, err := s.playerRepo.GetBySteamID(ctx, ref.SteamID)
	if err == nil {
		if err := s.playerRepo.UpdateTeam(ctx, tx, existing.ID, teamID); err != nil {
			return nil, err
		}
		existing.TeamID = &teamID
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}

	elo := ref.StartingElo
	if elo <= 0 {
		elo = defaultStartingElo
	}
	player := &models.Player{
		SteamID:     ref.SteamID,
		Name:        ref.Name,
		TeamID:      &teamID,
		CurrentElo:  elo,
		StartingElo: elo,
		Mu:          float64(elo),
		Sigma:       defaultSigma,
	}
	if err := s.playerRepo.Create(ctx, tx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *tournamentService) StartTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentSetup {
		return nil, ErrTournamentAlreadyStarted
	}
	if len(tournament.Teams) < 2 {
		return nil, ErrInsufficientParticipants
	}

	if _, err := s.bracketService.GenerateAndSaveBracket(ctx, tournament); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, models.TournamentInProgress, nil); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateCurrentRound(ctx, s.db, id, 1); err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentInProgress
	tournament.CurrentRound = 1

	s.logger.InfoContext(ctx, "tournament started",
		slog.Int("tournament_id", id),
		slog.Int("teams", len(tournament.Teams)))
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	err := s.tournamentRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", id))
	return nil
}
