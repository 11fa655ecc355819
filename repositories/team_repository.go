package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/scrimline/tournament-engine/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	// ListByTournament возвращает команды турнира с составами,
	// отсортированные по посеву.
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	AddToTournament(ctx context.Context, exec SQLExecutor, tournamentID, teamID, seed int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `INSERT INTO teams (name, tag) VALUES ($1, $2) RETURNING id, created_at`
	if err := exec.QueryRowContext(ctx, query, team.Name, team.Tag).Scan(&team.ID, &team.CreatedAt); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, tag, created_at FROM teams WHERE id = $1`
	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.Tag, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	if err := r.loadPlayers(ctx, map[int]*models.Team{team.ID: team}); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	query := `
		SELECT t.id, t.name, t.tag, tt.seed, t.created_at
		FROM teams t
		JOIN tournament_teams tt ON tt.team_id = t.id
		WHERE tt.tournament_id = $1
		ORDER BY tt.seed ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	byID := make(map[int]*models.Team)
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.Tag, &team.Seed, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
		byID[team.ID] = team
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}

	if err := r.loadPlayers(ctx, byID); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) loadPlayers(ctx context.Context, teams map[int]*models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]int, 0, len(teams))
	for id := range teams {
		ids = append(ids, id)
	}

	query := `
		SELECT id, steam_id, name, team_id, current_elo, starting_elo, mu, sigma, matches_played, created_at
		FROM players
		WHERE team_id = ANY($1)
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.SteamID, &p.Name, &p.TeamID, &p.CurrentElo, &p.StartingElo,
			&p.Mu, &p.Sigma, &p.MatchesPlayed, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan roster player: %w", err)
		}
		if p.TeamID != nil {
			if team, ok := teams[*p.TeamID]; ok {
				team.Players = append(team.Players, p)
			}
		}
	}
	return rows.Err()
}

func (r *postgresTeamRepository) AddToTournament(ctx context.Context, exec SQLExecutor, tournamentID, teamID, seed int) error {
	query := `INSERT INTO tournament_teams (tournament_id, team_id, seed) VALUES ($1, $2, $3)`
	if _, err := exec.ExecContext(ctx, query, tournamentID, teamID, seed); err != nil {
		return fmt.Errorf("failed to register team %d for tournament %d: %w", teamID, tournamentID, err)
	}
	return nil
}
