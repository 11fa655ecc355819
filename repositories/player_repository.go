package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scrimline/tournament-engine/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetBySteamID(ctx context.Context, steamID string) (*models.Player, error)
	ListAll(ctx context.Context) ([]*models.Player, error)
	// UpdateRating перезаписывает рейтинг и параметры скилла; вызывается
	// только движком рейтинга.
	UpdateRating(ctx context.Context, exec SQLExecutor, id int, elo int, mu, sigma float64) error
	// UpdateTeam переводит существующего игрока в другую команду.
	UpdateTeam(ctx context.Context, exec SQLExecutor, id, teamID int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, steam_id, name, team_id, current_elo, starting_elo, mu, sigma, matches_played, created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (steam_id, name, team_id, current_elo, starting_elo, mu, sigma)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		player.SteamID, player.Name, player.TeamID,
		player.CurrentElo, player.StartingElo, player.Mu, player.Sigma,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player %s: %w", player.SteamID, err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetBySteamID(ctx context.Context, steamID string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE steam_id = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, steamID))
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(&p.ID, &p.SteamID, &p.Name, &p.TeamID, &p.CurrentElo, &p.StartingElo,
		&p.Mu, &p.Sigma, &p.MatchesPlayed, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) ListAll(ctx context.Context) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY current_elo DESC, name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p := &models.Player{}
		if err := rows.Scan(&p.ID, &p.SteamID, &p.Name, &p.TeamID, &p.CurrentElo, &p.StartingElo,
			&p.Mu, &p.Sigma, &p.MatchesPlayed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id int, elo int, mu, sigma float64) error {
	query := `
		UPDATE players
		SET current_elo = $1, mu = $2, sigma = $3, matches_played = matches_played + 1
		WHERE id = $4`
	result, err := exec.ExecContext(ctx, query, elo, mu, sigma, id)
	if err != nil {
		return fmt.Errorf("failed to update rating for player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateTeam(ctx context.Context, exec SQLExecutor, id, teamID int) error {
	result, err := exec.ExecContext(ctx, `UPDATE players SET team_id = $1 WHERE id = $2`, teamID, id)
	if err != nil {
		return fmt.Errorf("failed to move player %d to team %d: %w", id, teamID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
