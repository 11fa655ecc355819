package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scrimline/tournament-engine/models"
)

var (
	ErrServerNotFound = errors.New("server not found")
	// ErrServerTaken возвращается, когда сервер уже занят другим матчем.
	ErrServerTaken = errors.New("server already claimed")
)

type ServerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, server *models.Server) error
	GetByID(ctx context.Context, id int) (*models.Server, error)
	ListEnabled(ctx context.Context) ([]*models.Server, error)
	ListFree(ctx context.Context) ([]*models.Server, error)
	Claim(ctx context.Context, exec SQLExecutor, serverID, matchID int) error
	Release(ctx context.Context, exec SQLExecutor, serverID int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, serverID int, status models.ServerStatus) error
}

type postgresServerRepository struct {
	db *sql.DB
}

func NewPostgresServerRepository(db *sql.DB) ServerRepository {
	return &postgresServerRepository{db: db}
}

const serverColumns = `id, name, address, rcon_password, enabled, status, current_match_id, last_status_at, created_at`

func (r *postgresServerRepository) Create(ctx context.Context, exec SQLExecutor, server *models.Server) error {
	query := `
		INSERT INTO servers (name, address, rcon_password, enabled, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		server.Name, server.Address, server.RconPassword, server.Enabled, server.Status,
	).Scan(&server.ID, &server.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create server %s: %w", server.Name, err)
	}
	return nil
}

func (r *postgresServerRepository) GetByID(ctx context.Context, id int) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`
	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Address, &s.RconPassword, &s.Enabled, &s.Status, &s.CurrentMatchID, &s.LastStatusAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("failed to get server %d: %w", id, err)
	}
	return s, nil
}

func (r *postgresServerRepository) ListEnabled(ctx context.Context) ([]*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE enabled = TRUE ORDER BY id ASC`
	return r.list(ctx, query)
}

func (r *postgresServerRepository) ListFree(ctx context.Context) ([]*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers
		WHERE enabled = TRUE AND current_match_id IS NULL
		ORDER BY id ASC`
	return r.list(ctx, query)
}

func (r *postgresServerRepository) list(ctx context.Context, query string) ([]*models.Server, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	servers := make([]*models.Server, 0)
	for rows.Next() {
		s := &models.Server{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.RconPassword,
			&s.Enabled, &s.Status, &s.CurrentMatchID, &s.LastStatusAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server row: %w", err)
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

// Claim занимает сервер под матч атомарно: обновление срабатывает только если
// сервер ещё свободен. Нулевое число затронутых строк означает проигранную гонку.
func (r *postgresServerRepository) Claim(ctx context.Context, exec SQLExecutor, serverID, matchID int) error {
	query := `
		UPDATE servers SET current_match_id = $1
		WHERE id = $2 AND enabled = TRUE AND current_match_id IS NULL`

	result, err := exec.ExecContext(ctx, query, matchID, serverID)
	if err != nil {
		return fmt.Errorf("failed to claim server %d: %w", serverID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return ErrServerTaken
	}
	return nil
}

func (r *postgresServerRepository) Release(ctx context.Context, exec SQLExecutor, serverID int) error {
	result, err := exec.ExecContext(ctx, `UPDATE servers SET current_match_id = NULL WHERE id = $1`, serverID)
	if err != nil {
		return fmt.Errorf("failed to release server %d: %w", serverID, err)
	}
	return checkAffectedRows(result, ErrServerNotFound)
}

func (r *postgresServerRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, serverID int, status models.ServerStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE servers SET status = $1, last_status_at = NOW() WHERE id = $2`, status, serverID)
	if err != nil {
		return fmt.Errorf("failed to update server %d status: %w", serverID, err)
	}
	return checkAffectedRows(result, ErrServerNotFound)
}
