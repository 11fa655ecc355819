package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/scrimline/tournament-engine/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentConflict = errors.New("another active tournament already exists")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetActive возвращает единственный турнир со статусом setup или
	// in_progress, либо ErrTournamentNotFound.
	GetActive(ctx context.Context) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, winnerTeamID *int) error
	UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, type, format, status, map_pool, current_round, max_rounds,
	overtime_enabled, rating_template_id, winner_team_id, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, type, format, status, map_pool, max_rounds, overtime_enabled, rating_template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, current_round, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.Name,
		t.Type,
		t.Format,
		t.Status,
		pq.Array(t.MapPool),
		t.MaxRounds,
		t.OvertimeEnabled,
		t.RatingTemplateID,
	).Scan(&t.ID, &t.CurrentRound, &t.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		// Частичный уникальный индекс на status IN ('setup','in_progress')
		// гарантирует единственность активного турнира.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrTournamentConflict
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetActive(ctx context.Context) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status IN ('setup', 'in_progress') LIMIT 1`
	return r.scanTournament(r.db.QueryRowContext(ctx, query))
}

func (r *postgresTournamentRepository) scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Type,
		&t.Format,
		&t.Status,
		pq.Array(&t.MapPool),
		&t.CurrentRound,
		&t.MaxRounds,
		&t.OvertimeEnabled,
		&t.RatingTemplateID,
		&t.WinnerTeamID,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, winnerTeamID *int) error {
	query := `UPDATE tournaments SET status = $1, winner_team_id = COALESCE($2, winner_team_id) WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, status, winnerTeamID, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error {
	query := `UPDATE tournaments SET current_round = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, round, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d round: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete каскадно удаляет турнир вместе с матчами (FK ON DELETE CASCADE).
func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
