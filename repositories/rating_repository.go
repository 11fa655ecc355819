package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scrimline/tournament-engine/models"
)

var (
	ErrRatingTemplateNotFound = errors.New("rating template not found")
	ErrRatingHistoryNotFound  = errors.New("rating history not found")
)

type RatingRepository interface {
	GetTemplate(ctx context.Context, id int) (*models.RatingTemplate, error)
	CreateHistory(ctx context.Context, exec SQLExecutor, history *models.RatingHistory) error
	// GetByPlayerAndMatch используется для идемпотентности пересчёта.
	GetByPlayerAndMatch(ctx context.Context, playerID, matchID int) (*models.RatingHistory, error)
	ListByPlayer(ctx context.Context, playerID int, limit int) ([]models.RatingHistory, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetTemplate(ctx context.Context, id int) (*models.RatingTemplate, error) {
	query := `
		SELECT id, name, kill_weight, death_weight, assist_weight, damage_weight,
		       min_adjustment, max_adjustment
		FROM rating_templates WHERE id = $1`

	t := &models.RatingTemplate{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.KillWeight, &t.DeathWeight, &t.AssistWeight, &t.DamageWeight,
		&t.MinAdjustment, &t.MaxAdjustment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get rating template %d: %w", id, err)
	}
	return t, nil
}

const ratingHistoryColumns = `id, player_id, match_id, tournament_id, template_id,
	elo_before, elo_after, mu_before, mu_after, sigma_before, sigma_after,
	base_delta, stat_adjustment, created_at`

func (r *postgresRatingRepository) CreateHistory(ctx context.Context, exec SQLExecutor, history *models.RatingHistory) error {
	query := `
		INSERT INTO rating_history
			(player_id, match_id, tournament_id, template_id,
			 elo_before, elo_after, mu_before, mu_after, sigma_before, sigma_after,
			 base_delta, stat_adjustment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		history.PlayerID, history.MatchID, history.TournamentID, history.TemplateID,
		history.EloBefore, history.EloAfter, history.MuBefore, history.MuAfter,
		history.SigmaBefore, history.SigmaAfter,
		history.BaseDelta, history.StatAdjustment,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rating history for player %d: %w", history.PlayerID, err)
	}
	return nil
}

func (r *postgresRatingRepository) GetByPlayerAndMatch(ctx context.Context, playerID, matchID int) (*models.RatingHistory, error) {
	query := `SELECT ` + ratingHistoryColumns + ` FROM rating_history
		WHERE player_id = $1 AND match_id = $2`

	h := &models.RatingHistory{}
	err := r.db.QueryRowContext(ctx, query, playerID, matchID).Scan(
		&h.ID, &h.PlayerID, &h.MatchID, &h.TournamentID, &h.TemplateID,
		&h.EloBefore, &h.EloAfter, &h.MuBefore, &h.MuAfter, &h.SigmaBefore, &h.SigmaAfter,
		&h.BaseDelta, &h.StatAdjustment, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get rating history: %w", err)
	}
	return h, nil
}

func (r *postgresRatingRepository) ListByPlayer(ctx context.Context, playerID int, limit int) ([]models.RatingHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + ratingHistoryColumns + ` FROM rating_history
		WHERE player_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating history for player %d: %w", playerID, err)
	}
	defer rows.Close()

	history := make([]models.RatingHistory, 0)
	for rows.Next() {
		var h models.RatingHistory
		if err := rows.Scan(
			&h.ID, &h.PlayerID, &h.MatchID, &h.TournamentID, &h.TemplateID,
			&h.EloBefore, &h.EloAfter, &h.MuBefore, &h.MuAfter, &h.SigmaBefore, &h.SigmaAfter,
			&h.BaseDelta, &h.StatAdjustment, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating history row: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
