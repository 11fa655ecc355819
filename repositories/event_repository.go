package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/scrimline/tournament-engine/models"
)

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error
	ListBySlug(ctx context.Context, slug string) ([]models.MatchEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO match_events (id, match_slug, type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING received_at`

	err := exec.QueryRowContext(ctx, query,
		event.ID, event.MatchSlug, event.Type, []byte(event.Payload),
	).Scan(&event.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to store event %s for match %s: %w", event.Type, event.MatchSlug, err)
	}
	return nil
}

func (r *postgresEventRepository) ListBySlug(ctx context.Context, slug string) ([]models.MatchEvent, error) {
	query := `
		SELECT id, match_slug, type, payload, received_at
		FROM match_events WHERE match_slug = $1
		ORDER BY received_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %s: %w", slug, err)
	}
	defer rows.Close()

	events := make([]models.MatchEvent, 0)
	for rows.Next() {
		var e models.MatchEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.MatchSlug, &e.Type, &payload, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}
