package models

import "time"

// RatingTemplate - именованный набор весов статистики и границ stat-поправки.
// Ссылается из турнира и из каждой строки истории, никогда не встраивается.
type RatingTemplate struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	KillWeight    float64   `json:"kill_weight" db:"kill_weight"`
	DeathWeight   float64   `json:"death_weight" db:"death_weight"`
	AssistWeight  float64   `json:"assist_weight" db:"assist_weight"`
	DamageWeight  float64   `json:"damage_weight" db:"damage_weight"`
	MinAdjustment int       `json:"min_adjustment" db:"min_adjustment"`
	MaxAdjustment int       `json:"max_adjustment" db:"max_adjustment"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RatingHistory - append-only строка аудита на пару (игрок, матч).
// После создания не изменяется: after = before + base + stat всегда
// должно воспроизводиться из записанных полей.
type RatingHistory struct {
	ID             int       `json:"id" db:"id"`
	PlayerID       int       `json:"player_id" db:"player_id"`
	MatchID        int       `json:"match_id" db:"match_id"`
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	EloBefore      int       `json:"elo_before" db:"elo_before"`
	EloAfter       int       `json:"elo_after" db:"elo_after"`
	MuBefore       float64   `json:"mu_before" db:"mu_before"`
	MuAfter        float64   `json:"mu_after" db:"mu_after"`
	SigmaBefore    float64   `json:"sigma_before" db:"sigma_before"`
	SigmaAfter     float64   `json:"sigma_after" db:"sigma_after"`
	BaseDelta      int       `json:"base_delta" db:"base_delta"`
	StatAdjustment int       `json:"stat_adjustment" db:"stat_adjustment"`
	TemplateID     *int      `json:"template_id,omitempty" db:"template_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
