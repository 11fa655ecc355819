package models

import "time"

// Player хранит отображаемый рейтинг и параметры скилла (mu, sigma).
// Рейтинг меняется только движком рейтинга, один раз за завершённый матч.
type Player struct {
	ID            int       `json:"id" db:"id"`
	SteamID       string    `json:"steam_id" db:"steam_id"`
	Name          string    `json:"name" db:"name"`
	TeamID        *int      `json:"team_id,omitempty" db:"team_id"`
	CurrentElo    int       `json:"current_elo" db:"current_elo"`
	StartingElo   int       `json:"starting_elo" db:"starting_elo"`
	Mu            float64   `json:"mu" db:"mu"`
	Sigma         float64   `json:"sigma" db:"sigma"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
