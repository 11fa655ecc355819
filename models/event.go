package models

import (
	"encoding/json"
	"time"
)

// MatchEventType - типы событий, которые присылают игровые серверы.
type MatchEventType string

const (
	EventSeriesStart     MatchEventType = "series_start"
	EventGoingLive       MatchEventType = "going_live"
	EventRoundEnd        MatchEventType = "round_end"
	EventMapResult       MatchEventType = "map_result"
	EventSeriesEnd       MatchEventType = "series_end"
	EventStatusChanged   MatchEventType = "status_changed"
	EventDemoUploadEnded MatchEventType = "demo_upload_ended"
)

// MatchEvent - входящее событие матча, сохраняется append-only до обработки
// (аудит и возможность реплея). Payload хранится как есть.
type MatchEvent struct {
	ID         string          `json:"id" db:"id"`
	MatchSlug  string          `json:"match_slug" db:"match_slug"`
	Type       MatchEventType  `json:"type" db:"type"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	ReceivedAt time.Time       `json:"received_at" db:"received_at"`
}

// RoundEndPayload - счёт после раунда.
type RoundEndPayload struct {
	MapNumber  int    `json:"map_number"`
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// MapResultPayload - итог карты вместе со статистикой игроков.
type MapResultPayload struct {
	MapNumber  int               `json:"map_number"`
	MapName    string            `json:"map_name"`
	Team1Score int               `json:"team1_score"`
	Team2Score int               `json:"team2_score"`
	Players    []PlayerStatsLine `json:"players,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
}

type PlayerStatsLine struct {
	SteamID string `json:"steamid"`
	Name    string `json:"name"`
	Kills   int    `json:"kills"`
	Deaths  int    `json:"deaths"`
	Assists int    `json:"assists"`
	Damage  int    `json:"damage"`
}

// StatusChangedPayload - отчёт сервера о смене фазы.
type StatusChangedPayload struct {
	Status    string `json:"status"`
	MapNumber int    `json:"map_number"`
	Timestamp string `json:"timestamp,omitempty"`
}
