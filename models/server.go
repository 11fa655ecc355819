package models

import "time"

// ServerStatus - статус, который dedicated-сервер сообщает о себе.
// Для состояния матча он считается источником истины.
type ServerStatus string

const (
	ServerIdle     ServerStatus = "idle"
	ServerLoading  ServerStatus = "loading"
	ServerWarmup   ServerStatus = "warmup"
	ServerKnife    ServerStatus = "knife"
	ServerLive     ServerStatus = "live"
	ServerPaused   ServerStatus = "paused"
	ServerHalftime ServerStatus = "halftime"
	ServerPostgame ServerStatus = "postgame"
	ServerError    ServerStatus = "error"
	ServerOffline  ServerStatus = "offline"
)

// Server - игровой сервер из пула. CurrentMatchID == nil означает,
// что сервер свободен; захват выполняется compare-and-swap обновлением.
type Server struct {
	ID             int          `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Address        string       `json:"address" db:"address"`
	RconPassword   string       `json:"-" db:"rcon_password"`
	Enabled        bool         `json:"enabled" db:"enabled"`
	CurrentMatchID *int         `json:"current_match_id,omitempty" db:"current_match_id"`
	Status         ServerStatus `json:"status" db:"status"`
	LastStatusAt   *time.Time   `json:"last_status_at,omitempty" db:"last_status_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// ServerReport - разобранный отчёт сервера о состоянии матча
// (из опроса cvar-ов или из входящего события).
type ServerReport struct {
	Status     ServerStatus
	MapNumber  int
	Team1Score int
	Team2Score int
	ReportedAt time.Time
}

// MatchStatusFor переводит серверный статус в статус матча.
func (s ServerStatus) MatchStatusFor() (MatchStatus, bool) {
	switch s {
	case ServerLoading:
		return MatchLoading, true
	case ServerWarmup:
		return MatchWarmup, true
	case ServerKnife:
		return MatchKnife, true
	case ServerLive:
		return MatchLive, true
	case ServerPaused:
		return MatchPaused, true
	case ServerHalftime:
		return MatchHalftime, true
	case ServerPostgame:
		return MatchPostgame, true
	case ServerError:
		return MatchError, true
	default:
		return "", false
	}
}
