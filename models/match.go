package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchVeto      MatchStatus = "veto"
	MatchLoading   MatchStatus = "loading"
	MatchWarmup    MatchStatus = "warmup"
	MatchKnife     MatchStatus = "knife"
	MatchLive      MatchStatus = "live"
	MatchPaused    MatchStatus = "paused"
	MatchHalftime  MatchStatus = "halftime"
	MatchPostgame  MatchStatus = "postgame"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
	MatchError     MatchStatus = "error"
)

// IsTerminal сообщает, является ли статус конечным.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchCompleted || s == MatchCancelled || s == MatchError
}

type BracketSide string

const (
	SideWinners    BracketSide = "winners"
	SideLosers     BracketSide = "losers"
	SideGrandFinal BracketSide = "grand_final"
	SideNone       BracketSide = "none"
)

// Match - матч турнирной сетки. next_match_id/loser_next_match_id образуют
// однонаправленные forward-ссылки (DAG, обратных ссылок в БД нет).
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Slug         string      `json:"slug" db:"slug"`
	Round        int         `json:"round" db:"round"`
	Number       int         `json:"number" db:"number"`
	Side         BracketSide `json:"side" db:"side"`
	BracketUID   *string     `json:"bracket_uid,omitempty" db:"bracket_uid"`

	Team1ID  *int `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID  *int `json:"team2_id,omitempty" db:"team2_id"`
	WinnerID *int `json:"winner_id,omitempty" db:"winner_id"`
	ServerID *int `json:"server_id,omitempty" db:"server_id"`

	Status MatchStatus `json:"status" db:"status"`

	NextMatchID        *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextMatchSlot      *int `json:"next_match_slot,omitempty" db:"next_match_slot"`
	LoserNextMatchID   *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextMatchSlot *int `json:"loser_next_match_slot,omitempty" db:"loser_next_match_slot"`

	// IsContingent - матч-скелет, который играется только при определённом
	// исходе (вторая карта гранд-финала при bracket reset).
	IsContingent bool `json:"is_contingent" db:"is_contingent"`

	Veto             *VetoState `json:"veto,omitempty" db:"-"`
	CurrentMapNumber int        `json:"current_map_number" db:"current_map_number"`

	// LastReportAt - отметка времени последнего принятого отчёта сервера.
	// Более старые отчёты отбрасываются как устаревшие.
	LastReportAt *time.Time `json:"last_report_at,omitempty" db:"last_report_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	MapResults []MapResult `json:"map_results,omitempty" db:"-"`
}

// MapResult - результат одной карты серии, append-only, ключ (match_id, map_number).
type MapResult struct {
	ID         int       `json:"id" db:"id"`
	MatchID    int       `json:"match_id" db:"match_id"`
	MapNumber  int       `json:"map_number" db:"map_number"`
	MapName    string    `json:"map_name" db:"map_name"`
	Team1Score int       `json:"team1_score" db:"team1_score"`
	Team2Score int       `json:"team2_score" db:"team2_score"`
	WinnerID   *int      `json:"winner_id,omitempty" db:"winner_id"`
	DemoKey    *string   `json:"demo_key,omitempty" db:"demo_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// PlayerMatchStats - статистика игрока на карте, источник stat-поправки рейтинга.
type PlayerMatchStats struct {
	ID        int    `json:"id" db:"id"`
	MatchID   int    `json:"match_id" db:"match_id"`
	MapNumber int    `json:"map_number" db:"map_number"`
	PlayerID  int    `json:"player_id" db:"player_id"`
	SteamID   string `json:"steam_id" db:"steam_id"`
	Kills     int    `json:"kills" db:"kills"`
	Deaths    int    `json:"deaths" db:"deaths"`
	Assists   int    `json:"assists" db:"assists"`
	Damage    int    `json:"damage" db:"damage"`
}
