package models

// PlayerStanding - строка таблицы лидеров: производная от результатов
// матчей и текущего рейтинга, сортируется по рейтингу по убыванию.
type PlayerStanding struct {
	PlayerID   int     `json:"player_id"`
	Name       string  `json:"name"`
	TeamName   string  `json:"team_name,omitempty"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	CurrentElo int     `json:"current_elo"`
}

// RoundStatus - сводка по активному раунду турнира.
type RoundStatus struct {
	Round     int `json:"round"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Total     int `json:"total"`
}

// BracketMatchView - матч сетки с раскрытыми именами участников,
// для read-only отображения.
type BracketMatchView struct {
	MatchID    int         `json:"match_id"`
	Slug       string      `json:"slug"`
	Round      int         `json:"round"`
	Number     int         `json:"number"`
	Side       BracketSide `json:"side"`
	Team1Name  *string     `json:"team1_name,omitempty"`
	Team2Name  *string     `json:"team2_name,omitempty"`
	WinnerName *string     `json:"winner_name,omitempty"`
	Status     MatchStatus `json:"status"`
	NextMatch  *int        `json:"next_match,omitempty"`
}

// BracketView - полностью материализованная сетка турнира.
type BracketView struct {
	TournamentID int                `json:"tournament_id"`
	Type         TournamentType     `json:"type"`
	Matches      []BracketMatchView `json:"matches"`
}
