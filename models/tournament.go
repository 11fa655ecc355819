package models

import "time"

// TournamentType соответствует ENUM tournament_type в БД.
type TournamentType string

const (
	TypeSingleElimination TournamentType = "single_elimination"
	TypeDoubleElimination TournamentType = "double_elimination"
	TypeRoundRobin        TournamentType = "round_robin"
	TypeSwiss             TournamentType = "swiss"
)

type SeriesFormat string

const (
	FormatBo1 SeriesFormat = "bo1"
	FormatBo3 SeriesFormat = "bo3"
	FormatBo5 SeriesFormat = "bo5"
)

// MapsToWin возвращает число карт, необходимое для победы в серии.
func (f SeriesFormat) MapsToWin() int {
	switch f {
	case FormatBo3:
		return 2
	case FormatBo5:
		return 3
	default:
		return 1
	}
}

// MapCount возвращает полное число карт серии.
func (f SeriesFormat) MapCount() int {
	switch f {
	case FormatBo3:
		return 3
	case FormatBo5:
		return 5
	default:
		return 1
	}
}

type TournamentStatus string

const (
	TournamentSetup      TournamentStatus = "setup"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
)

// Tournament представляет турнир. В системе одновременно может быть
// только один турнир со статусом setup/in_progress.
type Tournament struct {
	ID               int              `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Type             TournamentType   `json:"type" db:"type"`
	Format           SeriesFormat     `json:"format" db:"format"`
	Status           TournamentStatus `json:"status" db:"status"`
	MapPool          []string         `json:"map_pool" db:"-"`
	CurrentRound     int              `json:"current_round" db:"current_round"`
	MaxRounds        *int             `json:"max_rounds,omitempty" db:"max_rounds"`
	OvertimeEnabled  bool             `json:"overtime_enabled" db:"overtime_enabled"`
	RatingTemplateID *int             `json:"rating_template_id,omitempty" db:"rating_template_id"`
	WinnerTeamID     *int             `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`

	// Связанные сущности, подгружаются сервисами при необходимости.
	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}
