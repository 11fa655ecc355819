package models

import "time"

type VetoStatus string

const (
	VetoInProgress VetoStatus = "in_progress"
	VetoCompleted  VetoStatus = "completed"
)

type VetoActionType string

const (
	VetoBan  VetoActionType = "ban"
	VetoPick VetoActionType = "pick"
	VetoSide VetoActionType = "side"
)

type TeamSide string

const (
	SideCT TeamSide = "CT"
	SideT  TeamSide = "T"
	// SideKnife - сторона решается ножевым раундом (для decider-карты).
	SideKnife TeamSide = "knife"
)

// VetoAction - запись в журнале переговоров. Step равен нулю для
// side-микрошагов: они не входят в счётчик бан/пик шагов.
type VetoAction struct {
	Step      int            `json:"step"`
	TeamID    int            `json:"team_id"`
	Type      VetoActionType `json:"type"`
	Map       string         `json:"map"`
	Side      TeamSide       `json:"side,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// PickedMap - выбранная карта серии с назначенным номером и стороной team1.
type PickedMap struct {
	MapName   string   `json:"map_name"`
	MapNumber int      `json:"map_number"`
	// PickedByID равен нулю для decider-карты, назначенной автоматически.
	PickedByID int      `json:"picked_by_id"`
	Team1Side  TeamSide `json:"team1_side"`
}

// VetoState - встроенное в матч состояние переговоров по картам.
// После перехода в VetoCompleted состояние не изменяется.
type VetoState struct {
	Status        VetoStatus   `json:"status"`
	Step          int          `json:"step"`
	TotalSteps    int          `json:"total_steps"`
	TurnTeamID    int          `json:"turn_team_id"`
	Team1ID       int          `json:"team1_id"`
	Team2ID       int          `json:"team2_id"`
	Format        SeriesFormat `json:"format"`
	AvailableMaps []string     `json:"available_maps"`
	BannedMaps    []string     `json:"banned_maps"`
	PickedMaps    []PickedMap  `json:"picked_maps"`
	Actions       []VetoAction `json:"actions"`

	// PendingSideMap - карта, для которой не-пикавшая команда ещё
	// должна выбрать сторону; блокирует следующий бан/пик.
	PendingSideMap    string `json:"pending_side_map,omitempty"`
	PendingSideTeamID int    `json:"pending_side_team_id,omitempty"`
}
