// Package veto реализует переговоры по картам между двумя командами:
// чередующиеся баны и пики до полного согласования списка карт серии.
package veto

import (
	"errors"
	"fmt"
	"time"

	"github.com/scrimline/tournament-engine/models"
)

var ErrInvalidVetoAction = errors.New("invalid veto action")

// New создаёт состояние переговоров для матча. startTeamID делает первый
// ход; дальше ход строго чередуется между командами.
func New(format models.SeriesFormat, mapPool []string, team1ID, team2ID, startTeamID int) (*models.VetoState, error) {
	if len(mapPool) < format.MapCount() {
		return nil, fmt.Errorf("map pool of %d is too small for %s", len(mapPool), format)
	}
	if startTeamID != team1ID && startTeamID != team2ID {
		return nil, fmt.Errorf("starting team %d is not a participant", startTeamID)
	}

	available := make([]string, len(mapPool))
	copy(available, mapPool)

	return &models.VetoState{
		Status:        models.VetoInProgress,
		Step:          0,
		TotalSteps:    totalSteps(format, len(mapPool)),
		TurnTeamID:    startTeamID,
		Team1ID:       team1ID,
		Team2ID:       team2ID,
		Format:        format,
		AvailableMaps: available,
		BannedMaps:    []string{},
		PickedMaps:    []models.PickedMap{},
		Actions:       []models.VetoAction{},
	}, nil
}

// totalSteps: bo1 - только баны, пока не останется одна карта. Для серий
// из M карт: до двух открывающих банов, M-1 пиков и max(0, P-2M) замыкающих
// банов; последняя карта назначается автоматически (decider).
func totalSteps(format models.SeriesFormat, poolSize int) int {
	if format == models.FormatBo1 {
		return poolSize - 1
	}
	m := format.MapCount()
	leading := min(2, poolSize-m)
	trailing := max(0, poolSize-2*m)
	return leading + (m - 1) + trailing
}

// stepAction возвращает тип действия для шага step (0-based).
func stepAction(format models.SeriesFormat, poolSize, step int) models.VetoActionType {
	if format == models.FormatBo1 {
		return models.VetoBan
	}
	m := format.MapCount()
	leading := min(2, poolSize-m)
	if step < leading {
		return models.VetoBan
	}
	if step < leading+(m-1) {
		return models.VetoPick
	}
	return models.VetoBan
}

// Apply применяет бан или пик. Отклонённое действие возвращает
// ErrInvalidVetoAction и оставляет состояние нетронутым.
func Apply(state *models.VetoState, teamID int, action models.VetoActionType, mapName string) error {
	if state.Status == models.VetoCompleted {
		return fmt.Errorf("%w: negotiation already completed", ErrInvalidVetoAction)
	}
	if state.PendingSideMap != "" {
		return fmt.Errorf("%w: side choice for %s is pending", ErrInvalidVetoAction, state.PendingSideMap)
	}
	if teamID != state.TurnTeamID {
		return fmt.Errorf("%w: not team %d's turn", ErrInvalidVetoAction, teamID)
	}
	expected := stepAction(state.Format, poolSize(state), state.Step)
	if action != expected {
		return fmt.Errorf("%w: step %d expects %s", ErrInvalidVetoAction, state.Step+1, expected)
	}
	idx := indexOf(state.AvailableMaps, mapName)
	if idx < 0 {
		return fmt.Errorf("%w: map %q is not available", ErrInvalidVetoAction, mapName)
	}

	state.AvailableMaps = append(state.AvailableMaps[:idx], state.AvailableMaps[idx+1:]...)
	state.Step++
	state.Actions = append(state.Actions, models.VetoAction{
		Step:      state.Step,
		TeamID:    teamID,
		Type:      action,
		Map:       mapName,
		Timestamp: time.Now().UTC(),
	})

	switch action {
	case models.VetoBan:
		state.BannedMaps = append(state.BannedMaps, mapName)
	case models.VetoPick:
		state.PickedMaps = append(state.PickedMaps, models.PickedMap{
			MapName:    mapName,
			MapNumber:  len(state.PickedMaps) + 1,
			PickedByID: teamID,
		})
		// Сторону на пикнутой карте выбирает не пикавшая команда.
		state.PendingSideMap = mapName
		state.PendingSideTeamID = opponent(state, teamID)
	}

	state.TurnTeamID = opponent(state, teamID)

	if state.Step >= state.TotalSteps {
		finalize(state)
	}
	return nil
}

// ChooseSide закрывает side-микрошаг после пика. Микрошаги не входят в
// счётчик бан/пик шагов.
func ChooseSide(state *models.VetoState, teamID int, side models.TeamSide) error {
	if state.PendingSideMap == "" {
		return fmt.Errorf("%w: no side choice is pending", ErrInvalidVetoAction)
	}
	if teamID != state.PendingSideTeamID {
		return fmt.Errorf("%w: side choice belongs to team %d", ErrInvalidVetoAction, state.PendingSideTeamID)
	}
	if side != models.SideCT && side != models.SideT {
		return fmt.Errorf("%w: side must be CT or T", ErrInvalidVetoAction)
	}

	for i := range state.PickedMaps {
		if state.PickedMaps[i].MapName != state.PendingSideMap {
			continue
		}
		// Сторона хранится с точки зрения team1.
		if teamID == state.Team1ID {
			state.PickedMaps[i].Team1Side = side
		} else {
			state.PickedMaps[i].Team1Side = otherSide(side)
		}
		break
	}

	state.Actions = append(state.Actions, models.VetoAction{
		TeamID:    teamID,
		Type:      models.VetoSide,
		Map:       state.PendingSideMap,
		Side:      side,
		Timestamp: time.Now().UTC(),
	})
	state.PendingSideMap = ""
	state.PendingSideTeamID = 0

	if state.Step >= state.TotalSteps {
		finalize(state)
	}
	return nil
}

// finalize добирает decider: последняя из оставшихся карт назначается
// автоматически, сторона на ней решается ножевым раундом. Завершение
// откладывается, пока не закрыт side-микрошаг последнего пика.
func finalize(state *models.VetoState) {
	if state.PendingSideMap != "" {
		return
	}
	if len(state.PickedMaps) < state.Format.MapCount() && len(state.AvailableMaps) > 0 {
		decider := state.AvailableMaps[len(state.AvailableMaps)-1]
		state.AvailableMaps = state.AvailableMaps[:len(state.AvailableMaps)-1]
		state.PickedMaps = append(state.PickedMaps, models.PickedMap{
			MapName:   decider,
			MapNumber: len(state.PickedMaps) + 1,
			Team1Side: models.SideKnife,
		})
	}
	state.Status = models.VetoCompleted
}

// FinalMaps возвращает согласованный упорядоченный список карт;
// валиден только после завершения переговоров.
func FinalMaps(state *models.VetoState) []models.PickedMap {
	if state.Status != models.VetoCompleted {
		return nil
	}
	return state.PickedMaps
}

func poolSize(state *models.VetoState) int {
	return len(state.AvailableMaps) + len(state.BannedMaps) + len(state.PickedMaps)
}

func opponent(state *models.VetoState, teamID int) int {
	if teamID == state.Team1ID {
		return state.Team2ID
	}
	return state.Team1ID
}

func otherSide(side models.TeamSide) models.TeamSide {
	if side == models.SideCT {
		return models.SideT
	}
	return models.SideCT
}

func indexOf(maps []string, name string) int {
	for i, m := range maps {
		if m == name {
			return i
		}
	}
	return -1
}
