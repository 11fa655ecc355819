package gameserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scrimline/tournament-engine/models"
)

// Имена cvar-ов, через которые серверный плагин публикует состояние матча.
const (
	CvarStatus    = "tm_status"
	CvarMapNumber = "tm_map_number"
	CvarScoreT1   = "tm_score_t1"
	CvarScoreT2   = "tm_score_t2"
	CvarUpdatedAt = "tm_updated_at"
)

// StatusQuery - одна команда, печатающая все cvar-ы состояния.
func StatusQuery() string {
	return strings.Join([]string{CvarStatus, CvarMapNumber, CvarScoreT1, CvarScoreT2, CvarUpdatedAt}, "; ")
}

// MatchConfigCommands собирает серию команд, настраивающую сервер на матч:
// идентификатор, названия команд, очередь карт с назначенными сторонами.
func MatchConfigCommands(match *models.Match, team1, team2 *models.Team, maps []models.PickedMap, overtime bool) []string {
	queue := make([]string, 0, len(maps))
	sides := make([]string, 0, len(maps))
	for _, pm := range maps {
		queue = append(queue, pm.MapName)
		sides = append(sides, string(pm.Team1Side))
	}

	commands := []string{
		fmt.Sprintf("tm_matchid %q", match.Slug),
		fmt.Sprintf("mp_teamname_1 %q", team1.Name),
		fmt.Sprintf("mp_teamname_2 %q", team2.Name),
		fmt.Sprintf("tm_map_queue %q", strings.Join(queue, ",")),
		fmt.Sprintf("tm_side_queue %q", strings.Join(sides, ",")),
	}
	if overtime {
		commands = append(commands, "mp_overtime_enable 1")
	}
	commands = append(commands, "tm_loadmatch")
	return commands
}

// ReportFromCvars превращает разобранные cvar-ы в отчёт сервера.
// Отсутствующая или нулевая отметка времени заменяется текущим моментом.
func ReportFromCvars(cvars map[string]string) (models.ServerReport, error) {
	status := models.ServerStatus(cvars[CvarStatus])
	if status == "" {
		return models.ServerReport{}, fmt.Errorf("status cvar %q missing from response", CvarStatus)
	}

	report := models.ServerReport{
		Status:     status,
		MapNumber:  atoiOrZero(cvars[CvarMapNumber]),
		Team1Score: atoiOrZero(cvars[CvarScoreT1]),
		Team2Score: atoiOrZero(cvars[CvarScoreT2]),
		ReportedAt: time.Now().UTC(),
	}
	if unix := atoiOrZero(cvars[CvarUpdatedAt]); unix > 0 {
		report.ReportedAt = time.Unix(int64(unix), 0).UTC()
	}
	return report, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
