package brackets

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/scrimline/tournament-engine/models"
)

type SwissGenerator struct{}

func NewSwissGenerator() *SwissGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) Type() models.TournamentType {
	return models.TypeSwiss
}

// swissRounds: явный лимит из настроек турнира либо ceil(log2(N)).
func swissRounds(t *models.Tournament, teamCount int) int {
	if t != nil && t.MaxRounds != nil && *t.MaxRounds > 0 {
		return *t.MaxRounds
	}
	return int(math.Ceil(math.Log2(float64(teamCount))))
}

// Generate создаёт только первый раунд: посевная жеребьёвка, верхняя
// половина против нижней. При нечётном числе участников низший сид
// получает bye. Последующие раунды порождает AdvanceRound.
func (g *SwissGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	ordered := make([]*models.Team, len(params.Teams))
	copy(ordered, params.Teams)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seed < ordered[j].Seed })

	matches := make([]*BracketMatch, 0, len(ordered)/2+1)

	if len(ordered)%2 != 0 {
		bye := ordered[len(ordered)-1]
		ordered = ordered[:len(ordered)-1]
		matches = append(matches, swissBye(1, bye.ID))
	}

	half := len(ordered) / 2
	for i := 0; i < half; i++ {
		t1, t2 := ordered[i].ID, ordered[i+half].ID
		matches = append(matches, &BracketMatch{
			UID:          fmt.Sprintf("SR1M%d", i+1),
			Side:         models.SideNone,
			Round:        1,
			OrderInRound: i + 1,
			Team1ID:      &t1,
			Team2ID:      &t2,
		})
	}

	return matches, nil
}

func swissBye(round, teamID int) *BracketMatch {
	id := teamID
	return &BracketMatch{
		UID:          fmt.Sprintf("SR%dBYE", round),
		Side:         models.SideNone,
		Round:        round,
		OrderInRound: 0,
		IsBye:        true,
		ByeTeamID:    &id,
		Team1ID:      &id,
	}
}

// AdvanceRound генерирует пары следующего раунда: команды упорядочиваются
// по числу побед, внутри группы - по рейтингу; повторные встречи
// исключаются перебором с откатом, при невозможности - детерминированный
// fallback с допуском rematch. Bye достаётся низшей команде, ещё не
// получавшей его, и той же команде дважды не даётся, пока есть альтернатива.
func (g *SwissGenerator) AdvanceRound(ctx context.Context, params AdvanceParams) (*RoundAdvance, error) {
	for _, m := range params.Matches {
		if m.Round == params.CompletedRound && !m.Status.IsTerminal() {
			return &RoundAdvance{NextRound: params.CompletedRound}, nil
		}
	}

	wins, played, byes := swissHistory(params.Matches)

	if params.CompletedRound >= swissRounds(params.Tournament, len(params.Teams)) {
		winner := topByWins(params.Teams, params.Matches)
		return &RoundAdvance{Complete: true, WinnerTeamID: winner}, nil
	}

	ordered := make([]*models.Team, len(params.Teams))
	copy(ordered, params.Teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if wins[a.ID] != wins[b.ID] {
			return wins[a.ID] > wins[b.ID]
		}
		ra, rb := teamRating(a), teamRating(b)
		if ra != rb {
			return ra > rb
		}
		return a.Seed < b.Seed
	})

	nextRound := params.CompletedRound + 1
	matches := make([]*BracketMatch, 0, len(ordered)/2+1)

	if len(ordered)%2 != 0 {
		byeIdx := len(ordered) - 1
		for i := len(ordered) - 1; i >= 0; i-- {
			if !byes[ordered[i].ID] {
				byeIdx = i
				break
			}
		}
		matches = append(matches, swissBye(nextRound, ordered[byeIdx].ID))
		ordered = append(ordered[:byeIdx:byeIdx], ordered[byeIdx+1:]...)
	}

	pairs, ok := pairAvoidingRematch(ordered, played)
	if !ok {
		// Избежать повторов нельзя - берём пары подряд по порядку.
		pairs = pairs[:0]
		for i := 0; i+1 < len(ordered); i += 2 {
			pairs = append(pairs, [2]*models.Team{ordered[i], ordered[i+1]})
		}
	}

	for i, p := range pairs {
		t1, t2 := p[0].ID, p[1].ID
		matches = append(matches, &BracketMatch{
			UID:          fmt.Sprintf("SR%dM%d", nextRound, i+1),
			Side:         models.SideNone,
			Round:        nextRound,
			OrderInRound: i + 1,
			Team1ID:      &t1,
			Team2ID:      &t2,
		})
	}

	return &RoundAdvance{NextRound: nextRound, Matches: matches}, nil
}

func swissHistory(matches []*models.Match) (wins map[int]int, played map[[2]int]bool, byes map[int]bool) {
	wins = make(map[int]int)
	played = make(map[[2]int]bool)
	byes = make(map[int]bool)
	for _, m := range matches {
		if m.WinnerID != nil {
			wins[*m.WinnerID]++
		}
		if m.Team1ID != nil && m.Team2ID == nil {
			byes[*m.Team1ID] = true
			continue
		}
		if m.Team1ID != nil && m.Team2ID != nil {
			played[pairKey(*m.Team1ID, *m.Team2ID)] = true
		}
	}
	return wins, played, byes
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// pairAvoidingRematch перебором ищет полное разбиение на пары без
// повторных встреч; порядок кандидатов сохраняет близость по таблице.
func pairAvoidingRematch(ordered []*models.Team, played map[[2]int]bool) ([][2]*models.Team, bool) {
	if len(ordered) == 0 {
		return nil, true
	}
	first := ordered[0]
	for i := 1; i < len(ordered); i++ {
		opponent := ordered[i]
		if played[pairKey(first.ID, opponent.ID)] {
			continue
		}
		rest := make([]*models.Team, 0, len(ordered)-2)
		rest = append(rest, ordered[1:i]...)
		rest = append(rest, ordered[i+1:]...)
		tail, ok := pairAvoidingRematch(rest, played)
		if ok {
			return append([][2]*models.Team{{first, opponent}}, tail...), true
		}
	}
	return nil, false
}

func teamRating(t *models.Team) int {
	if len(t.Players) == 0 {
		return 0
	}
	sum := 0
	for _, p := range t.Players {
		sum += p.CurrentElo
	}
	return sum / len(t.Players)
}
