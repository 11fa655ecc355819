package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/scrimline/tournament-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() *RoundRobinGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Type() models.TournamentType {
	return models.TypeRoundRobin
}

// Generate строит однокруговой турнир методом круга: один участник
// фиксируется, остальные вращаются. Для чётного N получается N-1 раундов
// по N/2 матчей, каждая пара встречается ровно один раз. Нечётный N
// дополняется bye-слотом: команда, попавшая на него, пропускает раунд.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(params.Teams)+1)
	for _, t := range params.Teams {
		ids = append(ids, t.ID)
	}
	const byeSlot = -1
	if len(ids)%2 != 0 {
		ids = append(ids, byeSlot)
	}

	n := len(ids)
	rounds := n - 1
	matches := make([]*BracketMatch, 0, rounds*n/2)

	// circle: ids[0] зафиксирован, хвост вращается по часовой стрелке.
	circle := make([]int, n)
	copy(circle, ids)

	for r := 1; r <= rounds; r++ {
		order := 0
		for i := 0; i < n/2; i++ {
			a, b := circle[i], circle[n-1-i]
			if a == byeSlot || b == byeSlot {
				continue
			}
			order++
			t1, t2 := a, b
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("RR%dM%d", r, order),
				Side:         models.SideNone,
				Round:        r,
				OrderInRound: order,
				Team1ID:      &t1,
				Team2ID:      &t2,
			})
		}
		// Вращение: последний элемент хвоста встаёт сразу за фиксированным.
		last := circle[n-1]
		copy(circle[2:], circle[1:n-1])
		circle[1] = last
	}

	return matches, nil
}

// AdvanceRound: все раунды созданы заранее; по завершении последнего
// победителем объявляется команда с наибольшим числом побед.
func (g *RoundRobinGenerator) AdvanceRound(ctx context.Context, params AdvanceParams) (*RoundAdvance, error) {
	totalRounds := 0
	pending := false
	for _, m := range params.Matches {
		if m.Round > totalRounds {
			totalRounds = m.Round
		}
		if !m.Status.IsTerminal() {
			pending = true
		}
	}
	if !roundSettled(params.Matches, params.CompletedRound) {
		return &RoundAdvance{NextRound: params.CompletedRound}, nil
	}
	if pending || params.CompletedRound < totalRounds {
		return &RoundAdvance{NextRound: params.CompletedRound + 1}, nil
	}

	winner := topByWins(params.Teams, params.Matches)
	return &RoundAdvance{Complete: true, WinnerTeamID: winner}, nil
}

func topByWins(teams []*models.Team, matches []*models.Match) *int {
	wins := make(map[int]int, len(teams))
	for _, m := range matches {
		if m.WinnerID != nil {
			wins[*m.WinnerID]++
		}
	}

	ranked := make([]*models.Team, len(teams))
	copy(ranked, teams)
	sort.SliceStable(ranked, func(i, j int) bool {
		if wins[ranked[i].ID] != wins[ranked[j].ID] {
			return wins[ranked[i].ID] > wins[ranked[j].ID]
		}
		return ranked[i].Seed < ranked[j].Seed
	})

	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0].ID
}
