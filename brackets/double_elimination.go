package brackets

import (
	"context"
	"fmt"

	"github.com/scrimline/tournament-engine/models"
)

const (
	uidGrandFinal      = "GF1"
	uidGrandFinalReset = "GF2"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Type() models.TournamentType {
	return models.TypeDoubleElimination
}

// Generate строит winners-сетку как в single elimination, losers-сетку с
// 2k-2 раундами для решётки 2^k и гранд-финал. Вторая карта гранд-финала
// генерируется заранее как contingent-скелет и играется только при
// bracket reset - когда чемпион нижней сетки берёт первую.
func (g *DoubleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	wb, wbFinalUID, err := generateElimination(params.Teams, "WR", models.SideWinners)
	if err != nil {
		return nil, err
	}

	size := bracketSize(len(params.Teams))
	k := numRounds(size)

	matches := make([]*BracketMatch, 0, 2*len(params.Teams))
	matches = append(matches, wb...)

	var lbChampion *node
	if k >= 2 {
		var lb []*BracketMatch
		lb, lbChampion = generateLosersBracket(wb, size, k)
		matches = append(matches, lb...)
	} else {
		// Два участника: нижней сетки нет, проигравший единственного
		// матча сразу попадает в гранд-финал.
		lbChampion = sourceNode(wbFinalUID, TakeLoser)
	}

	gf1 := &BracketMatch{
		UID:          uidGrandFinal,
		Side:         models.SideGrandFinal,
		Round:        1,
		OrderInRound: 1,
		Source1:      &SlotSource{MatchUID: wbFinalUID, Take: TakeWinner},
	}
	gf1.Team2ID, gf1.Source2 = lbChampion.teamID, lbChampion.source

	gf2 := &BracketMatch{
		UID:          uidGrandFinalReset,
		Side:         models.SideGrandFinal,
		Round:        2,
		OrderInRound: 1,
		Source1:      &SlotSource{MatchUID: uidGrandFinal, Take: TakeWinner},
		Source2:      &SlotSource{MatchUID: uidGrandFinal, Take: TakeLoser},
		IsContingent: true,
	}

	matches = append(matches, gf1, gf2)
	return matches, nil
}

// generateLosersBracket строит нижнюю сетку поверх структуры winners-сетки.
// Слоты, в которые должен был упасть проигравший bye-матча, схлопываются:
// матч с единственным реальным источником не создаётся, источник проходит
// в следующий раунд напрямую.
func generateLosersBracket(wb []*BracketMatch, size, k int) ([]*BracketMatch, *node) {
	matches := make([]*BracketMatch, 0, size)

	// Источники проигравших по раундам winners-сетки, в структурном порядке.
	losers := make(map[int][]*node)
	for _, m := range wb {
		if m.IsBye {
			losers[m.Round] = append(losers[m.Round], nil)
			continue
		}
		losers[m.Round] = append(losers[m.Round], sourceNode(m.UID, TakeLoser))
	}

	pair := func(round, order int, n1, n2 *node) *node {
		switch {
		case n1.isBye() && n2.isBye():
			return nil
		case n2.isBye():
			return n1
		case n1.isBye():
			return n2
		}
		bm := &BracketMatch{
			UID:          fmt.Sprintf("LR%dM%d", round, order),
			Side:         models.SideLosers,
			Round:        round,
			OrderInRound: order,
		}
		bm.Team1ID, bm.Source1 = n1.teamID, n1.source
		bm.Team2ID, bm.Source2 = n2.teamID, n2.source
		matches = append(matches, bm)
		return sourceNode(bm.UID, TakeWinner)
	}

	// LR1: проигравшие первого раунда winners-сетки попарно.
	r1 := losers[1]
	slots := make([]*node, 0, size/4)
	for i := 0; i+1 < len(r1); i += 2 {
		slots = append(slots, pair(1, i/2+1, r1[i], r1[i+1]))
	}

	lbRound := 1
	for r := 2; r <= k; r++ {
		// Drop-in раунд: проигравшие winners-раунда r встречают
		// выживших нижней сетки. Порядок дропа разворачивается через
		// раунд, чтобы отодвинуть повторные встречи.
		lbRound++
		drop := losers[r]
		if r%2 == 0 {
			reverseNodes(drop)
		}
		merged := make([]*node, len(slots))
		for i := range slots {
			merged[i] = pair(lbRound, i+1, slots[i], drop[i])
		}
		slots = merged

		if r < k {
			lbRound++
			half := make([]*node, 0, len(slots)/2)
			for i := 0; i+1 < len(slots); i += 2 {
				half = append(half, pair(lbRound, i/2+1, slots[i], slots[i+1]))
			}
			slots = half
		}
	}

	return matches, slots[0]
}

func reverseNodes(nodes []*node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}

// AdvanceRound проверяет исход гранд-финала. Если первую карту взял чемпион
// winners-сетки (слот 1), турнир завершён и reset-матч отменяется; иначе
// итог определяет вторая карта.
func (g *DoubleEliminationGenerator) AdvanceRound(ctx context.Context, params AdvanceParams) (*RoundAdvance, error) {
	gf1 := findByBracketUID(params.Matches, uidGrandFinal)
	gf2 := findByBracketUID(params.Matches, uidGrandFinalReset)

	if gf1 != nil && gf1.WinnerID != nil {
		if gf1.Team1ID != nil && *gf1.WinnerID == *gf1.Team1ID {
			return &RoundAdvance{Complete: true, WinnerTeamID: gf1.WinnerID}, nil
		}
		// Bracket reset: у обеих команд по одному поражению, играется GF2.
		if gf2 != nil && gf2.WinnerID != nil {
			return &RoundAdvance{Complete: true, WinnerTeamID: gf2.WinnerID}, nil
		}
		return &RoundAdvance{NextRound: params.CompletedRound}, nil
	}
	if !roundSettled(params.Matches, params.CompletedRound) {
		return &RoundAdvance{NextRound: params.CompletedRound}, nil
	}
	return &RoundAdvance{NextRound: params.CompletedRound + 1}, nil
}

func findByBracketUID(matches []*models.Match, uid string) *models.Match {
	for _, m := range matches {
		if m.BracketUID != nil && *m.BracketUID == uid {
			return m
		}
	}
	return nil
}
