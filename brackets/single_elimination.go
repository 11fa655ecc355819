package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/scrimline/tournament-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Type() models.TournamentType {
	return models.TypeSingleElimination
}

// Generate строит полную сетку single elimination: участники сажаются по
// стандартному посеву, недостающие слоты добиваются byes, победитель каждого
// матча идёт в слот матча следующего раунда.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	matches, _, err := generateElimination(params.Teams, "R", models.SideWinners)
	if err != nil {
		return nil, err
	}
	sortSkeletons(matches)
	return matches, nil
}

// generateElimination - общая часть для winners-сетки single и double
// elimination. Возвращает матчи и UID финала.
func generateElimination(teams []*models.Team, uidPrefix string, side models.BracketSide) ([]*BracketMatch, string, error) {
	n := len(teams)
	size := bracketSize(n)
	rounds := numRounds(size)

	seeded := make([]*models.Team, len(teams))
	copy(seeded, teams)
	sort.SliceStable(seeded, func(i, j int) bool { return seeded[i].Seed < seeded[j].Seed })

	current := make([]*node, size)
	for pos, seed := range seedOrder(size) {
		if seed < n {
			current[pos] = teamNode(seeded[seed].ID)
		}
		// seed >= n: bye-слот, current[pos] остаётся nil
	}

	matches := make([]*BracketMatch, 0, size-1)
	finalUID := ""

	for r := 1; r <= rounds; r++ {
		next := make([]*node, 0, len(current)/2)
		order := 0

		for i := 0; i < len(current); i += 2 {
			n1, n2 := current[i], current[i+1]
			order++
			uid := fmt.Sprintf("%s%dM%d", uidPrefix, r, order)

			switch {
			case n1.isBye() && n2.isBye():
				// Оба слота пустые: при стандартном посеве такого не бывает,
				// но bye может протолкнуться из предыдущего раунда.
				next = append(next, nil)
				order--
			case n2.isBye():
				matches = append(matches, byeSkeleton(uid, side, r, order, n1))
				next = append(next, n1)
			case n1.isBye():
				matches = append(matches, byeSkeleton(uid, side, r, order, n2))
				next = append(next, n2)
			default:
				bm := &BracketMatch{UID: uid, Side: side, Round: r, OrderInRound: order}
				bm.Team1ID, bm.Source1 = n1.teamID, n1.source
				bm.Team2ID, bm.Source2 = n2.teamID, n2.source
				matches = append(matches, bm)
				next = append(next, sourceNode(uid, TakeWinner))
			}
			finalUID = uid
		}
		current = next
	}

	return matches, finalUID, nil
}

func byeSkeleton(uid string, side models.BracketSide, round, order int, winner *node) *BracketMatch {
	bm := &BracketMatch{
		UID:          uid,
		Side:         side,
		Round:        round,
		OrderInRound: order,
		IsBye:        true,
	}
	if winner.teamID != nil {
		bm.ByeTeamID = winner.teamID
		bm.Team1ID = winner.teamID
	} else {
		bm.Source1 = winner.source
	}
	return bm
}

func sortSkeletons(matches []*BracketMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
}

// AdvanceRound для elimination-форматов ничего не генерирует: сетка создана
// целиком заранее. Продвижение сводится к проверке, определён ли победитель
// финала. Номер раунда растёт только когда завершены все его матчи.
func (g *SingleEliminationGenerator) AdvanceRound(ctx context.Context, params AdvanceParams) (*RoundAdvance, error) {
	final := findFinal(params.Matches)
	if final != nil && final.WinnerID != nil {
		return &RoundAdvance{Complete: true, WinnerTeamID: final.WinnerID}, nil
	}
	if !roundSettled(params.Matches, params.CompletedRound) {
		return &RoundAdvance{NextRound: params.CompletedRound}, nil
	}
	return &RoundAdvance{NextRound: params.CompletedRound + 1}, nil
}

// findFinal ищет матч без forward-ссылки: в single elimination он ровно один.
func findFinal(matches []*models.Match) *models.Match {
	for _, m := range matches {
		if m.NextMatchID == nil && !m.IsContingent {
			return m
		}
	}
	return nil
}
