package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/models"
)

func TestDoubleEliminationFourTeams(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(4),
	})
	require.NoError(t, err)

	// 3 матча winners-сетки, 2 матча losers-сетки, гранд-финал и reset.
	require.Len(t, matches, 7)

	var winners, losers, grandFinals int
	for _, m := range matches {
		switch m.Side {
		case models.SideWinners:
			winners++
		case models.SideLosers:
			losers++
		case models.SideGrandFinal:
			grandFinals++
		}
	}
	assert.Equal(t, 3, winners)
	assert.Equal(t, 2, losers)
	assert.Equal(t, 2, grandFinals)

	// Первый раунд нижней сетки сводит проигравших первого раунда верхней.
	lr1 := skeletonByUID(t, matches, "LR1M1")
	require.NotNil(t, lr1.Source1)
	require.NotNil(t, lr1.Source2)
	assert.Equal(t, TakeLoser, lr1.Source1.Take)
	assert.Equal(t, TakeLoser, lr1.Source2.Take)

	// Drop-in: проигравший финала верхней сетки против выжившего нижней.
	lr2 := skeletonByUID(t, matches, "LR2M1")
	require.NotNil(t, lr2.Source2)
	assert.Equal(t, SlotSource{MatchUID: "WR2M1", Take: TakeLoser}, *lr2.Source2)

	gf1 := skeletonByUID(t, matches, "GF1")
	assert.False(t, gf1.IsContingent)
	require.NotNil(t, gf1.Source1)
	assert.Equal(t, SlotSource{MatchUID: "WR2M1", Take: TakeWinner}, *gf1.Source1)
	require.NotNil(t, gf1.Source2)
	assert.Equal(t, SlotSource{MatchUID: "LR2M1", Take: TakeWinner}, *gf1.Source2)

	gf2 := skeletonByUID(t, matches, "GF2")
	assert.True(t, gf2.IsContingent)
	assert.Equal(t, SlotSource{MatchUID: "GF1", Take: TakeWinner}, *gf2.Source1)
	assert.Equal(t, SlotSource{MatchUID: "GF1", Take: TakeLoser}, *gf2.Source2)
}

func TestDoubleEliminationTwoTeams(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(2),
	})
	require.NoError(t, err)

	// Нижней сетки нет: единственный матч, гранд-финал и reset.
	require.Len(t, matches, 3)

	gf1 := skeletonByUID(t, matches, "GF1")
	require.NotNil(t, gf1.Source2)
	assert.Equal(t, SlotSource{MatchUID: "WR1M1", Take: TakeLoser}, *gf1.Source2)
}

func TestDoubleEliminationAdvanceRound(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	gf1UID := "GF1"
	gf2UID := "GF2"
	team1, team2 := 1, 2

	gf1 := func(winnerID *int) *models.Match {
		return &models.Match{
			BracketUID: &gf1UID,
			Side:       models.SideGrandFinal,
			Team1ID:    &team1,
			Team2ID:    &team2,
			WinnerID:   winnerID,
		}
	}
	gf2 := func(winnerID *int) *models.Match {
		return &models.Match{
			BracketUID:   &gf2UID,
			Side:         models.SideGrandFinal,
			IsContingent: true,
			WinnerID:     winnerID,
		}
	}

	t.Run("live match holds the round", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches: []*models.Match{
				{Round: 1, Side: models.SideWinners, Status: models.MatchCompleted, WinnerID: &team1},
				{Round: 1, Side: models.SideWinners, Status: models.MatchLive},
				gf1(nil), gf2(nil),
			},
			CompletedRound: 1,
		})
		require.NoError(t, err)
		assert.False(t, advance.Complete)
		assert.Equal(t, 1, advance.NextRound)
	})

	t.Run("winners champion takes game one", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches:        []*models.Match{gf1(&team1), gf2(nil)},
			CompletedRound: 1,
		})
		require.NoError(t, err)
		assert.True(t, advance.Complete)
		assert.Equal(t, team1, *advance.WinnerTeamID)
	})

	t.Run("bracket reset keeps the tournament open", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches:        []*models.Match{gf1(&team2), gf2(nil)},
			CompletedRound: 1,
		})
		require.NoError(t, err)
		assert.False(t, advance.Complete)
	})

	t.Run("reset game decides", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches:        []*models.Match{gf1(&team2), gf2(&team2)},
			CompletedRound: 2,
		})
		require.NoError(t, err)
		assert.True(t, advance.Complete)
		assert.Equal(t, team2, *advance.WinnerTeamID)
	})
}
