package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/models"
)

func skeletonByUID(t *testing.T, matches []*BracketMatch, uid string) *BracketMatch {
	t.Helper()
	for _, m := range matches {
		if m.UID == uid {
			return m
		}
	}
	t.Fatalf("skeleton %s not found", uid)
	return nil
}

func TestSingleEliminationFourTeams(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(4),
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Посев: сид 1 встречает сид 4, сид 2 встречает сид 3.
	m1 := skeletonByUID(t, matches, "R1M1")
	require.NotNil(t, m1.Team1ID)
	require.NotNil(t, m1.Team2ID)
	assert.Equal(t, 1, *m1.Team1ID)
	assert.Equal(t, 4, *m1.Team2ID)

	m2 := skeletonByUID(t, matches, "R1M2")
	assert.Equal(t, 2, *m2.Team1ID)
	assert.Equal(t, 3, *m2.Team2ID)

	final := skeletonByUID(t, matches, "R2M1")
	assert.Equal(t, models.SideWinners, final.Side)
	require.NotNil(t, final.Source1)
	require.NotNil(t, final.Source2)
	assert.Equal(t, SlotSource{MatchUID: "R1M1", Take: TakeWinner}, *final.Source1)
	assert.Equal(t, SlotSource{MatchUID: "R1M2", Take: TakeWinner}, *final.Source2)
}

func TestSingleEliminationFiveTeamsByes(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(5),
	})
	require.NoError(t, err)

	byes := 0
	real := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			require.NotNil(t, m.ByeTeamID, "bye skeleton must carry the advancing team")
		} else {
			real++
		}
	}
	// Решётка на 8 слотов: три bye в первом раунде, четыре настоящих матча.
	assert.Equal(t, 3, byes)
	assert.Equal(t, 4, real)

	// Единственный настоящий матч первого раунда: сиды 4 и 5.
	m := skeletonByUID(t, matches, "R1M2")
	assert.False(t, m.IsBye)
	assert.Equal(t, 4, *m.Team1ID)
	assert.Equal(t, 5, *m.Team2ID)

	// Топ-сид проходит первый раунд без игры.
	bye := skeletonByUID(t, matches, "R1M1")
	assert.True(t, bye.IsBye)
	assert.Equal(t, 1, *bye.ByeTeamID)
}

func TestSingleEliminationAdvanceRound(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	winner := 2

	t.Run("final decided", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches: []*models.Match{
				{ID: 1, Round: 1, NextMatchID: intPtr(3), Status: models.MatchCompleted},
				{ID: 3, Round: 2, Status: models.MatchCompleted, WinnerID: &winner},
			},
			CompletedRound: 2,
		})
		require.NoError(t, err)
		assert.True(t, advance.Complete)
		require.NotNil(t, advance.WinnerTeamID)
		assert.Equal(t, winner, *advance.WinnerTeamID)
	})

	t.Run("live match holds the round", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches: []*models.Match{
				{ID: 1, Round: 1, NextMatchID: intPtr(3), Status: models.MatchCompleted},
				{ID: 2, Round: 1, NextMatchID: intPtr(3), Status: models.MatchLive},
				{ID: 3, Round: 2, Status: models.MatchPending},
			},
			CompletedRound: 1,
		})
		require.NoError(t, err)
		assert.False(t, advance.Complete)
		assert.Equal(t, 1, advance.NextRound)
	})

	t.Run("final pending", func(t *testing.T) {
		advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
			Matches: []*models.Match{
				{ID: 1, Round: 1, NextMatchID: intPtr(3), Status: models.MatchCompleted},
				{ID: 3, Round: 2, Status: models.MatchPending},
			},
			CompletedRound: 1,
		})
		require.NoError(t, err)
		assert.False(t, advance.Complete)
		assert.Equal(t, 2, advance.NextRound)
	})
}

func intPtr(v int) *int { return &v }
