package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/models"
)

func TestSwissFirstRoundPairing(t *testing.T) {
	gen := NewSwissGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(6),
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Верхняя половина посева против нижней: 1-4, 2-5, 3-6.
	want := [][2]int{{1, 4}, {2, 5}, {3, 6}}
	for i, m := range matches {
		assert.Equal(t, want[i][0], *m.Team1ID)
		assert.Equal(t, want[i][1], *m.Team2ID)
		assert.Equal(t, 1, m.Round)
	}
}

func TestSwissFirstRoundOddTeams(t *testing.T) {
	gen := NewSwissGenerator()
	matches, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(5),
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Bye получает низший сид.
	bye := matches[0]
	require.True(t, bye.IsBye)
	require.NotNil(t, bye.ByeTeamID)
	assert.Equal(t, 5, *bye.ByeTeamID)
}

func TestSwissAdvanceWaitsForRound(t *testing.T) {
	gen := NewSwissGenerator()
	advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(4),
		Matches: []*models.Match{
			{Round: 1, Team1ID: intPtr(1), Team2ID: intPtr(3), Status: models.MatchCompleted, WinnerID: intPtr(1)},
			{Round: 1, Team1ID: intPtr(2), Team2ID: intPtr(4), Status: models.MatchLive},
		},
		CompletedRound: 1,
	})
	require.NoError(t, err)
	assert.False(t, advance.Complete)
	assert.Empty(t, advance.Matches)
	assert.Equal(t, 1, advance.NextRound)
}

func TestSwissAdvancePairsByScoreAvoidingRematch(t *testing.T) {
	gen := NewSwissGenerator()
	advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
		Tournament: bo1Tournament(),
		Teams:      makeTeams(4),
		Matches: []*models.Match{
			{Round: 1, Team1ID: intPtr(1), Team2ID: intPtr(3), Status: models.MatchCompleted, WinnerID: intPtr(1)},
			{Round: 1, Team1ID: intPtr(2), Team2ID: intPtr(4), Status: models.MatchCompleted, WinnerID: intPtr(2)},
		},
		CompletedRound: 1,
	})
	require.NoError(t, err)
	require.False(t, advance.Complete)
	assert.Equal(t, 2, advance.NextRound)
	require.Len(t, advance.Matches, 2)

	// Победители между собой, проигравшие между собой.
	m1, m2 := advance.Matches[0], advance.Matches[1]
	assert.Equal(t, 1, *m1.Team1ID)
	assert.Equal(t, 2, *m1.Team2ID)
	assert.Equal(t, 3, *m2.Team1ID)
	assert.Equal(t, 4, *m2.Team2ID)
}

func TestSwissAdvanceByeRotates(t *testing.T) {
	gen := NewSwissGenerator()
	advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
		Tournament: &models.Tournament{Format: models.FormatBo1, MapPool: []string{"de_mirage"}, MaxRounds: intPtr(3)},
		Teams:      makeTeams(3),
		Matches: []*models.Match{
			// Bye первого раунда достался команде 3.
			{Round: 1, Team1ID: intPtr(3), Status: models.MatchCompleted, WinnerID: intPtr(3)},
			{Round: 1, Team1ID: intPtr(1), Team2ID: intPtr(2), Status: models.MatchCompleted, WinnerID: intPtr(1)},
		},
		CompletedRound: 1,
	})
	require.NoError(t, err)
	require.Len(t, advance.Matches, 2)

	var byeTeam int
	var pair *BracketMatch
	for _, m := range advance.Matches {
		if m.IsBye {
			byeTeam = *m.ByeTeamID
		} else {
			pair = m
		}
	}
	// Та же команда не получает bye дважды, пока есть альтернатива.
	assert.Equal(t, 2, byeTeam)
	require.NotNil(t, pair)
	// Команды 1 и 3 ещё не встречались.
	assert.Equal(t, 1, *pair.Team1ID)
	assert.Equal(t, 3, *pair.Team2ID)
}

func TestSwissCompletesAtRoundLimit(t *testing.T) {
	gen := NewSwissGenerator()
	advance, err := gen.AdvanceRound(context.Background(), AdvanceParams{
		Tournament: &models.Tournament{Format: models.FormatBo1, MapPool: []string{"de_mirage"}, MaxRounds: intPtr(2)},
		Teams:      makeTeams(4),
		Matches: []*models.Match{
			{Round: 1, Team1ID: intPtr(1), Team2ID: intPtr(3), Status: models.MatchCompleted, WinnerID: intPtr(1)},
			{Round: 1, Team1ID: intPtr(2), Team2ID: intPtr(4), Status: models.MatchCompleted, WinnerID: intPtr(2)},
			{Round: 2, Team1ID: intPtr(1), Team2ID: intPtr(2), Status: models.MatchCompleted, WinnerID: intPtr(2)},
			{Round: 2, Team1ID: intPtr(3), Team2ID: intPtr(4), Status: models.MatchCompleted, WinnerID: intPtr(3)},
		},
		CompletedRound: 2,
	})
	require.NoError(t, err)
	assert.True(t, advance.Complete)
	require.NotNil(t, advance.WinnerTeamID)
	assert.Equal(t, 2, *advance.WinnerTeamID)
}
