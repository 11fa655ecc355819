package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/models"
)

func ratingFixture() (*models.Tournament, *models.Match, *models.Team, *models.Team) {
	tournament := &models.Tournament{ID: 1}
	match := &models.Match{ID: 100, Slug: "t1-r1m1", TournamentID: 1}
	team1 := &models.Team{
		ID:   1,
		Name: "Alpha",
		Players: []models.Player{
			{ID: 1, SteamID: "STEAM_1", CurrentElo: 1000, Mu: 1000, Sigma: defaultSigma},
		},
	}
	team2 := &models.Team{
		ID:   2,
		Name: "Bravo",
		Players: []models.Player{
			{ID: 2, SteamID: "STEAM_2", CurrentElo: 1000, Mu: 1000, Sigma: defaultSigma},
		},
	}
	return tournament, match, team1, team2
}

func TestRatingEqualSkillSymmetricDelta(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	err := svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil)
	require.NoError(t, err)

	// Равный скилл: ожидание 0.5, K=32, победитель +16, проигравший -16.
	assert.Equal(t, 1016, team1.Players[0].CurrentElo)
	assert.Equal(t, 984, team2.Players[0].CurrentElo)

	require.Len(t, ratingRepo.history, 2)
	winner := ratingRepo.history[0]
	assert.Equal(t, 1, winner.PlayerID)
	assert.Equal(t, 1000, winner.EloBefore)
	assert.Equal(t, 1016, winner.EloAfter)
	assert.Equal(t, 16, winner.BaseDelta)
	assert.Equal(t, 0, winner.StatAdjustment)
	assert.Nil(t, winner.TemplateID)

	// История воспроизводима: after = before + base + stat.
	for _, h := range ratingRepo.history {
		assert.Equal(t, h.EloAfter, h.EloBefore+h.BaseDelta+h.StatAdjustment)
		assert.Equal(t, defaultSigma*sigmaDecay, h.SigmaAfter)
	}
}

func TestRatingIsIdempotentPerPlayerAndMatch(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil))
	eloAfterFirst := team1.Players[0].CurrentElo

	// Повторный вызов (реплей события) не меняет ни рейтинг, ни историю.
	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil))
	assert.Equal(t, eloAfterFirst, team1.Players[0].CurrentElo)
	assert.Len(t, ratingRepo.history, 2)
}

func TestRatingUnderdogGainsMore(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	team1.Players[0].Mu = 800
	team2.Players[0].Mu = 1200
	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	// Аутсайдер побеждает фаворита с разницей в 400 mu: ожидание ~0.09,
	// прибавка заметно больше 16.
	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil))
	assert.Greater(t, team1.Players[0].CurrentElo, 1020)
	assert.Less(t, team2.Players[0].CurrentElo, 980)
}

func TestRatingStatAdjustmentClampedToTemplate(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	templateID := 7
	tournament.RatingTemplateID = &templateID

	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{
		template: &models.RatingTemplate{
			ID:            templateID,
			KillWeight:    2.0,
			DeathWeight:   -1.0,
			AssistWeight:  0.5,
			MinAdjustment: -10,
			MaxAdjustment: 10,
		},
	}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	stats := []models.PlayerMatchStats{
		// 30*2 - 5 = 55, зажимается в +10.
		{MatchID: match.ID, PlayerID: 1, Kills: 30, Deaths: 5},
		// -20, зажимается в -10.
		{MatchID: match.ID, PlayerID: 2, Kills: 0, Deaths: 20},
	}
	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, stats))

	assert.Equal(t, 1000+16+10, team1.Players[0].CurrentElo)
	assert.Equal(t, 1000-16-10, team2.Players[0].CurrentElo)

	require.Len(t, ratingRepo.history, 2)
	require.NotNil(t, ratingRepo.history[0].TemplateID)
	assert.Equal(t, templateID, *ratingRepo.history[0].TemplateID)
	assert.Equal(t, 10, ratingRepo.history[0].StatAdjustment)
	assert.Equal(t, -10, ratingRepo.history[1].StatAdjustment)
}

func TestRatingTemplateFailureDegradesToBaseDelta(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	templateID := 7
	tournament.RatingTemplateID = &templateID

	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{templateErr: errors.New("connection reset")}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	stats := []models.PlayerMatchStats{{MatchID: match.ID, PlayerID: 1, Kills: 30}}
	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, stats))

	// Шаблон недоступен: применяется только базовая дельта.
	assert.Equal(t, 1016, team1.Players[0].CurrentElo)
	assert.Equal(t, 0, ratingRepo.history[0].StatAdjustment)
	assert.Nil(t, ratingRepo.history[0].TemplateID)
}

func TestRatingSigmaDecaysToFloor(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	team1.Players[0].Sigma = sigmaFloor * 1.01
	playerRepo := newFakePlayerRepo()
	ratingRepo := &fakeRatingRepo{}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	require.NoError(t, svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil))
	assert.Equal(t, sigmaFloor, team1.Players[0].Sigma)
}

func TestRatingEmptyRosterFails(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	team2.Players = nil
	svc := NewRatingService(newFakePlayerRepo(), &fakeRatingRepo{}, testLogger())

	err := svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil)
	assert.ErrorIs(t, err, ErrRatingComputationFailed)
}

func TestPlayerHistoryReturnsOwnRowsOnly(t *testing.T) {
	tournament, match, team1, team2 := ratingFixture()
	playerRepo := newFakePlayerRepo(&team1.Players[0], &team2.Players[0])
	ratingRepo := &fakeRatingRepo{}
	svc := NewRatingService(playerRepo, ratingRepo, testLogger())

	err := svc.ApplyMatchResult(context.Background(), nil, tournament, match, team1, team2, team1.ID, nil)
	require.NoError(t, err)

	history, err := svc.PlayerHistory(context.Background(), team1.Players[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, team1.Players[0].ID, history[0].PlayerID)
	assert.Equal(t, match.ID, history[0].MatchID)

	_, err = svc.PlayerHistory(context.Background(), 999, 10)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
