package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/models"
)

func validTournamentInput() CreateTournamentInput {
	return CreateTournamentInput{
		Name:    "Autumn Cup 2026",
		Type:    models.TypeSingleElimination,
		Format:  models.FormatBo3,
		MapPool: []string{"de_mirage", "de_inferno", "de_nuke", "de_ancient", "de_anubis", "de_vertigo", "de_dust2"},
	}
}

func newTournamentFixture(t *testing.T, tournaments ...*models.Tournament) (TournamentService, *fakeTournamentRepo, *fakeTeamRepo, *fakePlayerRepo, *fakeBracketService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tournRepo := newFakeTournamentRepo(tournaments...)
	teamRepo := newFakeTeamRepo()
	playerRepo := newFakePlayerRepo()
	bracket := &fakeBracketService{}
	svc := NewTournamentService(db, tournRepo, teamRepo, playerRepo, bracket, testLogger())
	return svc, tournRepo, teamRepo, playerRepo, bracket, mock
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, _, _, _, _, _ := newTournamentFixture(t)

	cases := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"empty name", func(in *CreateTournamentInput) { in.Name = "" }, ErrValidationFailed},
		{"unknown type", func(in *CreateTournamentInput) { in.Type = "ladder" }, ErrInvalidTournamentType},
		{"unknown format", func(in *CreateTournamentInput) { in.Format = "bo7" }, ErrInvalidSeriesFormat},
		{"pool smaller than series", func(in *CreateTournamentInput) { in.MapPool = []string{"de_mirage"} }, ErrInvalidMapPool},
		{"duplicate map", func(in *CreateTournamentInput) {
			in.MapPool = []string{"de_mirage", "de_mirage", "de_nuke"}
		}, ErrInvalidMapPool},
		{"empty map name", func(in *CreateTournamentInput) {
			in.MapPool = []string{"de_mirage", "", "de_nuke"}
		}, ErrInvalidMapPool},
		{"non-positive max rounds", func(in *CreateTournamentInput) {
			zero := 0
			in.MaxRounds = &zero
		}, ErrValidationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validTournamentInput()
			tc.mutate(&input)
			_, err := svc.CreateTournament(context.Background(), input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateTournamentSingleton(t *testing.T) {
	active := &models.Tournament{ID: 1, Name: "Running", Status: models.TournamentInProgress}
	svc, _, _, _, _, _ := newTournamentFixture(t, active)

	_, err := svc.CreateTournament(context.Background(), validTournamentInput())
	assert.ErrorIs(t, err, ErrActiveTournamentExists)
}

func TestCreateTournament(t *testing.T) {
	svc, tournRepo, _, _, _, _ := newTournamentFixture(t)

	tournament, err := svc.CreateTournament(context.Background(), validTournamentInput())
	require.NoError(t, err)
	assert.Equal(t, models.TournamentSetup, tournament.Status)
	assert.NotZero(t, tournament.ID)
	assert.Len(t, tournRepo.tournaments, 1)
}

func TestStartTournament(t *testing.T) {
	setup := &models.Tournament{
		ID:      1,
		Name:    "Cup",
		Status:  models.TournamentSetup,
		Format:  models.FormatBo1,
		MapPool: []string{"de_mirage", "de_inferno", "de_nuke"},
	}
	svc, _, teamRepo, _, _, _ := newTournamentFixture(t, setup)
	teamRepo.teams[1] = &models.Team{ID: 1, Name: "Alpha", Seed: 1}
	teamRepo.teams[2] = &models.Team{ID: 2, Name: "Bravo", Seed: 2}

	tournament, err := svc.StartTournament(context.Background(), setup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentRound)

	// Повторный старт отклоняется.
	_, err = svc.StartTournament(context.Background(), setup.ID)
	assert.ErrorIs(t, err, ErrTournamentAlreadyStarted)
}

func TestStartTournamentNeedsTwoTeams(t *testing.T) {
	setup := &models.Tournament{ID: 1, Status: models.TournamentSetup}
	svc, _, teamRepo, _, _, _ := newTournamentFixture(t, setup)
	teamRepo.teams[1] = &models.Team{ID: 1, Name: "Alpha"}

	_, err := svc.StartTournament(context.Background(), setup.ID)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestRegisterTeamCreatesRosterPlayers(t *testing.T) {
	setup := &models.Tournament{ID: 1, Status: models.TournamentSetup}
	svc, _, _, playerRepo, _, mock := newTournamentFixture(t, setup)

	mock.ExpectBegin()
	mock.ExpectCommit()

	team, err := svc.RegisterTeam(context.Background(), setup.ID, RegisterTeamInput{
		Name: "Alpha",
		Tag:  "ALP",
		Seed: 1,
		Players: []RegisterPlayerRef{
			{SteamID: "STEAM_1", Name: "one"},
			{SteamID: "STEAM_2", Name: "two", StartingElo: 1200},
		},
	})
	require.NoError(t, err)
	require.Len(t, team.Players, 2)

	// Новички получают рейтинг по умолчанию, явный стартовый уважается.
	assert.Equal(t, defaultStartingElo, team.Players[0].CurrentElo)
	assert.Equal(t, 1200, team.Players[1].CurrentElo)
	assert.Equal(t, defaultSigma, team.Players[0].Sigma)
	assert.Len(t, playerRepo.players, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterTeamMovesExistingPlayer(t *testing.T) {
	setup := &models.Tournament{ID: 1, Status: models.TournamentSetup}
	svc, _, _, playerRepo, _, mock := newTournamentFixture(t, setup)

	oldTeam := 7
	veteran := &models.Player{
		ID: 42, SteamID: "STEAM_VET", Name: "veteran",
		TeamID: &oldTeam, CurrentElo: 1337, Mu: 1337, Sigma: 120,
	}
	playerRepo.players[veteran.SteamID] = veteran

	mock.ExpectBegin()
	mock.ExpectCommit()

	team, err := svc.RegisterTeam(context.Background(), setup.ID, RegisterTeamInput{
		Name: "Bravo",
		Tag:  "BRV",
		Seed: 2,
		Players: []RegisterPlayerRef{
			{SteamID: "STEAM_VET", Name: "veteran"},
		},
	})
	require.NoError(t, err)
	require.Len(t, team.Players, 1)

	// Существующий игрок переводится в новую команду с сохранением рейтинга.
	assert.Equal(t, team.ID, playerRepo.teamMoves[veteran.ID])
	require.NotNil(t, veteran.TeamID)
	assert.Equal(t, team.ID, *veteran.TeamID)
	assert.Equal(t, 1337, team.Players[0].CurrentElo)
	assert.Len(t, playerRepo.players, 1, "no duplicate player row is created")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterTeamAfterStartRejected(t *testing.T) {
	running := &models.Tournament{ID: 1, Status: models.TournamentInProgress}
	svc, _, _, _, _, _ := newTournamentFixture(t, running)

	_, err := svc.RegisterTeam(context.Background(), running.ID, RegisterTeamInput{Name: "Late"})
	assert.ErrorIs(t, err, ErrTournamentAlreadyStarted)
}
