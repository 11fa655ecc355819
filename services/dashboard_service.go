package services

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/repositories"
)

type DashboardService interface {
	GetStandings(ctx context.Context, tournamentID int) ([]models.PlayerStanding, error)
	GetRoundStatus(ctx context.Context, tournamentID int) (*models.RoundStatus, error)
	GetBracketView(ctx context.Context, tournamentID int) (*models.BracketView, error)
}

type dashboardService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
}

func NewDashboardService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
) DashboardService {
	return &dashboardService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
	}
}

func (s *dashboardService) GetStandings(ctx context.Context, tournamentID int) ([]models.PlayerStanding, error) {
	var teams []*models.Team
	var matches []*models.Match

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByTournament(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, tournamentID, nil, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	teamWins := make(map[int]int)
	teamLosses := make(map[int]int)
	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.WinnerID == nil {
			continue
		}
		teamWins[*m.WinnerID]++
		if m.Team1ID != nil && *m.Team1ID != *m.WinnerID {
			teamLosses[*m.Team1ID]++
		}
		if m.Team2ID != nil && *m.Team2ID != *m.WinnerID {
			teamLosses[*m.Team2ID]++
		}
	}

	standings := make([]models.PlayerStanding, 0)
	for _, team := range teams {
		wins := teamWins[team.ID]
		losses := teamLosses[team.ID]
		for _, p := range team.Players {
			row := models.PlayerStanding{
				PlayerID:   p.ID,
				Name:       p.Name,
				TeamName:   team.Name,
				Wins:       wins,
				Losses:     losses,
				CurrentElo: p.CurrentElo,
			}
			if total := wins + losses; total > 0 {
				row.WinRate = float64(wins) / float64(total)
			}
			standings = append(standings, row)
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].CurrentElo != standings[j].CurrentElo {
			return standings[i].CurrentElo > standings[j].CurrentElo
		}
		return standings[i].Name < standings[j].Name
	})
	return standings, nil
}

func (s *dashboardService) GetRoundStatus(ctx context.Context, tournamentID int) (*models.RoundStatus, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	round := tournament.CurrentRound
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &round, nil)
	if err != nil {
		return nil, err
	}

	status := &models.RoundStatus{Round: round, Total: len(matches)}
	for _, m := range matches {
		if m.Status.IsTerminal() {
			status.Completed++
		} else {
			status.Pending++
		}
	}
	return status, nil
}

func (s *dashboardService) GetBracketView(ctx context.Context, tournamentID int) (*models.BracketView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	var teams []*models.Team
	var matches []*models.Match

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByTournament(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, tournamentID, nil, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make(map[int]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	teamName := func(id *int) *string {
		if id == nil {
			return nil
		}
		if name, ok := names[*id]; ok {
			return &name
		}
		return nil
	}

	view := &models.BracketView{
		TournamentID: tournamentID,
		Type:         tournament.Type,
		Matches:      make([]models.BracketMatchView, 0, len(matches)),
	}
	for _, m := range matches {
		view.Matches = append(view.Matches, models.BracketMatchView{
			MatchID:    m.ID,
			Slug:       m.Slug,
			Round:      m.Round,
			Number:     m.Number,
			Side:       m.Side,
			Team1Name:  teamName(m.Team1ID),
			Team2Name:  teamName(m.Team2ID),
			WinnerName: teamName(m.WinnerID),
			Status:     m.Status,
			NextMatch:  m.NextMatchID,
		})
	}
	return view, nil
}
