package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/scrimline/tournament-engine/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMapResultConflict = errors.New("map result already recorded")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetBySlug(ctx context.Context, slug string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	// GetActiveByServer возвращает незавершённый матч, занимающий сервер.
	GetActiveByServer(ctx context.Context, serverID int) (*models.Match, error)

	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int, status models.MatchStatus) error
	UpdateParticipantSlot(ctx context.Context, exec SQLExecutor, id, slot int, teamID int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error
	SetServer(ctx context.Context, exec SQLExecutor, id int, serverID *int) error
	UpdateVetoState(ctx context.Context, exec SQLExecutor, id int, state *models.VetoState) error
	UpdateLastReport(ctx context.Context, exec SQLExecutor, id int, reportedAt time.Time, mapNumber int) error

	CreateMapResult(ctx context.Context, exec SQLExecutor, result *models.MapResult) error
	ListMapResults(ctx context.Context, matchID int) ([]models.MapResult, error)
	SetMapResultDemo(ctx context.Context, exec SQLExecutor, matchID, mapNumber int, demoKey string) error

	CreatePlayerStats(ctx context.Context, exec SQLExecutor, stats *models.PlayerMatchStats) error
	ListPlayerStats(ctx context.Context, matchID int) ([]models.PlayerMatchStats, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, slug, round, number, side, bracket_uid,
	team1_id, team2_id, winner_id, server_id, status,
	next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
	is_contingent, veto_state, current_map_number, last_report_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	vetoJSON, err := marshalVeto(match.Veto)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches
			(tournament_id, slug, round, number, side, bracket_uid,
			 team1_id, team2_id, winner_id, status,
			 next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
			 is_contingent, veto_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	err = exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Slug,
		match.Round,
		match.Number,
		match.Side,
		match.BracketUID,
		match.Team1ID,
		match.Team2ID,
		match.WinnerID,
		match.Status,
		match.NextMatchID,
		match.NextMatchSlot,
		match.LoserNextMatchID,
		match.LoserNextMatchSlot,
		match.IsContingent,
		vetoJSON,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", match.Slug, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetBySlug(ctx context.Context, slug string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE slug = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, slug))
}

func (r *postgresMatchRepository) GetActiveByServer(ctx context.Context, serverID int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE server_id = $1 AND status NOT IN ('completed', 'cancelled', 'error')
		LIMIT 1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, serverID))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var vetoJSON []byte
	err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Slug,
		&m.Round,
		&m.Number,
		&m.Side,
		&m.BracketUID,
		&m.Team1ID,
		&m.Team2ID,
		&m.WinnerID,
		&m.ServerID,
		&m.Status,
		&m.NextMatchID,
		&m.NextMatchSlot,
		&m.LoserNextMatchID,
		&m.LoserNextMatchSlot,
		&m.IsContingent,
		&vetoJSON,
		&m.CurrentMapNumber,
		&m.LastReportAt,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if len(vetoJSON) > 0 {
		var state models.VetoState
		if err := json.Unmarshal(vetoJSON, &state); err != nil {
			return nil, fmt.Errorf("failed to decode veto state of match %s: %w", m.Slug, err)
		}
		m.Veto = &state
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholder))
		args = append(args, *round)
		placeholder++
	}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY round ASC, side ASC, number ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int, status models.MatchStatus) error {
	query := `UPDATE matches SET winner_id = $1, status = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, winnerID, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match %d winner: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateParticipantSlot(ctx context.Context, exec SQLExecutor, id, slot int, teamID int) error {
	column := "team1_id"
	if slot == 2 {
		column = "team2_id"
	}
	query := fmt.Sprintf(`UPDATE matches SET %s = $1 WHERE id = $2`, column)
	result, err := exec.ExecContext(ctx, query, teamID, id)
	if err != nil {
		return fmt.Errorf("failed to fill slot %d of match %d: %w", slot, id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, next_match_slot = $2, loser_next_match_id = $3, loser_next_match_slot = $4
		WHERE id = $5`
	result, err := exec.ExecContext(ctx, query, nextID, nextSlot, loserNextID, loserNextSlot, id)
	if err != nil {
		return fmt.Errorf("failed to link match %d forward: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetServer(ctx context.Context, exec SQLExecutor, id int, serverID *int) error {
	result, err := exec.ExecContext(ctx, `UPDATE matches SET server_id = $1 WHERE id = $2`, serverID, id)
	if err != nil {
		return fmt.Errorf("failed to set server of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateVetoState(ctx context.Context, exec SQLExecutor, id int, state *models.VetoState) error {
	vetoJSON, err := marshalVeto(state)
	if err != nil {
		return err
	}
	result, err := exec.ExecContext(ctx, `UPDATE matches SET veto_state = $1 WHERE id = $2`, vetoJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update veto state of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateLastReport(ctx context.Context, exec SQLExecutor, id int, reportedAt time.Time, mapNumber int) error {
	query := `UPDATE matches SET last_report_at = $1, current_map_number = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, reportedAt, mapNumber, id)
	if err != nil {
		return fmt.Errorf("failed to update last report of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CreateMapResult(ctx context.Context, exec SQLExecutor, result *models.MapResult) error {
	query := `
		INSERT INTO map_results (match_id, map_number, map_name, team1_score, team2_score, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		result.MatchID,
		result.MapNumber,
		result.MapName,
		result.Team1Score,
		result.Team2Score,
		result.WinnerID,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrMapResultConflict
		}
		return fmt.Errorf("failed to create map result %d/%d: %w", result.MatchID, result.MapNumber, err)
	}
	return nil
}

func (r *postgresMatchRepository) ListMapResults(ctx context.Context, matchID int) ([]models.MapResult, error) {
	query := `
		SELECT id, match_id, map_number, map_name, team1_score, team2_score, winner_id, demo_key, created_at
		FROM map_results WHERE match_id = $1 ORDER BY map_number ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list map results for match %d: %w", matchID, err)
	}
	defer rows.Close()

	results := make([]models.MapResult, 0)
	for rows.Next() {
		var mr models.MapResult
		if err := rows.Scan(&mr.ID, &mr.MatchID, &mr.MapNumber, &mr.MapName,
			&mr.Team1Score, &mr.Team2Score, &mr.WinnerID, &mr.DemoKey, &mr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan map result row: %w", err)
		}
		results = append(results, mr)
	}
	return results, rows.Err()
}

func (r *postgresMatchRepository) SetMapResultDemo(ctx context.Context, exec SQLExecutor, matchID, mapNumber int, demoKey string) error {
	query := `UPDATE map_results SET demo_key = $1 WHERE match_id = $2 AND map_number = $3`
	result, err := exec.ExecContext(ctx, query, demoKey, matchID, mapNumber)
	if err != nil {
		return fmt.Errorf("failed to set demo key for map %d of match %d: %w", mapNumber, matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CreatePlayerStats(ctx context.Context, exec SQLExecutor, stats *models.PlayerMatchStats) error {
	query := `
		INSERT INTO player_match_stats (match_id, map_number, player_id, steam_id, kills, deaths, assists, damage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, map_number, player_id) DO NOTHING
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		stats.MatchID, stats.MapNumber, stats.PlayerID, stats.SteamID,
		stats.Kills, stats.Deaths, stats.Assists, stats.Damage,
	).Scan(&stats.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Дубликат события: строка уже есть, это не ошибка.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create player stats for match %d: %w", stats.MatchID, err)
	}
	return nil
}

func (r *postgresMatchRepository) ListPlayerStats(ctx context.Context, matchID int) ([]models.PlayerMatchStats, error) {
	query := `
		SELECT id, match_id, map_number, player_id, steam_id, kills, deaths, assists, damage
		FROM player_match_stats WHERE match_id = $1 ORDER BY map_number ASC, player_id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player stats for match %d: %w", matchID, err)
	}
	defer rows.Close()

	stats := make([]models.PlayerMatchStats, 0)
	for rows.Next() {
		var s models.PlayerMatchStats
		if err := rows.Scan(&s.ID, &s.MatchID, &s.MapNumber, &s.PlayerID, &s.SteamID,
			&s.Kills, &s.Deaths, &s.Assists, &s.Damage); err != nil {
			return nil, fmt.Errorf("failed to scan player stats row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func marshalVeto(state *models.VetoState) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode veto state: %w", err)
	}
	return data, nil
}
