package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrimline/tournament-engine/models"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrInvalidMapPool           = errors.New("map pool is smaller than the format requires")
)

type SlotTake string

const (
	TakeWinner SlotTake = "winner"
	TakeLoser  SlotTake = "loser"
)

// SlotSource указывает, откуда приходит участник слота: победитель или
// проигравший матча с данным UID. Сервис сетки разворачивает эти ссылки
// в forward-указатели next_match_id / loser_next_match_id при сохранении.
type SlotSource struct {
	MatchUID string
	Take     SlotTake
}

// BracketMatch - скелет матча, порождаемый генератором до сохранения в БД.
type BracketMatch struct {
	UID          string
	Side         models.BracketSide
	Round        int
	OrderInRound int

	Team1ID *int
	Team2ID *int

	Source1 *SlotSource
	Source2 *SlotSource

	// IsBye: участник проходит дальше без игры, строка матча не создаётся
	// (кроме swiss, где bye фиксируется завершённым матчем без соперника).
	IsBye     bool
	ByeTeamID *int

	// IsContingent: матч играется только при определённом исходе
	// (вторая карта гранд-финала).
	IsContingent bool
}

type GenerateParams struct {
	Tournament *models.Tournament
	Teams      []*models.Team
}

type AdvanceParams struct {
	Tournament     *models.Tournament
	Teams          []*models.Team
	Matches        []*models.Match
	CompletedRound int
}

// RoundAdvance - результат продвижения раунда: либо скелеты следующего
// раунда (swiss), либо признак завершения турнира.
type RoundAdvance struct {
	NextRound    int
	Matches      []*BracketMatch
	Complete     bool
	WinnerTeamID *int
}

type Generator interface {
	Type() models.TournamentType
	Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error)
	AdvanceRound(ctx context.Context, params AdvanceParams) (*RoundAdvance, error)
}

// ForType выбирает генератор по типу турнира; вызывается один раз при старте.
func ForType(t models.TournamentType) (Generator, error) {
	switch t {
	case models.TypeSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.TypeDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.TypeRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.TypeSwiss:
		return NewSwissGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament type %q", t)
	}
}

func validateParams(params GenerateParams) error {
	if len(params.Teams) < 2 {
		return ErrInsufficientParticipants
	}
	if params.Tournament != nil && len(params.Tournament.MapPool) < params.Tournament.Format.MapCount() {
		return ErrInvalidMapPool
	}
	return nil
}

// roundSettled сообщает, завершены ли все матчи раунда. Contingent-матчи
// не учитываются: они играются только при активации.
func roundSettled(matches []*models.Match, round int) bool {
	for _, m := range matches {
		if m.Round == round && !m.IsContingent && !m.Status.IsTerminal() {
			return false
		}
	}
	return true
}
