package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed          = errors.New("validation failed")
	ErrInsufficientParticipants  = errors.New("at least two teams are required")
	ErrInvalidMapPool            = errors.New("map pool is too small for the series format")
	ErrInvalidTournamentType     = errors.New("unsupported tournament type")
	ErrInvalidSeriesFormat       = errors.New("unsupported series format")
	ErrInvalidVetoAction         = errors.New("veto action is not allowed in the current state")
	ErrMatchNotReady             = errors.New("match does not have both participants yet")
	ErrMatchAlreadyCompleted     = errors.New("match is already completed")
	ErrMatchAlreadyStarted       = errors.New("match is already in progress")
	ErrTournamentNotActive       = errors.New("tournament is not active")
	ErrTournamentAlreadyStarted  = errors.New("tournament has already started")
	ErrRatingComputationFailed   = errors.New("rating computation failed")

	// Ошибки конфликтов
	ErrActiveTournamentExists = errors.New("another tournament is already active")
	ErrServerUnavailable      = errors.New("no free game server available")
	ErrServerOffline          = errors.New("game server is not responding")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей (дублируют ErrNotFound, но дают больше контекста)
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrServerNotFound     = errors.New("server not found")
)
