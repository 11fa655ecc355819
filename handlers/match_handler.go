package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scrimline/tournament-engine/models"
	"github.com/scrimline/tournament-engine/services"
	"github.com/scrimline/tournament-engine/storage"
	"github.com/scrimline/tournament-engine/utils"
)

type MatchHandler struct {
	matchService services.MatchService
	uploader     storage.FileUploader
}

func NewMatchHandler(matchService services.MatchService, uploader storage.FileUploader) *MatchHandler {
	return &MatchHandler{matchService: matchService, uploader: uploader}
}

func matchSlugFromURL(r *http.Request) (string, error) {
	slug := chi.URLParam(r, "matchSlug")
	if slug == "" {
		return "", errors.New("missing matchSlug URL parameter")
	}
	return slug, nil
}

// List godoc
// @Summary Матчи турнира с фильтрами по раунду и статусу
// @Tags matches
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param round query int false "Раунд"
// @Param status query string false "Статус матча"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if raw := r.URL.Query().Get("round"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
		round = &value
	}
	var status *models.MatchStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = utils.Ptr(models.MatchStatus(raw))
	}

	matches, err := h.matchService.ListMatches(r.Context(), tournamentID, round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Матч по slug, включая veto-состояние
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /matches/{matchSlug} [get]
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start godoc
// @Summary Стартовать матч: занять сервер и открыть veto
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Матч без обоих участников"
// @Failure 503 {object} map[string]string "Нет свободного сервера"
// @Security BearerAuth
// @Router /matches/{matchSlug}/start [post]
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// VetoAction godoc
// @Summary Ход veto: бан, пик или выбор стороны
// @Tags matches
// @Accept json
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Param action body services.VetoActionInput true "Действие"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Недопустимое действие"
// @Router /matches/{matchSlug}/veto [post]
func (h *MatchHandler) VetoAction(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.VetoActionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.HandleVetoAction(r.Context(), slug, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type eventInput struct {
	Type    models.MatchEventType `json:"type"`
	Payload json.RawMessage       `json:"payload"`
}

// Webhook godoc
// @Summary Принять событие игрового сервера
// @Tags matches
// @Accept json
// @Param matchSlug path string true "Match slug"
// @Param event body eventInput true "Событие"
// @Success 202 "Событие принято"
// @Router /matches/{matchSlug}/events [post]
func (h *MatchHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input eventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Type == "" {
		badRequestResponse(w, r, errors.New("event type is required"))
		return
	}

	if err := h.matchService.HandleEvent(r.Context(), slug, input.Type, input.Payload); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ListEvents godoc
// @Summary Журнал событий матча
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Router /matches/{matchSlug}/events [get]
func (h *MatchHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	events, err := h.matchService.ListEvents(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMapResults godoc
// @Summary Результаты карт серии
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Router /matches/{matchSlug}/maps [get]
func (h *MatchHandler) ListMapResults(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.matchService.ListMapResults(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"map_results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Abort godoc
// @Summary Прервать матч и освободить сервер
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Security BearerAuth
// @Router /matches/{matchSlug}/abort [post]
func (h *MatchHandler) Abort(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AbortMatch(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReassignServer godoc
// @Summary Перевести матч на другой свободный сервер
// @Tags matches
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string "Нет свободного сервера"
// @Security BearerAuth
// @Router /matches/{matchSlug}/reassign [post]
func (h *MatchHandler) ReassignServer(w http.ResponseWriter, r *http.Request) {
	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ReassignServer(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadDemo godoc
// @Summary Загрузить demo-архив карты
// @Tags matches
// @Accept mpfd
// @Produce json
// @Param matchSlug path string true "Match slug"
// @Param map_number query int true "Номер карты"
// @Param demo formData file true "Файл demo"
// @Success 201 {object} map[string]interface{}
// @Router /matches/{matchSlug}/demos [post]
func (h *MatchHandler) UploadDemo(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		errorResponse(w, r, http.StatusNotImplemented, "demo storage is not configured")
		return
	}

	slug, err := matchSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	mapNumber, err := strconv.Atoi(r.URL.Query().Get("map_number"))
	if err != nil || mapNumber < 1 {
		badRequestResponse(w, r, errors.New("invalid map_number query parameter"))
		return
	}

	file, _, err := r.FormFile("demo")
	if err != nil {
		badRequestResponse(w, r, errors.New("demo file is required"))
		return
	}
	defer file.Close()

	key := storage.DemoKey(slug, mapNumber)
	result, err := h.uploader.Upload(r.Context(), key, "application/octet-stream", file)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := h.matchService.AttachDemo(r.Context(), slug, mapNumber, result.Key); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"demo_url": result.Location, "key": result.Key}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
