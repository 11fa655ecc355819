package handlers

import (
	"net/http"
	"strconv"

	"github.com/scrimline/tournament-engine/services"
)

type PlayerHandler struct {
	ratingService services.RatingService
}

func NewPlayerHandler(ratingService services.RatingService) *PlayerHandler {
	return &PlayerHandler{ratingService: ratingService}
}

// RatingHistory godoc
// @Summary История рейтинга игрока
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param limit query int false "Максимум записей (по умолчанию 50)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /players/{playerID}/ratings [get]
func (h *PlayerHandler) RatingHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	history, err := h.ratingService.PlayerHistory(r.Context(), playerID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
