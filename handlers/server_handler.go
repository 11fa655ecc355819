package handlers

import (
	"net/http"

	"github.com/scrimline/tournament-engine/services"
)

type ServerHandler struct {
	serverService services.ServerService
}

func NewServerHandler(serverService services.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// Create godoc
// @Summary Зарегистрировать игровой сервер в пуле
// @Tags servers
// @Accept json
// @Produce json
// @Param server body services.CreateServerInput true "Сервер"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /servers [post]
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateServerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	server, err := h.serverService.CreateServer(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"server": server}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Все включённые серверы пула
// @Tags servers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /servers [get]
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.serverService.ListServers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"servers": servers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Сервер по ID
// @Tags servers
// @Produce json
// @Param serverID path int true "Server ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /servers/{serverID} [get]
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	serverID, err := getIDFromURL(r, "serverID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	server, err := h.serverService.GetServer(r.Context(), serverID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"server": server}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Check godoc
// @Summary Живая проверка сервера по RCON
// @Tags servers
// @Produce json
// @Param serverID path int true "Server ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /servers/{serverID}/check [post]
func (h *ServerHandler) Check(w http.ResponseWriter, r *http.Request) {
	serverID, err := getIDFromURL(r, "serverID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	server, err := h.serverService.CheckServer(r.Context(), serverID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"server": server}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
