package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ToguyC/seisha/live"
	"github.com/ToguyC/seisha/services"
)

type WebsocketHandler struct {
	hub               *live.Hub
	tournamentService services.TournamentService
	upgrader          websocket.Upgrader
	logger            *slog.Logger
}

func NewWebsocketHandler(hub *live.Hub, tournamentService services.TournamentService, allowedOrigins map[string]bool, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:               hub,
		tournamentService: tournamentService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigins["*"] || allowedOrigins[origin]
			},
		},
		logger: logger,
	}
}

// ServeTournament subscribes the connection to the tournament's event room.
func (h *WebsocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.tournamentService.GetTournamentByID(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, chi.URLParam(r, "id"))
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
