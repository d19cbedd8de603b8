package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ToguyC/seisha/models"
	"github.com/ToguyC/seisha/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type createMatchInput struct {
	Format    models.MatchFormat `json:"format"`
	ArcherIDs []int              `json:"archer_ids"`
}

type arrowInput struct {
	Outcome models.HitOutcome `json:"outcome"`
}

// arrowIndex is zero-based, unlike the id parameters.
func arrowIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index parameter")
	}
	return index, nil
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var input createMatchInput
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), tournamentID, input.Format, input.ArcherIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) SubmitArrow(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	archerID, err := urlParamInt(r, "archerID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var input arrowInput
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.matchService.SubmitArrow(r.Context(), matchID, archerID, input.Outcome)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, series)
}

func (h *MatchHandler) ReplaceArrow(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	archerID, err := urlParamInt(r, "archerID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := arrowIndex(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var input arrowInput
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.matchService.ReplaceArrow(r.Context(), matchID, archerID, index, input.Outcome)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *MatchHandler) GetArrow(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	archerID, err := urlParamInt(r, "archerID")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := arrowIndex(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.matchService.GetArrow(r.Context(), matchID, archerID, index)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"outcome": outcome})
}

func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	match, err := h.matchService.FinishMatch(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
