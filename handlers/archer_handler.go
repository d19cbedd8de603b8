package handlers

import (
	"net/http"

	"github.com/ToguyC/seisha/services"
)

type ArcherHandler struct {
	archerService services.ArcherService
}

func NewArcherHandler(archerService services.ArcherService) *ArcherHandler {
	return &ArcherHandler{archerService: archerService}
}

func (h *ArcherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateArcherInput
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	archer, err := h.archerService.CreateArcher(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, archer)
}

func (h *ArcherHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	archer, err := h.archerService.GetArcherByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archer)
}

func (h *ArcherHandler) List(w http.ResponseWriter, r *http.Request) {
	archers, err := h.archerService.ListArchers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archers)
}

func (h *ArcherHandler) ListPaginated(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	page := queryInt(r, "page", 1)

	result, err := h.archerService.ListArchersPaginated(r.Context(), limit, page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ArcherHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var input services.CreateArcherInput
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	archer, err := h.archerService.UpdateArcher(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archer)
}

func (h *ArcherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.archerService.DeleteArcher(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
