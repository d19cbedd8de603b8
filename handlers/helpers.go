package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ToguyC/seisha/scoring"
	"github.com/ToguyC/seisha/services"
)

const maxRequestBody = 1 << 20

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"error": message})
}

func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// respondServiceError maps service and engine errors onto HTTP statuses:
// missing resources are 404, conflicts and stale state 409, rule violations
// 422, everything else an opaque 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrArcherNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrSeriesNotFound),
		errors.Is(err, services.ErrEntryNotFound):
		errorResponse(w, http.StatusNotFound, err.Error())

	case errors.Is(err, services.ErrEntryConflict),
		errors.Is(err, services.ErrTeamMemberConflict):
		errorResponse(w, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrStageResultMismatch),
		errors.Is(err, services.ErrParticipantNotInTieBreak),
		errors.Is(err, services.ErrArcherWithoutTeam),
		errors.Is(err, services.ErrTeamsRequireTeamFormat):
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, services.ErrArcherNameRequired),
		errors.Is(err, services.ErrInvalidArcherPosition),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidDateRange),
		errors.Is(err, services.ErrInvalidTournamentFormat),
		errors.Is(err, services.ErrInvalidTournamentType),
		errors.Is(err, services.ErrInvalidTargetCount),
		errors.Is(err, services.ErrTargetCountExceeded),
		errors.Is(err, services.ErrTeamNameRequired):
		errorResponse(w, http.StatusBadRequest, err.Error())

	default:
		switch scoring.KindOf(err) {
		case scoring.KindValidation:
			errorResponse(w, http.StatusBadRequest, err.Error())
		case scoring.KindStateConflict:
			errorResponse(w, http.StatusConflict, err.Error())
		case scoring.KindComputation:
			errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("unhandled service error", slog.Any("error", err))
			errorResponse(w, http.StatusInternalServerError, "internal server error")
		}
	}
}
