package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/bywater/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// writeEngineError maps the engine's typed errors onto HTTP statuses.
// Anything untyped is a storage failure and surfaces as a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		validation   *engine.ValidationError
		forbidden    *engine.ForbiddenError
		conflict     *engine.ConflictError
		notFound     *engine.NotFoundError
		insufficient *engine.InsufficientBalanceError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Msg})
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": forbidden.Msg})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFound.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": conflict.Msg})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "insufficient balance",
			"balance":  insufficient.Balance,
			"required": insufficient.Required,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// isInternal reports whether an error should also be logged server-side.
func isInternal(err error) bool {
	var (
		validation   *engine.ValidationError
		forbidden    *engine.ForbiddenError
		conflict     *engine.ConflictError
		notFound     *engine.NotFoundError
		insufficient *engine.InsufficientBalanceError
	)
	return !errors.As(err, &validation) &&
		!errors.As(err, &forbidden) &&
		!errors.As(err, &conflict) &&
		!errors.As(err, &notFound) &&
		!errors.As(err, &insufficient)
}
