package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
)

type errorBody struct {
	Error string `json:"error"`
}

// Error maps the engine's error kinds onto status codes.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bracket.ErrNotFound):
		NotFound(w, err.Error(), err)
	case errors.Is(err, bracket.ErrValidation):
		BadRequest(w, err.Error(), err)
	case errors.Is(err, bracket.ErrConflict):
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, "request failed", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	JSON(w, http.StatusConflict, errorBody{Error: msg})
}
