// Package api provides HTTP handlers for the instadm API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nbadran/instadm/internal/engine"
	"github.com/nbadran/instadm/internal/platform"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// EngineError maps the engine's typed errors onto transport status codes
// and writes the response. ChallengeRequired never reaches here: it is a
// successful login branch, handled by the login handler itself.
func EngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotConnected), errors.Is(err, engine.ErrNoPendingChallenge):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, platform.ErrAuthExpired):
		Error(w, http.StatusUnauthorized, err.Error())
	default:
		var pe *platform.PlatformError
		if errors.As(err, &pe) {
			Error(w, http.StatusBadGateway, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
