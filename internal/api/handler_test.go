//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nbadran/instadm/internal/engine"
	"github.com/nbadran/instadm/internal/platform"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "nope")

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "nope" {
		t.Errorf("Expected error=nope, got %v", got["error"])
	}
}

func TestEngineErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", fmt.Errorf("wrap: %w", engine.ErrInvalidRequest), http.StatusBadRequest},
		{"not connected", engine.ErrNotConnected, http.StatusConflict},
		{"no pending challenge", engine.ErrNoPendingChallenge, http.StatusConflict},
		{"auth expired", fmt.Errorf("send: %w", platform.ErrAuthExpired), http.StatusUnauthorized},
		{"platform failure", &platform.PlatformError{Op: "login", Detail: "rate limited"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			EngineError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("EngineError(%v) = %d, want %d", tt.err, w.Code, tt.want)
			}
		})
	}
}
