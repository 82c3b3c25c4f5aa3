package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nbadran/instadm/internal/domain"
	"github.com/nbadran/instadm/internal/engine"
)

// Handler maps the HTTP surface onto engine calls.
type Handler struct {
	svc *engine.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *engine.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the session and dispatch routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/instagram", func(r chi.Router) {
		r.Post("/connect", h.Connect)
		r.Post("/import-session", h.ImportSession)
		r.Post("/challenge/submit", h.SubmitChallenge)
		r.Get("/status", h.Status)
		r.Get("/threads", h.Threads)
		r.Post("/send/thread/{threadID}", h.SendToThread)
		r.Post("/send/user", h.SendToUser)
		r.Post("/send/multiple", h.SendToMany)
		r.Post("/share", h.Share)
		r.Post("/disconnect", h.Disconnect)
	})
}

// Connect performs a credential login. A challenge-required outcome is a
// 200 with challenge_required set, not an error status.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "username and password required")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		slog.Error("login failed", "username", req.Username, "error", err)
		EngineError(w, err)
		return
	}

	if res.ChallengeRequired {
		JSON(w, http.StatusOK, map[string]interface{}{
			"success":            false,
			"challenge_required": true,
			"message":            "Verification required. Enter the code sent to your device.",
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    res.User,
	})
}

// ImportSession restores a session from exported browser cookies.
func (h *Handler) ImportSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionData json.RawMessage `json:"sessionData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.SessionData) == 0 {
		Error(w, http.StatusBadRequest, "session data required")
		return
	}

	var entries []domain.CookieEntry
	if err := json.Unmarshal(req.SessionData, &entries); err != nil {
		Error(w, http.StatusBadRequest, "session data must be an array of cookies")
		return
	}

	identity, err := h.svc.LoginWithCookies(r.Context(), entries)
	if err != nil {
		slog.Error("session import failed", "error", err)
		EngineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    identity,
	})
}

// SubmitChallenge submits a verification code for a pending challenge.
func (h *Handler) SubmitChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		Error(w, http.StatusBadRequest, "verification code required")
		return
	}

	res, err := h.svc.SubmitChallengeCode(r.Context(), req.Code)
	if err != nil {
		slog.Error("challenge submission failed", "error", err)
		EngineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    res.User,
	})
}

// Status returns the connection projection.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Status())
}

// Threads returns the direct inbox.
func (h *Handler) Threads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.svc.ListThreads(r.Context())
	if err != nil {
		slog.Error("thread listing failed", "error", err)
		EngineError(w, err)
		return
	}
	JSON(w, http.StatusOK, threads)
}

// SendToThread sends one message to an existing thread.
func (h *Handler) SendToThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message required")
		return
	}

	if err := h.svc.SendToThread(r.Context(), threadID, req.Message); err != nil {
		slog.Error("send failed", "thread_id", threadID, "error", err)
		EngineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// SendToUser sends one message to a user handle.
func (h *Handler) SendToUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Message == "" {
		Error(w, http.StatusBadRequest, "username and message required")
		return
	}

	if err := h.svc.SendToUser(r.Context(), req.Username, req.Message); err != nil {
		slog.Error("direct send failed", "username", req.Username, "error", err)
		EngineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// SendToMany sends one message to several threads, aggregating outcomes.
func (h *Handler) SendToMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThreadIDs []string `json:"threadIds"`
		Message   string   `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ThreadIDs) == 0 || req.Message == "" {
		Error(w, http.StatusBadRequest, "thread IDs array and message required")
		return
	}

	report, err := h.svc.SendToMany(r.Context(), req.ThreadIDs, req.Message)
	if err != nil {
		EngineError(w, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

// Share fans content items out to targets with bulk pacing.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedContent []domain.ContentItem `json:"selectedContent"`
		ThreadIDs       []string             `json:"threadIds"`
		Usernames       []string             `json:"usernames"`
		DelaySeconds    int                  `json:"delaySeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	targets := make([]domain.DispatchTarget, 0, len(req.ThreadIDs)+len(req.Usernames))
	for _, id := range req.ThreadIDs {
		targets = append(targets, domain.DispatchTarget{ThreadID: id})
	}
	for _, u := range req.Usernames {
		targets = append(targets, domain.DispatchTarget{Username: u})
	}

	report, err := h.svc.ShareContent(r.Context(), req.SelectedContent, targets, req.DelaySeconds)
	if err != nil {
		EngineError(w, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

// Disconnect logs out and clears persisted state. Never fails.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.svc.Disconnect(r.Context())
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Disconnected",
	})
}
