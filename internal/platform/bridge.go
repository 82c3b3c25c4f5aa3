package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nbadran/instadm/internal/domain"
)

// BridgeClient drives the platform client hosted by the local bridge
// sidecar over JSON/HTTP. The sidecar owns the wire protocol, signing and
// device emulation; this client only moves capability calls across.
//
// Each BridgeClient corresponds to one client instance in the sidecar,
// created fresh by NewBridgeClient so a new facade never inherits state.
type BridgeClient struct {
	baseURL    string
	instanceID string
	httpc      *http.Client
	logger     *slog.Logger
}

// BridgeConfig holds configuration for the bridge client.
type BridgeConfig struct {
	Address        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultBridgeConfig returns default configuration. Request timeout is
// generous because platform calls ride on the sidecar's own pacing.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Address:        "http://localhost:7391",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// NewBridgeClient allocates a fresh client instance in the sidecar and
// fails fast if the sidecar is unreachable.
func NewBridgeClient(cfg BridgeConfig, logger *slog.Logger) (*BridgeClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		cfg = DefaultBridgeConfig()
	}

	c := &BridgeClient{
		baseURL: cfg.Address,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
	}

	// Force a round trip during startup so we fail fast on a bad endpoint,
	// and get a clean client instance in the same call.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	var out struct {
		InstanceID string `json:"instance_id"`
	}
	if err := c.call(ctx, "clients", nil, &out); err != nil {
		return nil, fmt.Errorf("bridge at %s not ready: %w", cfg.Address, err)
	}
	c.instanceID = out.InstanceID

	logger.Info("Connected to platform bridge", "address", cfg.Address, "instance_id", c.instanceID)
	return c, nil
}

// Close releases the sidecar-side client instance. Best effort.
func (c *BridgeClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.call(ctx, "close", nil, nil); err != nil {
		return fmt.Errorf("close bridge instance: %w", err)
	}
	return nil
}

// bridgeError is the sidecar's structured failure payload. Kind carries the
// platform's error classification so the Go side never string-matches
// library error names.
type bridgeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (c *BridgeClient) call(ctx context.Context, op string, in, out any) error {
	url := c.baseURL + "/v1/" + op
	if c.instanceID != "" {
		url = c.baseURL + "/v1/clients/" + c.instanceID + "/" + op
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &PlatformError{Op: op, Detail: err.Error()}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close bridge response body", "op", op, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		var be struct {
			Error bridgeError `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(raw, &be); err != nil || be.Error.Kind == "" {
			return &PlatformError{Op: op, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw))}
		}
		return mapBridgeError(op, be.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	return nil
}

// mapBridgeError converts the sidecar's error classification into the
// facade's typed errors.
func mapBridgeError(op string, be bridgeError) error {
	switch be.Kind {
	case "checkpoint":
		return fmt.Errorf("%s: %w", op, ErrChallengeRequired)
	case "login_required":
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	default:
		return &PlatformError{Op: op, Detail: be.Message}
	}
}

// GenerateDevice derives a stable device fingerprint from seed.
func (c *BridgeClient) GenerateDevice(ctx context.Context, seed string) error {
	in := map[string]string{"seed": seed}
	return c.call(ctx, "device/generate", in, nil)
}

// SetDeviceID binds an externally obtained device identifier.
func (c *BridgeClient) SetDeviceID(ctx context.Context, deviceID string) error {
	in := map[string]string{"device_id": deviceID}
	return c.call(ctx, "device/bind", in, nil)
}

// Login authenticates with credentials.
func (c *BridgeClient) Login(ctx context.Context, username, password string) (*domain.Identity, error) {
	in := map[string]string{"username": username, "password": password}
	var out domain.Identity
	if err := c.call(ctx, "login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SerializeState exports client state and cookie jar.
func (c *BridgeClient) SerializeState(ctx context.Context) (json.RawMessage, json.RawMessage, error) {
	var out struct {
		Session json.RawMessage `json:"session"`
		Cookies json.RawMessage `json:"cookies"`
	}
	if err := c.call(ctx, "state/serialize", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Session, out.Cookies, nil
}

// DeserializeState imports previously exported state.
func (c *BridgeClient) DeserializeState(ctx context.Context, session, cookies json.RawMessage) error {
	in := map[string]json.RawMessage{"session": session, "cookies": cookies}
	return c.call(ctx, "state/deserialize", in, nil)
}

// CurrentIdentity fetches the logged-in account.
func (c *BridgeClient) CurrentIdentity(ctx context.Context) (*domain.Identity, error) {
	var out domain.Identity
	if err := c.call(ctx, "identity", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCookie installs one cookie into the client's jar.
func (c *BridgeClient) SetCookie(ctx context.Context, cookie domain.CookieEntry) error {
	return c.call(ctx, "cookies/set", cookie, nil)
}

// ResolveUserID maps a username to its platform user ID.
func (c *BridgeClient) ResolveUserID(ctx context.Context, username string) (string, error) {
	in := map[string]string{"username": username}
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.call(ctx, "users/resolve", in, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// ListInboxThreads returns the direct inbox.
func (c *BridgeClient) ListInboxThreads(ctx context.Context) ([]domain.ThreadSummary, error) {
	var out struct {
		Threads []domain.ThreadSummary `json:"threads"`
	}
	if err := c.call(ctx, "threads", nil, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// BroadcastText sends text to an existing thread.
func (c *BridgeClient) BroadcastText(ctx context.Context, threadID, text string) error {
	in := map[string]string{"thread_id": threadID, "text": text}
	return c.call(ctx, "threads/broadcast", in, nil)
}

// BroadcastTextToUser sends text to a conversation with one user.
func (c *BridgeClient) BroadcastTextToUser(ctx context.Context, userID, text string) error {
	in := map[string]string{"user_id": userID, "text": text}
	return c.call(ctx, "users/broadcast", in, nil)
}

// MarkThreadSeen marks the most recent item in a thread as seen.
func (c *BridgeClient) MarkThreadSeen(ctx context.Context, threadID string) error {
	in := map[string]string{"thread_id": threadID}
	return c.call(ctx, "threads/seen", in, nil)
}

// ChallengeAuto resolves the pending challenge context.
func (c *BridgeClient) ChallengeAuto(ctx context.Context) error {
	return c.call(ctx, "challenge/auto", nil, nil)
}

// ChallengeSelectMethod picks the code delivery channel.
func (c *BridgeClient) ChallengeSelectMethod(ctx context.Context, m VerifyMethod) error {
	in := map[string]string{"method": string(m)}
	return c.call(ctx, "challenge/method", in, nil)
}

// ChallengeSubmitCode submits the verification code.
func (c *BridgeClient) ChallengeSubmitCode(ctx context.Context, code string) error {
	in := map[string]string{"code": code}
	return c.call(ctx, "challenge/code", in, nil)
}

var _ Client = (*BridgeClient)(nil)
