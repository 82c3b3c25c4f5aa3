package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nbadran/instadm/internal/domain"
	"github.com/nbadran/instadm/internal/notify"
	"github.com/nbadran/instadm/internal/platform"
)

// deviceIdentifierCookie is the browser cookie carrying the device ID.
const deviceIdentifierCookie = "ig_did"

// LoginResult is the outcome of a credential login. ChallengeRequired is a
// successful branch, not a failure: the caller must prompt for a code.
type LoginResult struct {
	ChallengeRequired bool             `json:"challenge_required"`
	User              *domain.Identity `json:"user,omitempty"`
}

// Login authenticates with credentials. The device identity is derived
// deterministically from the username so retries present a consistent
// fingerprint. Starting a new login invalidates any pending challenge.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.logger.Info("logging in", "username", username)
	s.setState(stateAuthenticating, nil)
	s.setPending(nil)

	if err := s.client.GenerateDevice(ctx, username); err != nil {
		s.failAuth(err)
		return nil, fmt.Errorf("generate device: %w", err)
	}

	identity, err := s.client.Login(ctx, username, password)
	if errors.Is(err, platform.ErrChallengeRequired) {
		s.setState(stateChallengePending, nil)
		s.setPending(&pendingChallenge{username: username, password: password})
		s.notifier.Publish(notify.Event{
			Type:     notify.EventChallengeRequired,
			Username: username,
			Message:  "Verification code required. Check your app or email.",
		})
		s.logger.Warn("challenge required", "username", username)
		return &LoginResult{ChallengeRequired: true}, nil
	}
	if err != nil {
		s.failAuth(err)
		return nil, err
	}

	if identity.Username == "" {
		identity.Username = username
	}
	if err := s.completeLogin(ctx, identity); err != nil {
		return nil, err
	}
	return &LoginResult{User: identity}, nil
}

// SubmitChallengeCode drives the platform's challenge continuation and
// re-attempts the original login. On failure the challenge stays pending
// so the caller can retry with another code or abandon via a fresh login.
func (s *Service) SubmitChallengeCode(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: verification code required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	pending := s.currentPending()
	if pending == nil {
		return nil, ErrNoPendingChallenge
	}

	s.logger.Info("submitting challenge code", "username", pending.username)
	s.setState(stateAuthenticating, nil)

	if err := s.resolveChallenge(ctx, code); err != nil {
		s.setState(stateChallengePending, nil)
		return nil, err
	}

	identity, err := s.client.Login(ctx, pending.username, pending.password)
	if err != nil {
		s.setState(stateChallengePending, nil)
		return nil, fmt.Errorf("login after challenge: %w", err)
	}

	if err := s.completeLogin(ctx, identity); err != nil {
		return nil, err
	}
	s.logger.Info("challenge completed", "username", identity.Username)
	return &LoginResult{User: identity}, nil
}

func (s *Service) resolveChallenge(ctx context.Context, code string) error {
	if err := s.client.ChallengeAuto(ctx); err != nil {
		return fmt.Errorf("resolve challenge context: %w", err)
	}
	// Phone is preferred over email for code delivery.
	if err := s.client.ChallengeSelectMethod(ctx, platform.VerifyPhone); err != nil {
		return fmt.Errorf("select verification method: %w", err)
	}
	if err := s.client.ChallengeSubmitCode(ctx, code); err != nil {
		return fmt.Errorf("submit security code: %w", err)
	}
	return nil
}

// RestoreSession imports previously persisted state and verifies it with a
// lightweight identity fetch before committing to Connected. Any failure
// propagates; a corrupt session is unrecoverable until a fresh login.
func (s *Service) RestoreSession(ctx context.Context, session, cookies json.RawMessage) (*domain.Identity, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.restoreLocked(ctx, session, cookies)
}

func (s *Service) restoreLocked(ctx context.Context, session, cookies json.RawMessage) (*domain.Identity, error) {
	s.logger.Info("restoring session")
	s.setState(stateAuthenticating, nil)

	if err := s.client.DeserializeState(ctx, session, cookies); err != nil {
		s.setState(stateDisconnected, nil)
		return nil, fmt.Errorf("deserialize session state: %w", err)
	}

	identity, err := s.client.CurrentIdentity(ctx)
	if err != nil {
		s.setState(stateDisconnected, nil)
		return nil, fmt.Errorf("verify restored session: %w", err)
	}

	s.setState(stateConnected, identity)
	s.setPending(nil)
	s.notifier.Publish(notify.Event{
		Type:     notify.EventReady,
		Username: identity.Username,
		UserID:   identity.UserID,
	})
	s.logger.Info("session restored", "username", identity.Username)
	return identity, nil
}

// AutoRestore attempts exactly one restoration from the persisted record
// at process start. Best effort: failures delete the record and are
// logged, never returned. A corrupt session waits for a fresh login.
func (s *Service) AutoRestore(ctx context.Context) {
	rec, err := s.repo.GetSession(ctx)
	if err != nil {
		s.logger.Error("auto-restore: failed to read persisted session", "error", err)
		return
	}
	if rec == nil {
		s.logger.Info("auto-restore: no persisted session found")
		return
	}

	if _, err := s.RestoreSession(ctx, rec.Session, rec.Cookies); err != nil {
		s.logger.Warn("auto-restore: persisted session invalid, clearing", "error", err)
		if delErr := s.repo.DeleteSession(ctx); delErr != nil {
			s.logger.Error("auto-restore: failed to delete stale session", "error", delErr)
		}
	}
}

// LoginWithCookies restores a session from raw browser cookies. Individual
// cookie failures are logged and skipped; validity is determined solely by
// the identity verification that follows.
func (s *Service) LoginWithCookies(ctx context.Context, entries []domain.CookieEntry) (*domain.Identity, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: cookie entries required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.logger.Info("importing session from browser cookies", "count", len(entries))
	s.setState(stateAuthenticating, nil)
	s.setPending(nil)

	for _, entry := range entries {
		if err := s.client.SetCookie(ctx, entry); err != nil {
			s.logger.Warn("failed to set cookie, skipping", "cookie", entry.Name, "error", err)
		}
	}

	for _, entry := range entries {
		if entry.Name == deviceIdentifierCookie && entry.Value != "" {
			if err := s.client.SetDeviceID(ctx, entry.Value); err != nil {
				s.logger.Warn("failed to bind device identifier", "error", err)
			}
			break
		}
	}

	identity, err := s.client.CurrentIdentity(ctx)
	if err != nil {
		s.setState(stateDisconnected, nil)
		return nil, fmt.Errorf("verify imported session: %w", err)
	}

	s.setState(stateConnected, identity)
	if err := s.persistSession(ctx, identity); err != nil {
		s.failAuth(err)
		return nil, err
	}

	s.notifier.Publish(notify.Event{
		Type:     notify.EventReady,
		Username: identity.Username,
		UserID:   identity.UserID,
	})
	s.logger.Info("session imported", "username", identity.Username)
	return identity, nil
}

// Disconnect resets to Disconnected. Idempotent and never fails the
// caller: store cleanup errors are logged, not returned.
func (s *Service) Disconnect(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.logger.Info("disconnecting")

	// Build a fresh facade so nothing from the old session leaks forward.
	if fresh, err := s.factory(); err != nil {
		s.logger.Error("failed to rebuild platform client, keeping stale instance", "error", err)
	} else {
		s.client = fresh
	}

	s.setState(stateDisconnected, nil)
	s.setPending(nil)

	if err := s.repo.DeleteSession(ctx); err != nil {
		s.logger.Error("failed to delete persisted session", "error", err)
	}

	s.notifier.Publish(notify.Event{
		Type:   notify.EventDisconnected,
		Reason: "manual disconnect",
	})
}

// completeLogin commits the Connected state, persists the session and
// emits the ready event. Persistence failure rolls the login back.
func (s *Service) completeLogin(ctx context.Context, identity *domain.Identity) error {
	s.setState(stateConnected, identity)
	s.setPending(nil)

	if err := s.persistSession(ctx, identity); err != nil {
		s.failAuth(err)
		return err
	}

	s.notifier.Publish(notify.Event{
		Type:     notify.EventReady,
		Username: identity.Username,
		UserID:   identity.UserID,
	})
	s.logger.Info("login successful", "username", identity.Username, "user_id", identity.UserID)
	return nil
}

func (s *Service) persistSession(ctx context.Context, identity *domain.Identity) error {
	session, cookies, err := s.client.SerializeState(ctx)
	if err != nil {
		return fmt.Errorf("serialize session state: %w", err)
	}

	rec := &domain.StoredSession{
		Username:  identity.Username,
		UserID:    identity.UserID,
		Session:   session,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// failAuth transitions to Disconnected and emits the auth-failed event.
func (s *Service) failAuth(err error) {
	s.setState(stateDisconnected, nil)
	s.notifier.Publish(notify.Event{
		Type:   notify.EventAuthFailed,
		Reason: err.Error(),
	})
	s.logger.Error("authentication failed", "error", err)
}
