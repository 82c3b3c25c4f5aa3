// Package engine implements the session lifecycle and dispatch core: the
// authentication state machine, session persistence and restoration, and
// the throttled multi-target message dispatcher.
//
// One Service owns one logical platform session. The facade, the cookie
// jar and the auth state behind it are a single non-reentrant resource, so
// every mutating operation runs under one mutex; concurrent callers queue.
// Status reads take a snapshot and never block behind an in-flight send.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nbadran/instadm/internal/domain"
	"github.com/nbadran/instadm/internal/notify"
	"github.com/nbadran/instadm/internal/platform"
	"github.com/nbadran/instadm/internal/store"
)

// connState is the state machine's current variant.
type connState int

const (
	stateDisconnected connState = iota
	stateAuthenticating
	stateChallengePending
	stateConnected
)

// pendingChallenge holds the credentials and continuation context between
// a challenge-required login and the code submission. In-memory only; the
// password lives exactly as long as the challenge does.
type pendingChallenge struct {
	username string
	password string
}

// Service is the session lifecycle and dispatch engine.
type Service struct {
	// opMu serializes every state-mutating operation, including sends.
	// It is held across a full bulk share so no other send can interleave
	// with the operation's pacing.
	opMu sync.Mutex

	stateMu sync.RWMutex
	state   connState
	user    *domain.Identity
	pending *pendingChallenge

	client   platform.Client
	factory  platform.Factory
	repo     store.Repository
	notifier notify.Notifier
	logger   *slog.Logger

	limiter *rate.Limiter

	// sleep and jitter are injected so tests can observe pacing without
	// waiting it out.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Options configures a Service.
type Options struct {
	Repo     store.Repository
	Factory  platform.Factory
	Notifier notify.Notifier
	Logger   *slog.Logger

	// SendInterval is the hard floor between consecutive broadcast calls,
	// enforced by a rate limiter on top of the randomized pacing delays.
	SendInterval time.Duration
}

// New creates the engine and builds its initial facade from the factory.
func New(opts Options) (*Service, error) {
	if opts.Repo == nil || opts.Factory == nil {
		return nil, errors.New("engine: repo and factory are required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = 2 * time.Second
	}

	client, err := opts.Factory()
	if err != nil {
		return nil, fmt.Errorf("engine: build platform client: %w", err)
	}

	s := &Service{
		state:    stateDisconnected,
		client:   client,
		factory:  opts.Factory,
		repo:     opts.Repo,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		limiter:  rate.NewLimiter(rate.Every(opts.SendInterval), 1),
		sleep:    sleepCtx,
		jitter:   rand.Float64,
	}
	return s, nil
}

// Status returns the current connection projection. Non-failing, safe to
// call concurrently with any operation.
func (s *Service) Status() domain.ConnectionStatus {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	st := domain.ConnectionStatus{Connected: s.state == stateConnected}
	if st.Connected && s.user != nil {
		st.Username = s.user.Username
		st.UserID = s.user.UserID
	}
	return st
}

// setState swaps the state machine variant and the identity snapshot.
func (s *Service) setState(state connState, user *domain.Identity) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
	s.user = user
}

func (s *Service) currentState() connState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Service) setPending(p *pendingChallenge) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.pending = p
}

func (s *Service) currentPending() *pendingChallenge {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.pending
}

// handleAuthExpired checks an operation error for session expiry and, when
// found, forces the Disconnected transition plus notification. Returns
// true when the transition fired.
func (s *Service) handleAuthExpired(err error) bool {
	if !errors.Is(err, platform.ErrAuthExpired) {
		return false
	}
	s.setState(stateDisconnected, nil)
	s.notifier.Publish(notify.Event{
		Type:   notify.EventDisconnected,
		Reason: "login required - session expired",
	})
	s.logger.Warn("session expired mid-operation, disconnected")
	return true
}

// sleepCtx waits out d or returns early with the context's error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
