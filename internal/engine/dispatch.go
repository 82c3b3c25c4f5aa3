package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nbadran/instadm/internal/domain"
)

// Pacing constants for the dispatch throttler. Every delay is randomized
// so consecutive sends never share an identical wait.
const (
	typingBaseDelay = time.Second
	typingPerChar   = 100 * time.Millisecond
	preSendDelayMin = 500 * time.Millisecond
	preSendJitter   = time.Second
)

// ListThreads returns the direct inbox. Requires Connected.
func (s *Service) ListThreads(ctx context.Context) ([]domain.ThreadSummary, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.currentState() != stateConnected {
		return nil, ErrNotConnected
	}

	threads, err := s.client.ListInboxThreads(ctx)
	if err != nil {
		s.handleAuthExpired(err)
		return nil, fmt.Errorf("list inbox threads: %w", err)
	}
	s.logger.Info("fetched inbox threads", "count", len(threads))
	return threads, nil
}

// SendToThread delivers text to an existing thread with human-like pacing:
// a typing-simulation delay proportional to the text length, a best-effort
// mark-seen, and a short randomized pause before the broadcast.
func (s *Service) SendToThread(ctx context.Context, threadID, text string) error {
	if threadID == "" || text == "" {
		return fmt.Errorf("%w: thread ID and message required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.sendToThreadLocked(ctx, threadID, text)
}

func (s *Service) sendToThreadLocked(ctx context.Context, threadID, text string) error {
	if s.currentState() != stateConnected {
		return ErrNotConnected
	}

	typingDelay := typingBaseDelay + time.Duration(s.jitter()*float64(typingPerChar)*float64(len(text)))
	s.logger.Debug("simulating typing", "thread_id", threadID, "delay", typingDelay)
	if err := s.sleep(ctx, typingDelay); err != nil {
		return err
	}

	// Mark the thread seen before sending, the way a human would. Absence
	// of prior items is expected; failures here never fail the send.
	if err := s.client.MarkThreadSeen(ctx, threadID); err != nil {
		s.logger.Debug("mark seen failed, continuing", "thread_id", threadID, "error", err)
	}

	preSend := preSendDelayMin + time.Duration(s.jitter()*float64(preSendJitter))
	if err := s.sleep(ctx, preSend); err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := s.client.BroadcastText(ctx, threadID, text); err != nil {
		s.handleAuthExpired(err)
		return fmt.Errorf("broadcast to thread %s: %w", threadID, err)
	}

	s.logger.Info("message sent", "thread_id", threadID, "chars", len(text))
	return nil
}

// SendToUser resolves a handle and delivers text to a conversation with
// that user. The simpler directed path: no typing simulation.
func (s *Service) SendToUser(ctx context.Context, username, text string) error {
	if username == "" || text == "" {
		return fmt.Errorf("%w: username and message required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.sendToUserLocked(ctx, username, text)
}

func (s *Service) sendToUserLocked(ctx context.Context, username, text string) error {
	if s.currentState() != stateConnected {
		return ErrNotConnected
	}

	userID, err := s.client.ResolveUserID(ctx, username)
	if err != nil {
		s.handleAuthExpired(err)
		return fmt.Errorf("resolve user %s: %w", username, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := s.client.BroadcastTextToUser(ctx, userID, text); err != nil {
		s.handleAuthExpired(err)
		return fmt.Errorf("broadcast to user %s: %w", username, err)
	}

	s.logger.Info("direct message sent", "username", username)
	return nil
}

// SendToMany delivers one text to several threads sequentially, isolating
// per-thread failures into the report instead of aborting.
func (s *Service) SendToMany(ctx context.Context, threadIDs []string, text string) (*domain.SendReport, error) {
	if len(threadIDs) == 0 || text == "" {
		return nil, fmt.Errorf("%w: thread IDs and message required", ErrInvalidRequest)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	report := &domain.SendReport{Success: []string{}, Failed: []domain.DispatchOutcome{}}
	for _, threadID := range threadIDs {
		if err := s.sendToThreadLocked(ctx, threadID, text); err != nil {
			report.Failed = append(report.Failed, domain.DispatchOutcome{
				Target: threadID,
				Error:  err.Error(),
			})
			continue
		}
		report.Success = append(report.Success, threadID)
	}
	return report, nil
}

// dispatchLocked routes one formatted payload to a target, resolving
// username targets on demand.
func (s *Service) dispatchLocked(ctx context.Context, target domain.DispatchTarget, text string) error {
	if target.ThreadID != "" {
		return s.sendToThreadLocked(ctx, target.ThreadID, text)
	}
	return s.sendToUserLocked(ctx, target.Username, text)
}
