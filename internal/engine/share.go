package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nbadran/instadm/internal/domain"
	"github.com/nbadran/instadm/internal/format"
)

// Bulk pacing. The platform applies stricter abuse thresholds to bulk
// sends, so the 10-second floor holds no matter what the caller asks for.
const (
	bulkDelayFloor  = 10 * time.Second
	bulkDelayJitter = 5 * time.Second
)

// ShareContent fans a set of content items out to a set of targets,
// item-major and target-minor in input order. Each (item,target) failure
// is recorded and never aborts the remaining sends; the only error this
// call returns is a precondition violation before iteration begins.
//
// The report is returned after all iterations complete; progress along
// the way is observable only through the logs.
func (s *Service) ShareContent(ctx context.Context, items []domain.ContentItem, targets []domain.DispatchTarget, delaySeconds int) (*domain.ShareReport, error) {
	if len(items) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("%w: content items and targets required", ErrInvalidRequest)
	}
	for _, t := range targets {
		if t.IsZero() {
			return nil, fmt.Errorf("%w: empty dispatch target", ErrInvalidRequest)
		}
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	report := &domain.ShareReport{
		OperationID: uuid.NewString(),
		Success:     []domain.DispatchOutcome{},
		Failed:      []domain.DispatchOutcome{},
	}
	total := len(items) * len(targets)
	s.logger.Info("share operation started",
		"operation_id", report.OperationID,
		"items", len(items), "targets", len(targets), "total", total)

	for i := range items {
		item := &items[i]
		text := format.Message(item)

		for _, target := range targets {
			if report.Attempts > 0 {
				delay := s.bulkDelay(delaySeconds)
				s.logger.Info("waiting before next message",
					"operation_id", report.OperationID, "delay", delay)
				if err := s.sleep(ctx, delay); err != nil {
					// The wait was cut short; the attempt still counts and
					// fails like any other so the report stays complete.
					report.Attempts++
					report.Failed = append(report.Failed, outcome(item, target, err))
					continue
				}
			}
			report.Attempts++

			s.logger.Info("sending content",
				"operation_id", report.OperationID,
				"item", item.ID, "target", target.String(),
				"progress", fmt.Sprintf("%d/%d", report.Attempts, total))

			if err := s.dispatchLocked(ctx, target, text); err != nil {
				s.logger.Warn("content send failed",
					"operation_id", report.OperationID,
					"item", item.ID, "target", target.String(), "error", err)
				report.Failed = append(report.Failed, outcome(item, target, err))
				continue
			}
			report.Success = append(report.Success, outcome(item, target, nil))
		}
	}

	s.logger.Info("share operation complete",
		"operation_id", report.OperationID,
		"success", len(report.Success), "failed", len(report.Failed))
	return report, nil
}

// bulkDelay computes the pause before one bulk send: the caller's delay
// raised to the hard floor, plus bounded random jitter.
func (s *Service) bulkDelay(delaySeconds int) time.Duration {
	base := time.Duration(delaySeconds) * time.Second
	if base < bulkDelayFloor {
		base = bulkDelayFloor
	}
	return base + time.Duration(s.jitter()*float64(bulkDelayJitter))
}

func outcome(item *domain.ContentItem, target domain.DispatchTarget, err error) domain.DispatchOutcome {
	o := domain.DispatchOutcome{
		Target:  target.String(),
		ItemID:  item.ID,
		Success: err == nil,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
