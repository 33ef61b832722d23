// Package alert delivers hour-overrun notices for closed jobs. Dispatch
// is fire-and-forget relative to the approval that triggered it: every
// failure is logged and reported back, but nothing here ever unwinds a
// committed reconciliation.
package alert

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

// Notifier delivers one batch of overrun alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []models.OverrunAlert) error
}

// Service records overrun alerts for audit and fans them out to the
// configured notifiers in one batch call.
type Service struct {
	repo      repository.AlertRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.AlertRepository, logger zerolog.Logger, notifiers ...Notifier) *Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "alert_service").Logger(),
		notifiers: active,
	}
}

// Dispatch persists the alerts and sends the whole batch to every
// notifier. Alerts that already carry an ID were recorded by the
// caller's transaction and are not written again. The returned strings
// describe delivery failures for the caller's response; an empty slice
// means everything went out.
func (s *Service) Dispatch(ctx context.Context, alerts []models.OverrunAlert) []string {
	if len(alerts) == 0 {
		return nil
	}

	var failures []string
	recorded := make([]models.OverrunAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID != 0 {
			recorded = append(recorded, a)
			continue
		}
		saved, err := s.repo.Create(ctx, a)
		if err != nil {
			s.logger.Error().Err(err).Str("job", a.JobName).Msg("failed to record overrun alert")
			failures = append(failures, fmt.Sprintf("record alert for job %q: %v", a.JobName, err))
			saved = a
		}
		recorded = append(recorded, saved)
	}

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, recorded); err != nil {
			s.logger.Warn().Err(err).Str("channel", channelName(n)).
				Int("alerts", len(recorded)).Msg("failed to deliver overrun alerts")
			failures = append(failures, fmt.Sprintf("deliver via %s: %v", channelName(n), err))
			continue
		}
		for _, a := range recorded {
			if a.ID == 0 {
				continue
			}
			if err := s.repo.MarkDelivered(ctx, a.ID); err != nil {
				s.logger.Warn().Err(err).Int64("alert_id", a.ID).Msg("failed to mark alert delivered")
			}
		}
	}
	return failures
}

// ListRecent exposes the audit trail per branch.
func (s *Service) ListRecent(ctx context.Context, branchID int64, limit int) ([]models.OverrunAlert, error) {
	return s.repo.ListByBranch(ctx, branchID, limit)
}

func channelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
