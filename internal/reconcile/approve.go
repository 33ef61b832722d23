package reconcile

import (
	"context"
	"fmt"

	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

// ApproveResult summarizes an approval sweep across one or more jobs.
// JobsUpdated counts jobs whose performance status changed; JobsClosed
// is the subset that crossed into closed.
type ApproveResult struct {
	JobsUpdated           int      `json:"jobs_updated"`
	ShiftsApproved        int      `json:"shifts_approved"`
	SpecialShiftsApproved int      `json:"special_shifts_approved"`
	JobsClosed            int      `json:"jobs_closed"`
	AlertErrors           []string `json:"alert_errors,omitempty"`
}

// Approve flips every pending shift on the named jobs to approved and
// recomputes each job's status. The whole sweep is one transaction;
// alerts raised by jobs crossing into closed go out as a single batch
// after commit.
func (s *Service) Approve(ctx context.Context, jobIDs []int64) (ApproveResult, error) {
	var result ApproveResult
	var alerts []models.OverrunAlert

	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		for _, jobID := range jobIDs {
			job, err := tx.Jobs.Get(ctx, jobID)
			if err != nil {
				return err
			}

			flipped, err := tx.Shifts.ApprovePending(ctx, jobID)
			if err != nil {
				return err
			}
			spFlipped, err := tx.SpecialShifts.ApprovePending(ctx, jobID)
			if err != nil {
				return err
			}
			result.ShiftsApproved += flipped
			result.SpecialShiftsApproved += spFlipped

			outcome, err := s.settleJobStatus(ctx, tx, job)
			if err != nil {
				return err
			}
			if outcome.changed {
				result.JobsUpdated++
			}
			if outcome.closed {
				result.JobsClosed++
			}
			if outcome.alert != nil {
				alerts = append(alerts, *outcome.alert)
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if len(alerts) > 0 && s.alerts != nil {
		result.AlertErrors = s.alerts.Dispatch(ctx, alerts)
	}

	s.logger.Info().
		Ints64("job_ids", jobIDs).
		Int("jobs_updated", result.JobsUpdated).
		Int("shifts_approved", result.ShiftsApproved).
		Int("special_shifts_approved", result.SpecialShiftsApproved).
		Int("jobs_closed", result.JobsClosed).
		Msg("approval sweep completed")
	return result, nil
}

// RejectPair names one pending (employee, job) shift to reject.
type RejectPair struct {
	EmployeeID int64 `json:"employee_id"`
	JobID      int64 `json:"job_id"`
}

// Reject marks the named pending shifts rejected. Rejected shifts keep
// their row for audit but never count toward worked hours and never
// re-enter the approval path. Approved shifts cannot be rejected; a
// pair that is not pending is reported back, not silently skipped.
func (s *Service) Reject(ctx context.Context, pairs []RejectPair) (int, []string, error) {
	rejected := 0
	var failures []string
	var alerts []models.OverrunAlert

	err := s.store.WithinTx(ctx, func(tx *repository.Store) error {
		for _, pair := range pairs {
			ok, err := tx.Shifts.RejectPending(ctx, pair.EmployeeID, pair.JobID)
			if err != nil {
				return err
			}
			if !ok {
				failures = append(failures, fmt.Sprintf("shift (employee %d, job %d) is not pending", pair.EmployeeID, pair.JobID))
				continue
			}
			rejected++

			job, err := tx.Jobs.Get(ctx, pair.JobID)
			if err != nil {
				return err
			}
			outcome, err := s.settleJobStatus(ctx, tx, job)
			if err != nil {
				return err
			}
			if outcome.alert != nil {
				alerts = append(alerts, *outcome.alert)
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	if len(alerts) > 0 && s.alerts != nil {
		for _, failure := range s.alerts.Dispatch(ctx, alerts) {
			failures = append(failures, failure)
		}
	}
	return rejected, failures, nil
}
