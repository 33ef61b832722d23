package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crewtally/tally-api/internal/directory"
	"github.com/crewtally/tally-api/internal/match"
	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

// SaveParams scope one save run. JobFilter restricts the save to the
// named ledger rows; empty means every aggregated line in the batch.
type SaveParams struct {
	BatchID     string                  `json:"batch_id"`
	AutoApprove bool                    `json:"auto_approve"`
	JobFilter   []int64                 `json:"job_filter,omitempty"`
	Lines       []models.AggregatedLine `json:"lines"`
}

// SaveResult summarizes one save run. Errors holds per-line failures
// that skipped a line without aborting the run; AlertErrors holds
// delivery failures from the post-commit alert dispatch.
type SaveResult struct {
	JobsCreated        int      `json:"jobs_created"`
	JobsUpdated        int      `json:"jobs_updated"`
	ShiftsCreated      int      `json:"shifts_created"`
	ShiftsUpdated      int      `json:"shifts_updated"`
	ShiftsSkipped      int      `json:"shifts_skipped"`
	DuplicatesApproved int      `json:"duplicates_approved"`
	Errors             []string `json:"errors,omitempty"`
	AlertErrors        []string `json:"alert_errors,omitempty"`
}

// Save persists aggregated lines as durable jobs and shifts. Directory
// resolution happens before the transaction; everything durable happens
// inside one transaction per batch, so a mid-save failure leaves jobs
// and shifts exactly as they were. Overrun alerts are recorded in the
// same transaction and dispatched only after commit.
func (s *Service) Save(ctx context.Context, params SaveParams) (SaveResult, error) {
	var result SaveResult
	if strings.TrimSpace(params.BatchID) == "" {
		return result, ErrBatchRequired
	}

	batch, err := s.store.Batches.Get(ctx, params.BatchID)
	if err != nil {
		return result, err
	}
	ledgerRows, err := s.store.LedgerRows.ListByBatch(ctx, params.BatchID)
	if err != nil {
		return result, err
	}
	rowsByID := make(map[int64]models.LedgerJobRow, len(ledgerRows))
	for _, row := range ledgerRows {
		rowsByID[row.ID] = row
	}

	wanted := func(int64) bool { return true }
	if len(params.JobFilter) > 0 {
		filter := make(map[int64]bool, len(params.JobFilter))
		for _, id := range params.JobFilter {
			filter[id] = true
		}
		wanted = func(id int64) bool { return filter[id] }
	}

	// Group lines per ledger row, keeping aggregation order within
	// each group. Lines whose row the batch does not own are recorded
	// as errors and skipped.
	grouped := make(map[int64][]models.AggregatedLine)
	var rowOrder []int64
	for _, line := range params.Lines {
		if !wanted(line.LedgerRowID) {
			continue
		}
		if _, ok := rowsByID[line.LedgerRowID]; !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("ledger row %d: not part of batch %s", line.LedgerRowID, params.BatchID))
			continue
		}
		if _, seen := grouped[line.LedgerRowID]; !seen {
			rowOrder = append(rowOrder, line.LedgerRowID)
		}
		grouped[line.LedgerRowID] = append(grouped[line.LedgerRowID], line)
	}
	sort.Slice(rowOrder, func(i, j int) bool { return rowOrder[i] < rowOrder[j] })

	// Directory resolution runs before the transaction. A resolution
	// failure skips that line only; the special buckets never reach
	// the directory.
	employees := make(map[string]models.Employee)
	for _, rowID := range rowOrder {
		kept := grouped[rowID][:0]
		for _, line := range grouped[rowID] {
			if line.HasSpecial {
				kept = append(kept, line)
				continue
			}
			if _, ok := employees[line.DisplayName]; !ok {
				emp, err := s.directory.ResolveOrCreate(ctx, line.DisplayName, batch.BranchID)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("resolve %q: %v", line.DisplayName, err))
					continue
				}
				employees[line.DisplayName] = emp
			}
			kept = append(kept, line)
		}
		grouped[rowID] = kept
	}

	var alerts []models.OverrunAlert
	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		for _, rowID := range rowOrder {
			lines := grouped[rowID]
			if len(lines) == 0 {
				continue
			}
			row := rowsByID[rowID]

			job, created, err := s.resolveJob(ctx, tx, row)
			if err != nil {
				return err
			}
			if created {
				result.JobsCreated++
			} else {
				result.JobsUpdated++
			}

			for _, line := range lines {
				if line.HasSpecial {
					s.saveSpecialLine(ctx, tx, job, params, line, &result)
					continue
				}
				s.saveShiftLine(ctx, tx, job, params, line, employees[line.DisplayName], &result)
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
		return result, err
	}

	if len(alerts) > 0 && s.alerts != nil {
		result.AlertErrors = s.alerts.Dispatch(ctx, alerts)
	}

	s.logger.Info().
		Str("batch_id", params.BatchID).
		Int("jobs_created", result.JobsCreated).
		Int("jobs_updated", result.JobsUpdated).
		Int("shifts_created", result.ShiftsCreated).
		Int("shifts_updated", result.ShiftsUpdated).
		Int("duplicates_approved", result.DuplicatesApproved).
		Msg("save completed")
	return result, nil
}

// resolveJob finds the durable job for a ledger row: exact name match
// first, then a fuzzy pass over branch jobs to absorb near-duplicate
// spellings, then creation. Existing jobs get their ledger fields
// refreshed, subject to the placeholder closing-date guard.
func (s *Service) resolveJob(ctx context.Context, tx *repository.Store, row models.LedgerJobRow) (models.Job, bool, error) {
	job, found, err := tx.Jobs.GetByExactName(ctx, row.BranchID, row.JobName)
	if err != nil {
		return models.Job{}, false, err
	}
	if !found {
		existing, err := tx.Jobs.ListByBranch(ctx, row.BranchID)
		if err != nil {
			return models.Job{}, false, err
		}
		candidates := make([]match.Candidate, len(existing))
		for i, j := range existing {
			candidates[i] = match.Candidate{ID: j.ID, Label: j.Name}
		}
		if res, ok := match.BestMatch(row.JobName, candidates, s.thresholds.DuplicateJob); ok {
			for _, j := range existing {
				if j.ID == res.Candidate.ID {
					job, found = j, true
					break
				}
			}
			s.logger.Debug().Str("ledger_name", row.JobName).Str("job_name", job.Name).Int("score", res.Score).Msg("fuzzy job match absorbed near-duplicate")
		}
	}

	if !found {
		job = models.Job{
			Name:           row.JobName,
			BranchID:       row.BranchID,
			CrewLeadName:   directory.CleanName(row.CrewLeadName),
			ClosingDate:    row.ClosingDate,
			SoldPrice:      row.SoldPrice,
			EstimatedHours: row.EstimatedHours,
			CurrentStatus:  models.CurrentStatusInProgress,
			Performance:    models.JobStatusSynced,
		}
		if row.ClosingDate != nil {
			job.CurrentStatus = models.CurrentStatusClosedJob
		}
		job, err = tx.Jobs.Create(ctx, job)
		if err != nil {
			return models.Job{}, false, err
		}
		return job, true, nil
	}

	job.CrewLeadName = directory.CleanName(row.CrewLeadName)
	job.SoldPrice = row.SoldPrice
	job.EstimatedHours = row.EstimatedHours
	if keepClosingDate(job.ClosingDate, row.ClosingDate) {
		job.ClosingDate = row.ClosingDate
	}
	if job.ClosingDate != nil {
		job.CurrentStatus = models.CurrentStatusClosedJob
	}
	if err := tx.Jobs.Update(ctx, job); err != nil {
		return models.Job{}, false, err
	}
	return job, false, nil
}

// keepClosingDate decides whether the incoming ledger closing date may
// replace the stored one. A same-day incoming date is treated as a
// placeholder the ledger side stamps on still-open rows; it never
// overwrites a real stored date.
func keepClosingDate(stored, incoming *time.Time) bool {
	if incoming == nil {
		return false
	}
	if stored == nil {
		return true
	}
	now := time.Now()
	sameDay := incoming.Year() == now.Year() && incoming.YearDay() == now.YearDay()
	return !sameDay
}

// lineApprovalState maps the save's auto-approve flag onto the state of
// the line being written. Auto-approval covers only the lines of this
// save; pairs written earlier stay untouched until the explicit
// approval sweep.
func lineApprovalState(autoApprove bool) (bool, models.ShiftStatus) {
	if autoApprove {
		return true, models.ShiftStatusApproved
	}
	return false, models.ShiftStatusPending
}

func (s *Service) saveShiftLine(ctx context.Context, tx *repository.Store, job models.Job, params SaveParams, line models.AggregatedLine, emp models.Employee, result *SaveResult) {
	approved, status := lineApprovalState(params.AutoApprove)
	shift := models.Shift{
		JobID:               job.ID,
		EmployeeID:          emp.ID,
		BatchID:             params.BatchID,
		DisplayName:         line.DisplayName,
		ShiftCount:          line.ShiftCount,
		RegularHours:        line.RegularHours,
		OvertimeHours:       line.OvertimeHours,
		DoubleOvertimeHours: line.DoubleOvertimeHours,
		TotalHours:          line.TotalHours,
		Tags:                line.Tags,
		ApprovedShift:       approved,
		Performance:         status,
	}

	updated, err := tx.Shifts.UpdateHoursIfUnapproved(ctx, shift)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("shift %q on job %d: %v", line.DisplayName, job.ID, err))
		return
	}
	if updated {
		result.ShiftsUpdated++
		return
	}

	existing, exists, err := tx.Shifts.GetByPair(ctx, emp.ID, job.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("shift %q on job %d: %v", line.DisplayName, job.ID, err))
		return
	}
	if exists {
		// The pair exists but the guarded update touched nothing:
		// either it is already approved and must not be paid twice, or
		// it was rejected and stays out of the approval path.
		if existing.ApprovedShift {
			result.DuplicatesApproved++
		} else {
			result.ShiftsSkipped++
		}
		return
	}
	if _, err := tx.Shifts.Create(ctx, shift); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("shift %q on job %d: %v", line.DisplayName, job.ID, err))
		return
	}
	result.ShiftsCreated++
}

func (s *Service) saveSpecialLine(ctx context.Context, tx *repository.Store, job models.Job, params SaveParams, line models.AggregatedLine, result *SaveResult) {
	approved, status := lineApprovalState(params.AutoApprove)
	shift := models.SpecialShift{
		JobID:         job.ID,
		Type:          line.SpecialType,
		BatchID:       params.BatchID,
		ShiftCount:    line.ShiftCount,
		TotalHours:    line.TotalHours,
		ApprovedShift: approved,
		Performance:   status,
	}

	updated, err := tx.SpecialShifts.UpdateHoursIfUnapproved(ctx, shift)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("special shift %s on job %d: %v", line.SpecialType, job.ID, err))
		return
	}
	if updated {
		result.ShiftsUpdated++
		return
	}

	existing, exists, err := tx.SpecialShifts.GetByPair(ctx, job.ID, line.SpecialType)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("special shift %s on job %d: %v", line.SpecialType, job.ID, err))
		return
	}
	if exists {
		if existing.ApprovedShift {
			result.DuplicatesApproved++
		} else {
			result.ShiftsSkipped++
		}
		return
	}
	if _, err := tx.SpecialShifts.Create(ctx, shift); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("special shift %s on job %d: %v", line.SpecialType, job.ID, err))
		return
	}
	result.ShiftsCreated++
}

// settleOutcome reports what settleJobStatus did: whether the job's
// performance status changed, whether it crossed into closed, and the
// overrun alert raised by that close, if any.
type settleOutcome struct {
	changed bool
	closed  bool
	alert   *models.OverrunAlert
}

// settleJobStatus recomputes the job's performance status from its
// shift population. Crossing into closed is the single point that
// evaluates the overrun policy; the returned alert (already persisted)
// is dispatched by the caller after commit.
func (s *Service) settleJobStatus(ctx context.Context, tx *repository.Store, job models.Job) (settleOutcome, error) {
	var outcome settleOutcome

	pending, total, err := tx.Shifts.CountUnapproved(ctx, job.ID)
	if err != nil {
		return outcome, err
	}
	spPending, spTotal, err := tx.SpecialShifts.CountUnapproved(ctx, job.ID)
	if err != nil {
		return outcome, err
	}

	closedJob := job.CurrentStatus == models.CurrentStatusClosedJob
	next := models.NextJobStatus(pending+spPending, total+spTotal, closedJob)
	if next == job.Performance {
		return outcome, nil
	}
	if err := tx.Jobs.SetPerformanceStatus(ctx, job.ID, next); err != nil {
		return outcome, err
	}
	outcome.changed = true

	if next != models.JobStatusClosed {
		return outcome, nil
	}
	outcome.closed = true

	worked, err := tx.Shifts.SumApprovedHours(ctx, job.ID)
	if err != nil {
		return outcome, err
	}
	spWorked, err := tx.SpecialShifts.SumApprovedHours(ctx, job.ID)
	if err != nil {
		return outcome, err
	}
	worked += spWorked
	if worked <= job.EstimatedHours {
		return outcome, nil
	}

	alert := models.OverrunAlert{
		JobID:          job.ID,
		JobName:        job.Name,
		BranchID:       job.BranchID,
		CrewLeadName:   job.CrewLeadName,
		EstimatedHours: job.EstimatedHours,
		WorkedHours:    worked,
		HoursSaved:     job.EstimatedHours - worked,
	}
	alert, err = tx.Alerts.Create(ctx, alert)
	if err != nil {
		return outcome, err
	}
	outcome.alert = &alert
	return outcome, nil
}
