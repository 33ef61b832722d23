package models

import "fmt"

// ShiftStatus is the per-shift approval state machine. Transitions run
// only through the functions below; no other code path writes the field.
type ShiftStatus string

const (
	ShiftStatusPending  ShiftStatus = "pending_approval"
	ShiftStatusApproved ShiftStatus = "approved"
	ShiftStatusRejected ShiftStatus = "rejected"
)

// JobPerformanceStatus tracks where a job sits in the reconciliation
// workflow. Synced means no performance action is pending, Closed means
// every shift is approved and the job is in the external payload.
type JobPerformanceStatus string

const (
	JobStatusSynced          JobPerformanceStatus = "synced"
	JobStatusPendingApproval JobPerformanceStatus = "pending_approval"
	JobStatusClosed          JobPerformanceStatus = "closed"
)

// CurrentStatus values come from the job-status vocabulary owned by the
// ledger side; this core only consumes them to decide auto-close.
const (
	CurrentStatusRequiresCrewLead = "Requires Crew Lead"
	CurrentStatusInProgress       = "In Progress"
	CurrentStatusClosedJob        = "Closed Job"
)

// ApproveShiftStatus transitions a pending shift to approved. Approved
// is terminal: a second approval is a no-op error so sweeps can count
// it, and rejected shifts never re-enter the approval path.
func ApproveShiftStatus(s ShiftStatus) (ShiftStatus, error) {
	switch s {
	case ShiftStatusPending:
		return ShiftStatusApproved, nil
	case ShiftStatusApproved:
		return s, fmt.Errorf("shift already approved")
	default:
		return s, fmt.Errorf("cannot approve shift in status %q", s)
	}
}

// RejectShiftStatus transitions a pending shift to rejected.
func RejectShiftStatus(s ShiftStatus) (ShiftStatus, error) {
	if s != ShiftStatusPending {
		return s, fmt.Errorf("cannot reject shift in status %q", s)
	}
	return ShiftStatusRejected, nil
}

// NextJobStatus derives the job performance status from its shift
// population after a save or approval sweep.
func NextJobStatus(unapproved, total int, closedJob bool) JobPerformanceStatus {
	if total == 0 {
		return JobStatusSynced
	}
	if unapproved > 0 {
		return JobStatusPendingApproval
	}
	if closedJob {
		return JobStatusClosed
	}
	return JobStatusSynced
}
