package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

// In-memory fakes over the repository interfaces. The store they form
// has no database handle, so WithinTx runs the callback directly.

type fakeBatchRepo struct {
	batches map[string]models.SyncBatch
}

func (f *fakeBatchRepo) Create(_ context.Context, b models.SyncBatch) (models.SyncBatch, error) {
	f.batches[b.ID] = b
	return b, nil
}

func (f *fakeBatchRepo) Get(_ context.Context, id string) (models.SyncBatch, error) {
	b, ok := f.batches[id]
	if !ok {
		return models.SyncBatch{}, repository.ErrBatchNotFound
	}
	return b, nil
}

func (f *fakeBatchRepo) List(_ context.Context, _ int) ([]models.SyncBatch, error) {
	out := make([]models.SyncBatch, 0, len(f.batches))
	for _, b := range f.batches {
		out = append(out, b)
	}
	return out, nil
}

type fakeLedgerRepo struct {
	rows []models.LedgerJobRow
}

func (f *fakeLedgerRepo) ReplaceForBatch(_ context.Context, batchID string, rows []models.LedgerJobRow) (int, error) {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.BatchID != batchID {
			kept = append(kept, r)
		}
	}
	f.rows = append(kept, rows...)
	return len(rows), nil
}

func (f *fakeLedgerRepo) ListByBatch(_ context.Context, batchID string) ([]models.LedgerJobRow, error) {
	var out []models.LedgerJobRow
	for _, r := range f.rows {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRawShiftRepo struct {
	records []models.RawShiftRecord
}

func (f *fakeRawShiftRepo) ReplaceForBatch(_ context.Context, batchID string, records []models.RawShiftRecord) (int, error) {
	kept := f.records[:0]
	for _, r := range f.records {
		if r.BatchID != batchID {
			kept = append(kept, r)
		}
	}
	f.records = append(kept, records...)
	return len(records), nil
}

func (f *fakeRawShiftRepo) ListByBatch(_ context.Context, batchID string) ([]models.RawShiftRecord, error) {
	var out []models.RawShiftRecord
	for _, r := range f.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRawShiftRepo) DistinctJobLabels(_ context.Context, batchID string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.records {
		if r.BatchID != batchID || seen[r.JobLabel] {
			continue
		}
		seen[r.JobLabel] = true
		out = append(out, r.JobLabel)
	}
	return out, nil
}

type fakeMatchRepo struct {
	nextID  int64
	matches []models.ConfirmedMatch
}

func (f *fakeMatchRepo) Upsert(_ context.Context, batchID, rawLabel string, ledgerRowID int64) (bool, error) {
	for i, m := range f.matches {
		if m.BatchID == batchID && m.RawLabel == rawLabel {
			f.matches[i].LedgerRowID = ledgerRowID
			return true, nil
		}
	}
	f.nextID++
	f.matches = append(f.matches, models.ConfirmedMatch{
		ID: f.nextID, BatchID: batchID, RawLabel: rawLabel, LedgerRowID: ledgerRowID,
	})
	return true, nil
}

func (f *fakeMatchRepo) Delete(_ context.Context, batchID, rawLabel string) error {
	kept := f.matches[:0]
	for _, m := range f.matches {
		if !(m.BatchID == batchID && m.RawLabel == rawLabel) {
			kept = append(kept, m)
		}
	}
	f.matches = kept
	return nil
}

func (f *fakeMatchRepo) ListByBatch(_ context.Context, batchID string) ([]models.ConfirmedMatch, error) {
	var out []models.ConfirmedMatch
	for _, m := range f.matches {
		if m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) LedgerRowTaken(_ context.Context, batchID string, ledgerRowID int64, excludeLabel string) (bool, error) {
	for _, m := range f.matches {
		if m.BatchID == batchID && m.LedgerRowID == ledgerRowID && m.RawLabel != excludeLabel {
			return true, nil
		}
	}
	return false, nil
}

type fakeJobRepo struct {
	nextID int64
	jobs   map[int64]models.Job
}

func (f *fakeJobRepo) Create(_ context.Context, job models.Job) (models.Job, error) {
	f.nextID++
	job.ID = f.nextID
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobRepo) Update(_ context.Context, job models.Job) error {
	stored, ok := f.jobs[job.ID]
	if !ok {
		return repository.ErrJobNotFound
	}
	stored.CrewLeadName = job.CrewLeadName
	stored.ClosingDate = job.ClosingDate
	stored.SoldPrice = job.SoldPrice
	stored.EstimatedHours = job.EstimatedHours
	stored.CurrentStatus = job.CurrentStatus
	stored.Performance = job.Performance
	f.jobs[job.ID] = stored
	return nil
}

func (f *fakeJobRepo) Get(_ context.Context, id int64) (models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return models.Job{}, repository.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobRepo) GetByExactName(_ context.Context, branchID int64, name string) (models.Job, bool, error) {
	for _, job := range f.jobs {
		if job.BranchID == branchID && strings.EqualFold(job.Name, name) {
			return job, true, nil
		}
	}
	return models.Job{}, false, nil
}

func (f *fakeJobRepo) ListByBranch(_ context.Context, branchID int64) ([]models.Job, error) {
	var out []models.Job
	for id := int64(1); id <= f.nextID; id++ {
		if job, ok := f.jobs[id]; ok && job.BranchID == branchID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) SetPerformanceStatus(_ context.Context, id int64, status models.JobPerformanceStatus) error {
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	job.Performance = status
	f.jobs[id] = job
	return nil
}

type shiftKey struct {
	employeeID int64
	jobID      int64
}

type fakeShiftRepo struct {
	nextID int64
	shifts map[shiftKey]models.Shift
}

func (f *fakeShiftRepo) GetByPair(_ context.Context, employeeID, jobID int64) (models.Shift, bool, error) {
	s, ok := f.shifts[shiftKey{employeeID, jobID}]
	return s, ok, nil
}

func (f *fakeShiftRepo) Create(_ context.Context, shift models.Shift) (models.Shift, error) {
	f.nextID++
	shift.ID = f.nextID
	f.shifts[shiftKey{shift.EmployeeID, shift.JobID}] = shift
	return shift, nil
}

func (f *fakeShiftRepo) UpdateHoursIfUnapproved(_ context.Context, shift models.Shift) (bool, error) {
	key := shiftKey{shift.EmployeeID, shift.JobID}
	stored, ok := f.shifts[key]
	if !ok || stored.ApprovedShift || stored.Performance == models.ShiftStatusRejected {
		return false, nil
	}
	stored.BatchID = shift.BatchID
	stored.DisplayName = shift.DisplayName
	stored.ShiftCount = shift.ShiftCount
	stored.RegularHours = shift.RegularHours
	stored.OvertimeHours = shift.OvertimeHours
	stored.DoubleOvertimeHours = shift.DoubleOvertimeHours
	stored.TotalHours = shift.TotalHours
	stored.Tags = shift.Tags
	stored.ApprovedShift = shift.ApprovedShift
	stored.Performance = shift.Performance
	f.shifts[key] = stored
	return true, nil
}

func (f *fakeShiftRepo) ListByJob(_ context.Context, jobID int64) ([]models.Shift, error) {
	var out []models.Shift
	for _, s := range f.shifts {
		if s.JobID == jobID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeShiftRepo) CountUnapproved(_ context.Context, jobID int64) (int, int, error) {
	pending, total := 0, 0
	for _, s := range f.shifts {
		if s.JobID != jobID {
			continue
		}
		total++
		if s.Performance == models.ShiftStatusPending {
			pending++
		}
	}
	return pending, total, nil
}

func (f *fakeShiftRepo) ApprovePending(_ context.Context, jobID int64) (int, error) {
	flipped := 0
	for key, s := range f.shifts {
		if s.JobID == jobID && s.Performance == models.ShiftStatusPending {
			s.ApprovedShift = true
			s.Performance = models.ShiftStatusApproved
			f.shifts[key] = s
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeShiftRepo) RejectPending(_ context.Context, employeeID, jobID int64) (bool, error) {
	key := shiftKey{employeeID, jobID}
	s, ok := f.shifts[key]
	if !ok || s.Performance != models.ShiftStatusPending {
		return false, nil
	}
	s.Performance = models.ShiftStatusRejected
	f.shifts[key] = s
	return true, nil
}

func (f *fakeShiftRepo) SumApprovedHours(_ context.Context, jobID int64) (float64, error) {
	var total float64
	for _, s := range f.shifts {
		if s.JobID == jobID && s.ApprovedShift {
			total += s.TotalHours
		}
	}
	return total, nil
}

type specialKey struct {
	jobID     int64
	shiftType models.SpecialShiftType
}

type fakeSpecialShiftRepo struct {
	nextID int64
	shifts map[specialKey]models.SpecialShift
}

func (f *fakeSpecialShiftRepo) GetByPair(_ context.Context, jobID int64, shiftType models.SpecialShiftType) (models.SpecialShift, bool, error) {
	s, ok := f.shifts[specialKey{jobID, shiftType}]
	return s, ok, nil
}

func (f *fakeSpecialShiftRepo) Create(_ context.Context, shift models.SpecialShift) (models.SpecialShift, error) {
	f.nextID++
	shift.ID = f.nextID
	f.shifts[specialKey{shift.JobID, shift.Type}] = shift
	return shift, nil
}

func (f *fakeSpecialShiftRepo) UpdateHoursIfUnapproved(_ context.Context, shift models.SpecialShift) (bool, error) {
	key := specialKey{shift.JobID, shift.Type}
	stored, ok := f.shifts[key]
	if !ok || stored.ApprovedShift || stored.Performance == models.ShiftStatusRejected {
		return false, nil
	}
	stored.BatchID = shift.BatchID
	stored.ShiftCount = shift.ShiftCount
	stored.TotalHours = shift.TotalHours
	stored.ApprovedShift = shift.ApprovedShift
	stored.Performance = shift.Performance
	f.shifts[key] = stored
	return true, nil
}

func (f *fakeSpecialShiftRepo) ListByJob(_ context.Context, jobID int64) ([]models.SpecialShift, error) {
	var out []models.SpecialShift
	for _, s := range f.shifts {
		if s.JobID == jobID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSpecialShiftRepo) CountUnapproved(_ context.Context, jobID int64) (int, int, error) {
	pending, total := 0, 0
	for _, s := range f.shifts {
		if s.JobID != jobID {
			continue
		}
		total++
		if s.Performance == models.ShiftStatusPending {
			pending++
		}
	}
	return pending, total, nil
}

func (f *fakeSpecialShiftRepo) ApprovePending(_ context.Context, jobID int64) (int, error) {
	flipped := 0
	for key, s := range f.shifts {
		if s.JobID == jobID && s.Performance == models.ShiftStatusPending {
			s.ApprovedShift = true
			s.Performance = models.ShiftStatusApproved
			f.shifts[key] = s
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeSpecialShiftRepo) SumApprovedHours(_ context.Context, jobID int64) (float64, error) {
	var total float64
	for _, s := range f.shifts {
		if s.JobID == jobID && s.ApprovedShift {
			total += s.TotalHours
		}
	}
	return total, nil
}

type fakeAlertRepo struct {
	nextID int64
	alerts []models.OverrunAlert
}

func (f *fakeAlertRepo) Create(_ context.Context, alert models.OverrunAlert) (models.OverrunAlert, error) {
	f.nextID++
	alert.ID = f.nextID
	alert.CreatedAt = time.Now()
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeAlertRepo) MarkDelivered(_ context.Context, id int64) error {
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			now := time.Now()
			f.alerts[i].DeliveredAt = &now
		}
	}
	return nil
}

func (f *fakeAlertRepo) ListByBranch(_ context.Context, branchID int64, _ int) ([]models.OverrunAlert, error) {
	var out []models.OverrunAlert
	for _, a := range f.alerts {
		if a.BranchID == branchID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	nextID    int64
	resolved  map[string]models.Employee
	failNames map[string]bool
}

func (f *fakeDirectory) ResolveOrCreate(_ context.Context, name string, branchID int64) (models.Employee, error) {
	if f.failNames[name] {
		return models.Employee{}, assert.AnError
	}
	if emp, ok := f.resolved[name]; ok {
		return emp, nil
	}
	f.nextID++
	emp := models.Employee{ID: f.nextID, BranchID: branchID, DisplayName: name, Status: models.EmployeeStatusActive}
	if f.resolved == nil {
		f.resolved = map[string]models.Employee{}
	}
	f.resolved[name] = emp
	return emp, nil
}

type fakeAlertSink struct {
	calls    [][]models.OverrunAlert
	failures []string
}

func (f *fakeAlertSink) Dispatch(_ context.Context, alerts []models.OverrunAlert) []string {
	f.calls = append(f.calls, alerts)
	return f.failures
}

type fixture struct {
	service *Service
	store   *repository.Store
	batches *fakeBatchRepo
	ledger  *fakeLedgerRepo
	raw     *fakeRawShiftRepo
	matches *fakeMatchRepo
	jobs    *fakeJobRepo
	shifts  *fakeShiftRepo
	special *fakeSpecialShiftRepo
	alerts  *fakeAlertRepo
	dir     *fakeDirectory
	sink    *fakeAlertSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		batches: &fakeBatchRepo{batches: map[string]models.SyncBatch{}},
		ledger:  &fakeLedgerRepo{},
		raw:     &fakeRawShiftRepo{},
		matches: &fakeMatchRepo{},
		jobs:    &fakeJobRepo{jobs: map[int64]models.Job{}},
		shifts:  &fakeShiftRepo{shifts: map[shiftKey]models.Shift{}},
		special: &fakeSpecialShiftRepo{shifts: map[specialKey]models.SpecialShift{}},
		alerts:  &fakeAlertRepo{},
		dir:     &fakeDirectory{resolved: map[string]models.Employee{}},
		sink:    &fakeAlertSink{},
	}
	f.store = &repository.Store{
		Batches:       f.batches,
		LedgerRows:    f.ledger,
		RawShifts:     f.raw,
		Matches:       f.matches,
		Jobs:          f.jobs,
		Shifts:        f.shifts,
		SpecialShifts: f.special,
		Alerts:        f.alerts,
	}
	f.service = NewService(f.store, nil, f.dir, f.sink, DefaultThresholds(), zerolog.Nop())
	return f
}

func (f *fixture) seedBatch(id string, branchID int64) {
	f.batches.batches[id] = models.SyncBatch{ID: id, BranchID: branchID}
}

func (f *fixture) seedLedgerRow(row models.LedgerJobRow) models.LedgerJobRow {
	row.ID = int64(len(f.ledger.rows) + 1)
	f.ledger.rows = append(f.ledger.rows, row)
	return row
}

func TestProposeMatchesRoutesLowConfidenceToManual(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Dale Fairchild - ORA"})
	f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Completely Different Project"})
	f.raw.records = []models.RawShiftRecord{
		{BatchID: "b1", JobLabel: "dale fairchild ora"},
		{BatchID: "b1", JobLabel: "warehouse cleanup"},
	}

	proposals, err := f.service.ProposeMatches(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	require.NotNil(t, proposals[0].MatchedLabel)
	assert.Equal(t, "dale fairchild ora", *proposals[0].MatchedLabel)
	assert.GreaterOrEqual(t, proposals[0].Score, 80)

	assert.Nil(t, proposals[1].MatchedLabel, "no candidate above threshold must yield a nil label")
}

func TestConfirmMatchesEnforcesOneLabelPerLedgerRow(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence"})

	_, err := f.service.ConfirmMatches(context.Background(), "b1", []Confirmation{
		{RawLabel: "smith res", LedgerRowID: &row.ID},
	})
	require.NoError(t, err)

	_, err = f.service.ConfirmMatches(context.Background(), "b1", []Confirmation{
		{RawLabel: "smith residence crew b", LedgerRowID: &row.ID},
	})
	require.ErrorIs(t, err, ErrLedgerRowTaken)
}

func TestConfirmMatchesRejectsForeignLedgerRow(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	foreign := int64(999)

	_, err := f.service.ConfirmMatches(context.Background(), "b1", []Confirmation{
		{RawLabel: "anything", LedgerRowID: &foreign},
	})
	require.ErrorIs(t, err, ErrUnknownLedgerRow)
}

func TestSaveCreatesJobAndShifts(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b1", JobName: "Lorie Scholten", BranchID: 7,
		CrewLeadName: "Drew Gipson (D)", EstimatedHours: 40,
	})

	result, err := f.service.Save(context.Background(), SaveParams{
		BatchID: "b1",
		Lines: []models.AggregatedLine{
			{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 2, RegularHours: 11, TotalHours: 11, Tags: "Drive, Prep"},
			{LedgerRowID: row.ID, DisplayName: "Lorie Scholten", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsCreated)
	assert.Equal(t, 0, result.JobsUpdated)
	assert.Equal(t, 2, result.ShiftsCreated)
	assert.Empty(t, result.Errors)

	job, found, err := f.jobs.GetByExactName(context.Background(), 7, "Lorie Scholten")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Drew Gipson", job.CrewLeadName, "crew lead name must be cleaned of annotations")
	assert.Equal(t, models.JobStatusPendingApproval, f.jobs.jobs[job.ID].Performance)

	require.Len(t, f.shifts.shifts, 2)
	for _, s := range f.shifts.shifts {
		assert.False(t, s.ApprovedShift)
		assert.Equal(t, models.ShiftStatusPending, s.Performance)
	}
}

func TestSaveIsIdempotentWhileUnapproved(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 20})
	line := models.AggregatedLine{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8}

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)

	line.RegularHours = 9.5
	line.TotalHours = 9.5
	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ShiftsCreated)
	assert.Equal(t, 1, result.ShiftsUpdated)
	assert.Equal(t, 0, result.DuplicatesApproved)

	require.Len(t, f.shifts.shifts, 1)
	for _, s := range f.shifts.shifts {
		assert.Equal(t, 9.5, s.TotalHours)
	}
}

func TestSaveNeverTouchesApprovedShifts(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 20})
	line := models.AggregatedLine{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8}

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	_, err = f.service.Approve(context.Background(), []int64{job.ID})
	require.NoError(t, err)

	line.RegularHours = 99
	line.TotalHours = 99
	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ShiftsCreated)
	assert.Equal(t, 0, result.ShiftsUpdated)
	assert.Equal(t, 0, result.ShiftsSkipped, "approved duplicates count only under duplicates_approved")
	assert.Equal(t, 1, result.DuplicatesApproved)

	for _, s := range f.shifts.shifts {
		assert.Equal(t, 8.0, s.TotalHours, "approved hours must survive a re-save untouched")
		assert.True(t, s.ApprovedShift)
	}
}

func TestSaveAutoApproveAppliesOnlyToSavedLines(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 40})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Alice Ames", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	_, err = f.service.Save(context.Background(), SaveParams{BatchID: "b1", AutoApprove: true, Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Bob Burr", ShiftCount: 1, RegularHours: 4, TotalHours: 4},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	alice := f.shifts.shifts[shiftKey{f.dir.resolved["Alice Ames"].ID, job.ID}]
	require.False(t, alice.ApprovedShift, "an auto-approve save must not approve another crew member's pending shift")
	assert.Equal(t, models.ShiftStatusPending, alice.Performance)

	bob := f.shifts.shifts[shiftKey{f.dir.resolved["Bob Burr"].ID, job.ID}]
	assert.True(t, bob.ApprovedShift)
	assert.Equal(t, models.ShiftStatusApproved, bob.Performance)
}

func TestSaveAutoApproveUpdatesExistingPendingPair(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 40})
	line := models.AggregatedLine{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8}

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)

	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", AutoApprove: true, Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ShiftsUpdated)

	for _, s := range f.shifts.shifts {
		assert.True(t, s.ApprovedShift)
		assert.Equal(t, models.ShiftStatusApproved, s.Performance)
	}
}

func TestSaveDoesNotResurrectRejectedShift(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 40})
	line := models.AggregatedLine{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8}

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	emp := f.dir.resolved["Drew Gipson"]
	_, _, err = f.service.Reject(context.Background(), []RejectPair{{EmployeeID: emp.ID, JobID: job.ID}})
	require.NoError(t, err)

	line.RegularHours = 12
	line.TotalHours = 12
	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{line}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ShiftsUpdated)
	assert.Equal(t, 0, result.DuplicatesApproved)
	assert.Equal(t, 1, result.ShiftsSkipped)

	s := f.shifts.shifts[shiftKey{emp.ID, job.ID}]
	assert.Equal(t, models.ShiftStatusRejected, s.Performance, "a re-save must not pull a rejected pair back to pending")
	assert.Equal(t, 8.0, s.TotalHours)
}

func TestSaveReusesJobAcrossNearDuplicateNames(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row1 := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Johnson Kitchen Remodel", BranchID: 7, EstimatedHours: 30})
	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row1.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	f.seedBatch("b2", 7)
	row2 := models.LedgerJobRow{BatchID: "b2", JobName: "Johnson Kitchen Remodel.", BranchID: 7, EstimatedHours: 30}
	row2 = f.seedLedgerRow(row2)
	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b2", Lines: []models.AggregatedLine{
		{LedgerRowID: row2.ID, DisplayName: "Lorie Scholten", ShiftCount: 1, RegularHours: 4, TotalHours: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.JobsCreated, "near-duplicate spelling must reuse the existing job")
	assert.Equal(t, 1, result.JobsUpdated)
	assert.Len(t, f.jobs.jobs, 1)
}

func TestSaveKeepsRealClosingDateOverSameDayPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	real := time.Now().AddDate(0, 0, -10)
	row := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b1", JobName: "Smith Residence", BranchID: 7,
		ClosingDate: &real, EstimatedHours: 20,
	})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	f.seedBatch("b2", 7)
	placeholder := time.Now()
	row2 := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b2", JobName: "Smith Residence", BranchID: 7,
		ClosingDate: &placeholder, EstimatedHours: 20,
	})
	_, err = f.service.Save(context.Background(), SaveParams{BatchID: "b2", Lines: []models.AggregatedLine{
		{LedgerRowID: row2.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	require.NotNil(t, job.ClosingDate)
	assert.True(t, job.ClosingDate.Equal(real), "same-day placeholder must not overwrite the stored closing date")
}

func TestSaveSpecialShiftsKeyedByTypeNotPerson(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 20})

	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{
			LedgerRowID: row.ID, DisplayName: models.QCSpecialDisplayName,
			ShiftCount: 4, TotalHours: 12,
			HasSpecial: true, SpecialType: models.SpecialShiftQC,
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ShiftsCreated)
	assert.Empty(t, f.dir.resolved, "special bucket names must never reach the directory")

	require.Len(t, f.special.shifts, 1)
	for _, s := range f.special.shifts {
		assert.Equal(t, models.SpecialShiftQC, s.Type)
		assert.Equal(t, 12.0, s.TotalHours)
	}
}

func TestSaveSkipsLineOnDirectoryFailure(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 20})
	f.dir.failNames = map[string]bool{"Bad Name": true}

	result, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Bad Name", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 4, TotalHours: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ShiftsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Bad Name")
}

func TestApproveClosesJobAndDispatchesOverrunBatch(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	closed := time.Now().AddDate(0, 0, -3)
	row := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b1", JobName: "Smith Residence", BranchID: 7,
		CrewLeadName: "Drew Gipson", ClosingDate: &closed, EstimatedHours: 10,
	})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 2, RegularHours: 12, TotalHours: 12},
	}})
	require.NoError(t, err)
	assert.Empty(t, f.sink.calls, "no alert before approval closes the job")

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	result, err := f.service.Approve(context.Background(), []int64{job.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsUpdated)
	assert.Equal(t, 1, result.ShiftsApproved)
	assert.Equal(t, 0, result.SpecialShiftsApproved)
	assert.Equal(t, 1, result.JobsClosed)
	assert.Equal(t, models.JobStatusClosed, f.jobs.jobs[job.ID].Performance)

	require.Len(t, f.sink.calls, 1, "alerts go out as one batch per sweep")
	require.Len(t, f.sink.calls[0], 1)
	alert := f.sink.calls[0][0]
	assert.Equal(t, 12.0, alert.WorkedHours)
	assert.Equal(t, 10.0, alert.EstimatedHours)
	assert.Equal(t, -2.0, alert.HoursSaved)
	require.Len(t, f.alerts.alerts, 1, "alert must be persisted before dispatch")
}

func TestApproveUnderrunClosesWithoutAlert(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	closed := time.Now().AddDate(0, 0, -3)
	row := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b1", JobName: "Smith Residence", BranchID: 7,
		ClosingDate: &closed, EstimatedHours: 40,
	})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	result, err := f.service.Approve(context.Background(), []int64{job.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsClosed)
	assert.Equal(t, models.JobStatusClosed, f.jobs.jobs[job.ID].Performance)
	assert.Empty(t, f.sink.calls, "worked within estimate raises no alert")
}

func TestApproveCountsSpecialShiftsSeparately(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 40})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
		{
			LedgerRowID: row.ID, DisplayName: models.QCSpecialDisplayName,
			ShiftCount: 2, TotalHours: 6,
			HasSpecial: true, SpecialType: models.SpecialShiftQC,
		},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	result, err := f.service.Approve(context.Background(), []int64{job.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsUpdated)
	assert.Equal(t, 1, result.ShiftsApproved)
	assert.Equal(t, 1, result.SpecialShiftsApproved)
	assert.Equal(t, 0, result.JobsClosed, "job without a closing date stays open")
}

func TestAlertDeliveryFailureDoesNotFailApproval(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	closed := time.Now().AddDate(0, 0, -3)
	row := f.seedLedgerRow(models.LedgerJobRow{
		BatchID: "b1", JobName: "Smith Residence", BranchID: 7,
		ClosingDate: &closed, EstimatedHours: 5,
	})
	f.sink.failures = []string{"webhook: connection refused"}

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	result, err := f.service.Approve(context.Background(), []int64{job.ID})
	require.NoError(t, err, "delivery failure must not unwind the approval")
	assert.Equal(t, []string{"webhook: connection refused"}, result.AlertErrors)
	assert.Equal(t, models.JobStatusClosed, f.jobs.jobs[job.ID].Performance)
}

func TestRejectMarksPairAndReportsNonPending(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence", BranchID: 7, EstimatedHours: 20})

	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "b1", Lines: []models.AggregatedLine{
		{LedgerRowID: row.ID, DisplayName: "Drew Gipson", ShiftCount: 1, RegularHours: 8, TotalHours: 8},
	}})
	require.NoError(t, err)

	job, _, _ := f.jobs.GetByExactName(context.Background(), 7, "Smith Residence")
	emp := f.dir.resolved["Drew Gipson"]

	rejected, failures, err := f.service.Reject(context.Background(), []RejectPair{
		{EmployeeID: emp.ID, JobID: job.ID},
		{EmployeeID: 999, JobID: job.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	require.Len(t, failures, 1)

	s, ok := f.shifts.shifts[shiftKey{emp.ID, job.ID}]
	require.True(t, ok)
	assert.Equal(t, models.ShiftStatusRejected, s.Performance)
	assert.False(t, s.ApprovedShift)
}

func TestUnmatchedLabelsExcludesConfirmed(t *testing.T) {
	f := newFixture(t)
	f.seedBatch("b1", 7)
	row := f.seedLedgerRow(models.LedgerJobRow{BatchID: "b1", JobName: "Smith Residence"})
	f.raw.records = []models.RawShiftRecord{
		{BatchID: "b1", JobLabel: "smith res"},
		{BatchID: "b1", JobLabel: "warehouse cleanup"},
	}
	_, err := f.service.ConfirmMatches(context.Background(), "b1", []Confirmation{
		{RawLabel: "smith res", LedgerRowID: &row.ID},
	})
	require.NoError(t, err)

	unmatched, err := f.service.UnmatchedLabels(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"warehouse cleanup"}, unmatched)
}

func TestSaveRejectsUnknownBatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Save(context.Background(), SaveParams{BatchID: "nope"})
	require.ErrorIs(t, err, repository.ErrBatchNotFound)
}
