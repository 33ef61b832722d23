package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewtally/tally-api/internal/models"
)

func regularShift(job, crew string, regular, overtime float64) models.RawShiftRecord {
	return models.RawShiftRecord{
		JobLabel:      job,
		CrewMember:    crew,
		RegularHours:  regular,
		OvertimeHours: overtime,
		TotalHours:    regular + overtime,
	}
}

func qcShift(job, crew string, hours float64) models.RawShiftRecord {
	rec := regularShift(job, crew, hours, 0)
	rec.IsQualityControl = true
	rec.Tags = "QC"
	return rec
}

func TestRollupGroupsByJobAndCrewMember(t *testing.T) {
	shifts := []models.RawShiftRecord{
		regularShift("Lorie Scholten", "Drew Gipson (D)", 8.5, 1.5),
		regularShift("Lorie Scholten", "Drew Gipson (D)", 1.0, 0),
		regularShift("Lorie Scholten", "Sam Ochoa", 4.0, 0),
	}
	matches := map[string]int64{"Lorie Scholten": 10}

	lines, unmatched := Rollup(shifts, matches)
	require.Empty(t, unmatched)
	require.Len(t, lines, 2)

	drew := lines[0]
	assert.Equal(t, "Drew Gipson", drew.DisplayName)
	assert.Equal(t, 2, drew.ShiftCount)
	assert.InDelta(t, 9.5, drew.RegularHours, 1e-9)
	assert.InDelta(t, 1.5, drew.OvertimeHours, 1e-9)
	assert.InDelta(t, 11.0, drew.TotalHours, 1e-9)
	assert.False(t, drew.HasSpecial)

	assert.Equal(t, "Sam Ochoa", lines[1].DisplayName)
}

func TestRollupExcludesUnmatchedShifts(t *testing.T) {
	shifts := []models.RawShiftRecord{
		regularShift("Known Job", "Sam Ochoa", 2, 0),
		regularShift("Mystery Job", "Sam Ochoa", 3, 0),
	}

	lines, unmatched := Rollup(shifts, map[string]int64{"Known Job": 1})
	require.Len(t, lines, 1)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "Mystery Job", unmatched[0].JobLabel)
}

func TestRollupSpecialShiftFixedDuration(t *testing.T) {
	// Four QC shifts by three different people, with wildly different
	// clocked hours: the bucket still resolves to 4 * 3 = 12.
	shifts := []models.RawShiftRecord{
		qcShift("Lorie Scholten", "Drew Gipson", 8),
		qcShift("Lorie Scholten", "Sam Ochoa", 0.25),
		qcShift("Lorie Scholten", "Sam Ochoa", 11),
		qcShift("Lorie Scholten", "Pat Lee", 2),
	}

	lines, _ := Rollup(shifts, map[string]int64{"Lorie Scholten": 10})
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, models.QCSpecialDisplayName, line.DisplayName)
	assert.True(t, line.HasSpecial)
	assert.Equal(t, models.SpecialShiftQC, line.SpecialType)
	assert.Equal(t, 4, line.ShiftCount)
	assert.InDelta(t, 12.0, line.TotalHours, 1e-9)
	assert.InDelta(t, 12.0, line.RegularHours, 1e-9)
	assert.Zero(t, line.OvertimeHours)
	assert.Zero(t, line.DoubleOvertimeHours)
}

func TestRollupSpecialPrecedesRegular(t *testing.T) {
	shifts := []models.RawShiftRecord{
		qcShift("Lorie Scholten", "Drew Gipson", 8),
		regularShift("Lorie Scholten", "Drew Gipson", 5, 0),
	}

	lines, _ := Rollup(shifts, map[string]int64{"Lorie Scholten": 10})
	require.Len(t, lines, 2)

	names := []string{lines[0].DisplayName, lines[1].DisplayName}
	assert.Contains(t, names, models.QCSpecialDisplayName)
	assert.Contains(t, names, "Drew Gipson")
}

func TestRollupTagsDeduplicated(t *testing.T) {
	a := regularShift("Job A", "Sam Ochoa", 2, 0)
	a.Tags = "Drive, Prep"
	b := regularShift("Job A", "Sam Ochoa", 3, 0)
	b.Tags = "Prep, Cleanup"

	lines, _ := Rollup([]models.RawShiftRecord{a, b}, map[string]int64{"Job A": 1})
	require.Len(t, lines, 1)
	assert.Equal(t, "Drive, Prep, Cleanup", lines[0].Tags)
}

func TestRollupIdempotent(t *testing.T) {
	shifts := []models.RawShiftRecord{
		regularShift("Job A", "Sam Ochoa", 2, 1.5),
		qcShift("Job A", "Pat Lee", 4),
		regularShift("Job B", "Sam Ochoa", 6, 0),
	}
	matches := map[string]int64{"Job A": 1, "Job B": 2}

	first, firstUnmatched := Rollup(shifts, matches)
	second, secondUnmatched := Rollup(shifts, matches)
	assert.Equal(t, first, second)
	assert.Equal(t, firstUnmatched, secondUnmatched)
}

func TestRollupRegularHoursInvariant(t *testing.T) {
	// Sum of regular-line totals equals the sum of per-shift totals for
	// non-special shifts confirmed to the job.
	shifts := []models.RawShiftRecord{
		regularShift("Job A", "Sam Ochoa", 2, 1.5),
		regularShift("Job A", "Pat Lee", 4, 0),
		qcShift("Job A", "Drew Gipson", 9),
	}

	lines, _ := Rollup(shifts, map[string]int64{"Job A": 1})
	var regularTotal float64
	for _, line := range lines {
		if !line.HasSpecial {
			regularTotal += line.TotalHours
		}
	}
	assert.InDelta(t, 7.5, regularTotal, 1e-9)
}
