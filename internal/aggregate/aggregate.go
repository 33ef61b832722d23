// Package aggregate rolls confirmed raw shifts up into per-crew-member
// lines, one per (job, display-name) key. It is a pure computation:
// calling it twice over the same inputs yields identical lines, and
// nothing here touches the durable store.
package aggregate

import (
	"sort"
	"strings"

	"github.com/crewtally/tally-api/internal/directory"
	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/timeclock"
)

// SpecialShiftHours is the fixed per-occurrence duration for special
// shifts. Their totals are always shift_count * this value, never the
// clocked time.
const SpecialShiftHours = 3.0

type lineKey struct {
	ledgerRowID int64
	displayName string
}

type accumulator struct {
	line models.AggregatedLine
	tags []string
	seen map[string]bool
}

// Rollup groups raw shifts by (job, display-name) under the confirmed
// label-to-ledger-row mapping. Shifts whose label has no confirmed
// match are excluded and returned separately for operator review.
// Special shifts bucket under their synthetic display names regardless
// of crew member and take fixed-duration totals in a post-pass.
func Rollup(shifts []models.RawShiftRecord, matches map[string]int64) (lines []models.AggregatedLine, unmatched []models.RawShiftRecord) {
	order := make([]lineKey, 0)
	acc := make(map[lineKey]*accumulator)

	for _, shift := range shifts {
		ledgerRowID, ok := matches[shift.JobLabel]
		if !ok {
			unmatched = append(unmatched, shift)
			continue
		}

		line := classify(shift, ledgerRowID)
		key := lineKey{ledgerRowID: ledgerRowID, displayName: line.DisplayName}
		a, exists := acc[key]
		if !exists {
			a = &accumulator{line: line, seen: make(map[string]bool)}
			acc[key] = a
			order = append(order, key)
		}

		a.line.ShiftCount++
		if !a.line.HasSpecial {
			// Special shifts never accumulate raw hours; the
			// post-pass overwrites them wholesale.
			a.line.RegularHours += shift.RegularHours
			a.line.OvertimeHours += shift.OvertimeHours
			a.line.DoubleOvertimeHours += shift.DoubleOvertimeHours
			a.line.TotalHours += shift.TotalHours
		}
		collectTags(a, shift.Tags)
	}

	lines = make([]models.AggregatedLine, 0, len(order))
	for _, key := range order {
		a := acc[key]
		if a.line.HasSpecial {
			a.line.RegularHours = float64(a.line.ShiftCount) * SpecialShiftHours
			a.line.TotalHours = a.line.RegularHours
			a.line.OvertimeHours = 0
			a.line.DoubleOvertimeHours = 0
		}
		a.line.RegularHours = timeclock.Round2(a.line.RegularHours)
		a.line.OvertimeHours = timeclock.Round2(a.line.OvertimeHours)
		a.line.DoubleOvertimeHours = timeclock.Round2(a.line.DoubleOvertimeHours)
		a.line.TotalHours = timeclock.Round2(a.line.TotalHours)
		a.line.Tags = strings.Join(a.tags, ", ")
		lines = append(lines, a.line)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].LedgerRowID != lines[j].LedgerRowID {
			return lines[i].LedgerRowID < lines[j].LedgerRowID
		}
		return false
	})
	return lines, unmatched
}

// classify builds the empty line for a shift's aggregation key. Special
// classification takes precedence over regular: a QC or delivery-drop
// shift never keys on its crew member.
func classify(shift models.RawShiftRecord, ledgerRowID int64) models.AggregatedLine {
	line := models.AggregatedLine{LedgerRowID: ledgerRowID}
	switch {
	case shift.IsQualityControl:
		line.DisplayName = models.QCSpecialDisplayName
		line.HasSpecial = true
		line.SpecialType = models.SpecialShiftQC
	case shift.IsDeliveryDrop:
		line.DisplayName = models.DeliveryDropSpecialDisplayName
		line.HasSpecial = true
		line.SpecialType = models.SpecialShiftDeliveryDrop
	default:
		line.DisplayName = directory.CleanName(shift.CrewMember)
	}
	return line
}

// collectTags appends the shift's comma-separated tags, deduplicated,
// preserving first-seen order.
func collectTags(a *accumulator, tags string) {
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" || a.seen[tag] {
			continue
		}
		a.seen[tag] = true
		a.tags = append(a.tags, tag)
	}
}
