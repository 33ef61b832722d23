package models

// Display names for the fixed-duration special-shift buckets. Special
// shifts roll up under these synthetic names regardless of crew member.
const (
	QCSpecialDisplayName           = "QC Special Shift"
	DeliveryDropSpecialDisplayName = "Job Delivery Special Shift"
)

// SpecialShiftType discriminates the two policy buckets on persisted
// special shifts.
type SpecialShiftType string

const (
	SpecialShiftQC           SpecialShiftType = "quality_control"
	SpecialShiftDeliveryDrop SpecialShiftType = "delivery_drop"
)

// DisplayName returns the synthetic rollup name for the bucket.
func (t SpecialShiftType) DisplayName() string {
	if t == SpecialShiftDeliveryDrop {
		return DeliveryDropSpecialDisplayName
	}
	return QCSpecialDisplayName
}

// AggregatedLine is one (job, display-name) rollup computed on demand
// from confirmed matches and raw shifts. DisplayName is either a real
// crew-member name or one of the special bucket names. Special lines
// always carry shift_count * fixed-hours totals, independent of the
// underlying clocked time.
type AggregatedLine struct {
	LedgerRowID         int64            `json:"ledger_row_id"`
	DisplayName         string           `json:"display_name"`
	ShiftCount          int              `json:"shift_count"`
	RegularHours        float64          `json:"regular_hours"`
	OvertimeHours       float64          `json:"overtime_hours"`
	DoubleOvertimeHours float64          `json:"double_overtime_hours"`
	TotalHours          float64          `json:"total_hours"`
	Tags                string           `json:"tags"`
	HasSpecial          bool             `json:"has_special"`
	SpecialType         SpecialShiftType `json:"special_type,omitempty"`
}
