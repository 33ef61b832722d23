package models

import "time"

// RawShiftRecord is one parsed line of a time-clock export, before any
// aggregation. The four *Raw fields carry the clock strings exactly as
// exported; the derived hour fields are decimal hours with overtime
// already scaled (1.5x regular overtime, 2x double overtime). Records
// are immutable once derived.
type RawShiftRecord struct {
	ID         int64  `json:"id" db:"id"`
	BatchID    string `json:"batch_id" db:"batch_id"`
	SourceRow  int    `json:"source_row" db:"source_row"`
	WorkDate   string `json:"work_date" db:"work_date"`
	JobLabel   string `json:"job_label" db:"job_label"`
	CrewMember string `json:"crew_member" db:"crew_member"`
	Tags       string `json:"tags" db:"tags"`
	Notes      string `json:"notes" db:"notes"`

	RegularRaw        string `json:"regular_raw" db:"regular_raw"`
	OvertimeRaw       string `json:"overtime_raw" db:"overtime_raw"`
	DoubleOvertimeRaw string `json:"double_overtime_raw" db:"double_overtime_raw"`
	PaidTimeOffRaw    string `json:"paid_time_off_raw" db:"paid_time_off_raw"`

	RegularHours        float64 `json:"regular_hours" db:"regular_hours"`
	OvertimeHours       float64 `json:"overtime_hours" db:"overtime_hours"`
	DoubleOvertimeHours float64 `json:"double_overtime_hours" db:"double_overtime_hours"`
	PaidTimeOffHours    float64 `json:"paid_time_off_hours" db:"paid_time_off_hours"`
	TotalHours          float64 `json:"total_hours" db:"total_hours"`

	IsQualityControl bool `json:"is_quality_control" db:"is_quality_control"`
	IsDeliveryDrop   bool `json:"is_delivery_drop" db:"is_delivery_drop"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsSpecial reports whether the shift falls under a fixed-duration
// policy bucket rather than regular per-person accumulation.
func (r RawShiftRecord) IsSpecial() bool {
	return r.IsQualityControl || r.IsDeliveryDrop
}
