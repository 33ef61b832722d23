// Package ingest parses uploaded time-clock exports into normalized
// raw shift records. Exports arrive as xlsx workbooks whose header row
// position and column order vary by time-clock vendor, so all of the
// header-guessing heuristics live here and downstream code only ever
// sees typed records.
package ingest

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/timeclock"
)

// ErrEmptyExport signals that no usable rows remained after filtering.
// It is a hard stop for the upload, surfaced to the operator.
var ErrEmptyExport = errors.New("time-clock export contains no usable rows")

// headerScanLimit caps how many leading rows are probed for the header.
const headerScanLimit = 5

type field int

const (
	fieldDate field = iota
	fieldJob
	fieldCrewMember
	fieldTags
	fieldRegular
	fieldOvertime
	fieldDoubleOvertime
	fieldPaidTimeOff
	fieldNotes
)

// headerAliases maps exact header text (lowercased, trimmed) to fields.
// Unmapped headers are ignored; fields with no header stay empty.
var headerAliases = map[string]field{
	"date":            fieldDate,
	"day":             fieldDate,
	"job":             fieldJob,
	"job name":        fieldJob,
	"project":         fieldJob,
	"employee":        fieldCrewMember,
	"employee name":   fieldCrewMember,
	"name":            fieldCrewMember,
	"crew member":     fieldCrewMember,
	"tag":             fieldTags,
	"tags":            fieldTags,
	"reg":             fieldRegular,
	"regular":         fieldRegular,
	"regular hours":   fieldRegular,
	"ot":              fieldOvertime,
	"overtime":        fieldOvertime,
	"2ot":             fieldDoubleOvertime,
	"double ot":       fieldDoubleOvertime,
	"double overtime": fieldDoubleOvertime,
	"pto":             fieldPaidTimeOff,
	"paid time off":   fieldPaidTimeOff,
	"note":            fieldNotes,
	"notes":           fieldNotes,
}

// Parser reads a tabular export buffer into RawShiftRecords.
type Parser struct {
	conv   *timeclock.Converter
	logger zerolog.Logger
}

func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{
		conv:   timeclock.NewConverter(logger),
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// Parse reads the workbook's first sheet and returns its shift records
// in source order. Every record carries its 1-based sheet row for
// traceability back to the raw export. Returns ErrEmptyExport when no
// valid rows remain after filtering.
func (p *Parser) Parse(r io.Reader) ([]models.RawShiftRecord, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open export workbook")
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "read export sheet")
	}
	if len(rows) == 0 {
		return nil, ErrEmptyExport
	}

	headerIdx := findHeaderRow(rows)
	columns := mapColumns(rows[headerIdx])
	jobHeader := normalizeHeader(cell(rows[headerIdx], col(columns, fieldJob)))

	var records []models.RawShiftRecord
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		jobLabel := strings.TrimSpace(cell(row, col(columns, fieldJob)))
		if jobLabel == "" || normalizeHeader(jobLabel) == jobHeader {
			continue
		}

		rec := models.RawShiftRecord{
			SourceRow:         i + 1,
			WorkDate:          strings.TrimSpace(cell(row, col(columns, fieldDate))),
			JobLabel:          jobLabel,
			CrewMember:        strings.TrimSpace(cell(row, col(columns, fieldCrewMember))),
			Tags:              strings.TrimSpace(cell(row, col(columns, fieldTags))),
			Notes:             strings.TrimSpace(cell(row, col(columns, fieldNotes))),
			RegularRaw:        strings.TrimSpace(cell(row, col(columns, fieldRegular))),
			OvertimeRaw:       strings.TrimSpace(cell(row, col(columns, fieldOvertime))),
			DoubleOvertimeRaw: strings.TrimSpace(cell(row, col(columns, fieldDoubleOvertime))),
			PaidTimeOffRaw:    strings.TrimSpace(cell(row, col(columns, fieldPaidTimeOff))),
		}
		p.derive(&rec)
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrEmptyExport
	}

	p.logger.Info().Int("rows", len(records)).Int("header_row", headerIdx+1).Msg("parsed time-clock export")
	return records, nil
}

// derive fills the decimal-hour fields and the tag classification.
// Paid time off is tracked but excluded from worked total hours.
func (p *Parser) derive(rec *models.RawShiftRecord) {
	rec.RegularHours = p.conv.Convert(rec.RegularRaw)
	rec.OvertimeHours = p.conv.ConvertOvertime(rec.OvertimeRaw)
	rec.DoubleOvertimeHours = p.conv.ConvertDoubleOvertime(rec.DoubleOvertimeRaw)
	rec.PaidTimeOffHours = p.conv.Convert(rec.PaidTimeOffRaw)
	rec.TotalHours = timeclock.Round2(rec.RegularHours + rec.OvertimeHours + rec.DoubleOvertimeHours)
	rec.IsQualityControl = timeclock.HasQCTag(rec.Tags)
	rec.IsDeliveryDrop = timeclock.HasDeliveryDropTag(rec.Tags)
}

// findHeaderRow scans the first few rows for a cell containing "date"
// or "day" and falls back to row index 1 if none is found.
func findHeaderRow(rows [][]string) int {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		for _, c := range rows[i] {
			lowered := strings.ToLower(c)
			if strings.Contains(lowered, "date") || strings.Contains(lowered, "day") {
				return i
			}
		}
	}
	if len(rows) > 1 {
		return 1
	}
	return 0
}

func mapColumns(header []string) map[field]int {
	columns := make(map[field]int)
	for idx, c := range header {
		if f, ok := headerAliases[normalizeHeader(c)]; ok {
			if _, taken := columns[f]; !taken {
				columns[f] = idx
			}
		}
	}
	return columns
}

// col returns the mapped column index for a field, or -1 when the
// export carries no such header.
func col(columns map[field]int, f field) int {
	if idx, ok := columns[f]; ok {
		return idx
	}
	return -1
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// cell returns the value at idx or an empty string for ragged rows and
// unmapped fields.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
