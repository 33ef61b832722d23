package timeclock

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Overtime multipliers applied after the base clock-string conversion.
const (
	OvertimeMultiplier       = 1.5
	DoubleOvertimeMultiplier = 2.0
)

var (
	qcTagPattern           = regexp.MustCompile(`(?i)\bqc\b`)
	deliveryDropTagPattern = regexp.MustCompile(`(?i)\bdelivery\s+drop\b`)
)

// Converter turns time-clock strings into decimal hours. Conversion
// never fails: unparsable input logs a warning and counts as zero,
// keeping a single bad cell from sinking a whole export.
type Converter struct {
	logger zerolog.Logger
}

func NewConverter(logger zerolog.Logger) *Converter {
	return &Converter{logger: logger.With().Str("component", "timeclock").Logger()}
}

// Convert parses "H:MM"/"HH:MM" clock strings or bare decimals into
// non-negative decimal hours rounded to two places. Empty, "0" and
// "00:00" all convert to zero.
func (c *Converter) Convert(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" || value == "0" {
		return 0
	}

	if strings.Contains(value, ":") {
		parts := strings.SplitN(value, ":", 2)
		hours, herrH := strconv.Atoi(strings.TrimSpace(parts[0]))
		minutes, herrM := strconv.Atoi(strings.TrimSpace(parts[1]))
		if herrH != nil || herrM != nil || hours < 0 || minutes < 0 {
			c.logger.Warn().Str("value", raw).Msg("unparsable clock string, counting as zero")
			return 0
		}
		return Round2(float64(hours) + float64(minutes)/60)
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.logger.Warn().Str("value", raw).Msg("unparsable time value, counting as zero")
		return 0
	}
	if parsed < 0 {
		c.logger.Warn().Str("value", raw).Msg("negative time value, counting as zero")
		return 0
	}
	return Round2(parsed)
}

// ConvertOvertime converts and scales by the 1.5x overtime rate.
func (c *Converter) ConvertOvertime(raw string) float64 {
	return Round2(c.Convert(raw) * OvertimeMultiplier)
}

// ConvertDoubleOvertime converts and scales by the 2x double-overtime rate.
func (c *Converter) ConvertDoubleOvertime(raw string) float64 {
	return Round2(c.Convert(raw) * DoubleOvertimeMultiplier)
}

// Round2 rounds to two decimal places, the precision every hour field
// in the system carries.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HasQCTag reports whether the tag string contains the whole word "QC",
// case-insensitive. "Quality" alone does not match.
func HasQCTag(tags string) bool {
	return qcTagPattern.MatchString(tags)
}

// HasDeliveryDropTag reports whether the tag string contains the phrase
// "Delivery Drop", case-insensitive and tolerant of extra whitespace.
func HasDeliveryDropTag(tags string) bool {
	return deliveryDropTagPattern.MatchString(tags)
}
