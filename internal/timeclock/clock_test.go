package timeclock

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testConverter() *Converter {
	return NewConverter(zerolog.Nop())
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"half hour", "08:30", 8.5},
		{"single digit hour", "8:30", 8.5},
		{"empty", "", 0},
		{"zero", "0", 0},
		{"zero clock", "00:00", 0},
		{"quarter hour", "0:15", 0.25},
		{"twenty minutes rounds", "1:20", 1.33},
		{"bare decimal", "7.25", 7.25},
		{"whitespace", "  2:00 ", 2},
		{"unparsable", "N/A", 0},
		{"garbage clock", "ab:cd", 0},
		{"negative", "-3", 0},
	}
	c := testConverter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.Convert(tt.in), 1e-9)
		})
	}
}

func TestConvertOvertimeScaling(t *testing.T) {
	c := testConverter()
	assert.InDelta(t, 3.0, c.ConvertOvertime("02:00"), 1e-9)
	assert.InDelta(t, 3.0, c.ConvertDoubleOvertime("01:30"), 1e-9)
	assert.InDelta(t, 1.5, c.ConvertOvertime("1:00"), 1e-9)
	assert.InDelta(t, 0.0, c.ConvertOvertime(""), 1e-9)
}

func TestHasQCTag(t *testing.T) {
	assert.True(t, HasQCTag("Drive, QC"))
	assert.True(t, HasQCTag("qc"))
	assert.True(t, HasQCTag("Prep,QC,Drive"))
	assert.False(t, HasQCTag("Quality"))
	assert.False(t, HasQCTag("QCX"))
	assert.False(t, HasQCTag(""))
}

func TestHasDeliveryDropTag(t *testing.T) {
	assert.True(t, HasDeliveryDropTag("Delivery Drop"))
	assert.True(t, HasDeliveryDropTag("delivery   drop"))
	assert.True(t, HasDeliveryDropTag("Drive, Delivery Drop, QC"))
	assert.False(t, HasDeliveryDropTag("Delivery"))
	assert.False(t, HasDeliveryDropTag("Drop"))
}
