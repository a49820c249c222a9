package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/entity"
)

func TestFormatOrderNumber(t *testing.T) {
	june := entity.Period{Month: time.June, Year: 2024}

	assert.Equal(t, "0008/6/2024", entity.FormatOrderNumber(8, june))
	assert.Equal(t, "0001/6/2024", entity.FormatOrderNumber(1, june))
	assert.Equal(t, "1042/12/2025", entity.FormatOrderNumber(1042, entity.Period{Month: time.December, Year: 2025}))
	// Prefixes beyond four digits widen instead of truncating.
	assert.Equal(t, "12345/6/2024", entity.FormatOrderNumber(12345, june))
}

func TestParseOrderNumber(t *testing.T) {
	seq, period, ok := entity.ParseOrderNumber("0008/6/2024")
	require.True(t, ok)
	assert.Equal(t, int64(8), seq)
	assert.Equal(t, entity.Period{Month: time.June, Year: 2024}, period)

	seq, period, ok = entity.ParseOrderNumber("12345/11/2023")
	require.True(t, ok)
	assert.Equal(t, int64(12345), seq)
	assert.Equal(t, entity.Period{Month: time.November, Year: 2023}, period)
}

func TestParseOrderNumberRejectsMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"ORDER-1000",
		"12/6/2024",      // prefix shorter than four digits
		"0008/13/2024",   // month out of range
		"0008/0/2024",    // month out of range
		"0008/6/24",      // two-digit year
		"0008/6/2024/99", // trailing junk
	} {
		_, _, ok := entity.ParseOrderNumber(token)
		assert.False(t, ok, "token %q should not parse", token)
	}
}

func TestPeriodOf(t *testing.T) {
	period := entity.PeriodOf(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, entity.Period{Month: time.June, Year: 2024}, period)
	assert.Equal(t, "6/2024", period.String())
	assert.False(t, period.IsZero())
	assert.True(t, entity.Period{}.IsZero())
}
