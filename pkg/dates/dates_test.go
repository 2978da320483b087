package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeepsCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2025, 6, 5, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysBetween(start, time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysBetween(start, start))
	assert.Equal(t, -1, DaysBetween(start, start.AddDate(0, 0, -1)))
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-06-08")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-08", Format(d))

	_, err = Parse("06/08/2025")
	require.Error(t, err)
	assert.Nil(t, DayPtr(nil))
}
