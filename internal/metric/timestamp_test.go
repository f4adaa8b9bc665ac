package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp_WithOffset(t *testing.T) {
	offset := 300 // UTC-5: local time lags UTC by 300 minutes
	got, err := NormalizeTimestamp("2025-03-10T08:30", &offset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC), got.UTC())
}

func TestNormalizeTimestamp_RoundTrip(t *testing.T) {
	offset := 300
	instant, err := NormalizeTimestamp("2025-03-10T08:30", &offset)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10T08:30", FormatCaptured(instant, offset))
}

func TestNormalizeTimestamp_NegativeOffset(t *testing.T) {
	offset := -120 // UTC+2: local time is ahead of UTC
	got, err := NormalizeTimestamp("2025-06-01T10:00", &offset)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), got.UTC())
}

func TestNormalizeTimestamp_NoOffsetUsesServerLocal(t *testing.T) {
	got, err := NormalizeTimestamp("2025-03-10T08:30", nil)
	require.NoError(t, err)
	want := time.Date(2025, 3, 10, 8, 30, 0, 0, time.Local)
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)
}

func TestNormalizeTimestamp_Malformed(t *testing.T) {
	offset := 0
	for _, raw := range []string{
		"",
		"2025-03-10",
		"2025-03-10 08:30",
		"2025-03-10T08:30:00",
		"not-a-date",
		"2025-13-40T99:99",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizeTimestamp(raw, &offset)
			require.Error(t, err)
			assert.Equal(t, CodeMalformedTimestamp, CodeOf(err))
		})
	}
}
