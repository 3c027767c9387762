package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseReaderReadTime(t *testing.T) {
	got, err := ParseReaderReadTime("02/03/2025 10:15:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 2, 10, 15, 0, 0, time.UTC), got)

	got, err = ParseReaderReadTime("2025-03-02 10:15:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 2, 10, 15, 0, 0, time.UTC), got)

	_, err = ParseReaderReadTime("yesterday")
	require.Error(t, err)
}

func TestFormatReaderReadTime_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 12, 31, 23, 59, 58, 0, time.UTC)
	got, err := ParseReaderReadTime(FormatReaderReadTime(ts))
	require.NoError(t, err)
	require.Equal(t, ts, got)
}
