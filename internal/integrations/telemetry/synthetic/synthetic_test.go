package synthetic

import (
	"testing"
	"time"

	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
	"github.com/stretchr/testify/require"
)

func TestCrossings_ThreeRecordsWithOffsets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := Crossings(now)
	require.Len(t, records, 3)

	wantTimes := []time.Time{now, now.Add(-2 * time.Hour), now.Add(-5 * time.Hour)}
	for i, r := range records {
		require.Equal(t, Plazas[i].Name, r.TollPlazaName)
		require.Equal(t, Plazas[i].Geocode, r.TollPlazaGeocode)

		parsed, err := telemetry.ParseReaderReadTime(r.ReaderReadTime)
		require.NoError(t, err)
		require.WithinDuration(t, wantTimes[i], parsed, time.Second)
	}
}
