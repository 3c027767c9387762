package synthetic

import (
	"time"

	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
)

// Synthetic fallback dataset, used when the provider is unreachable so the UI
// always has something to render. The same plaza names are also the fixture
// signature recognized by the mock classifier.

type Plaza struct {
	Name    string
	Geocode string
}

var Plazas = [3]Plaza{
	{Name: "Kherki Daula Toll Plaza", Geocode: "28.4189, 76.9882"},
	{Name: "Panipat Toll Plaza", Geocode: "29.2974, 76.9856"},
	{Name: "Dasna Toll Plaza", Geocode: "28.7520, 77.5380"},
}

var offsets = [3]time.Duration{0, -2 * time.Hour, -5 * time.Hour}

const vehicleType = "VC10"

// Crossings возвращает ровно три записи: "сейчас", "-2ч", "-5ч".
func Crossings(now time.Time) []telemetry.RawCrossing {
	out := make([]telemetry.RawCrossing, 0, len(Plazas))
	for i, p := range Plazas {
		out = append(out, telemetry.RawCrossing{
			ReaderReadTime:   telemetry.FormatReaderReadTime(now.Add(offsets[i])),
			TollPlazaName:    p.Name,
			TollPlazaGeocode: p.Geocode,
			VehicleType:      vehicleType,
		})
	}
	return out
}
