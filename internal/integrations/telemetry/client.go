package telemetry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RawCrossing is one element of the provider's JSON array response, kept as-is
// until it passes classification.
type RawCrossing struct {
	ReaderReadTime   string `json:"readerReadTime"`
	TollPlazaName    string `json:"tollPlazaName"`
	TollPlazaGeocode string `json:"tollPlazaGeocode"`
	VehicleType      string `json:"vehicleType"`
}

type Client interface {
	GetCrossings(ctx context.Context, vehicleNumber string) ([]RawCrossing, error)
}

// Провайдер отдаёт время в двух форматах в зависимости от деплоймента.
var readerReadTimeLayouts = []string{
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
}

func ParseReaderReadTime(s string) (time.Time, error) {
	for _, layout := range readerReadTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported readerReadTime format: %q", s)
}

func FormatReaderReadTime(t time.Time) string {
	return t.UTC().Format(readerReadTimeLayouts[0])
}
