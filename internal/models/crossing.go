package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Provider tags. Only PROVIDER_LIVE calls are billed.
const (
	ProviderLive      = "TOLLPING_LIVE"
	ProviderSynthetic = "SYNTHETIC_FALLBACK"
	ProviderMock      = "MOCK_DETECTED"
)

const (
	CallStatusSuccess = "SUCCESS"
	CallStatusNoData  = "NO_DATA"
	CallStatusFailure = "FAILURE"
)

var (
	ErrNoActiveVehicle  = errors.New("booking has no active vehicle assignment")
	ErrNoCrossingsFound = errors.New("no crossings found")
)

// TollCrossing — одна зафиксированная точка прохождения платного пункта.
// Кортеж (vehicle_number, toll_plaza_name, crossing_time) уникален.
type TollCrossing struct {
	ID            uint64
	BookingID     *uint64
	AssignmentID  *uint64
	VehicleNumber string
	TollPlazaName string
	GeocodeRaw    string
	Latitude      float64
	Longitude     float64
	CrossingTime  time.Time
	VehicleType   string
	Provider      string
	PayloadJSON   *string
	CreatedAt     time.Time
}

// ApiCallLog is written once per provider call attempt (including fallbacks)
// and doubles as the rate-limit clock for a booking.
type ApiCallLog struct {
	ID            uint64
	VehicleNumber string
	BookingID     *uint64
	Provider      string
	Status        string
	RecordCount   int
	Cost          float64
	RequestedAt   time.Time
}

// NormalizeVehicleNumber makes vehicle numbers comparable across sources:
// registrations arrive as "ka01 ab 1234", "KA01AB1234" etc.
func NormalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
