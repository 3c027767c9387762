package messages

import "time"

// CrossingsObserved is published after an ingestion stores at least one new
// crossing. Consumers use it for cache invalidation and notifications.
type CrossingsObserved struct {
	BookingID     *uint64   `json:"booking_id,omitempty"`
	VehicleNumber string    `json:"vehicle_number"`
	Provider      string    `json:"provider"`
	NewRecords    int       `json:"new_records"`
	ObservedAt    time.Time `json:"observed_at"`
}
