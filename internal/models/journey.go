package models

import "time"

const (
	JourneyVehicleAssigned       = "VEHICLE_ASSIGNED"
	JourneyVehicleReleased       = "VEHICLE_RELEASED"
	JourneyArrivedAtWarehouse    = "ARRIVED_AT_WAREHOUSE"
	JourneyDepartedFromWarehouse = "DEPARTED_FROM_WAREHOUSE"
)

// JourneyEvent is a derived projection for timeline display; never persisted.
type JourneyEvent struct {
	Type          string    `json:"type"`
	EventTime     time.Time `json:"eventTime"`
	Description   string    `json:"description"`
	VehicleNumber *string   `json:"vehicleNumber,omitempty"`
	DriverName    *string   `json:"driverName,omitempty"`
	WarehouseName *string   `json:"warehouseName,omitempty"`
}

// VehicleAssignment is owned by the booking service; this service only reads it.
// Either OwnedVehicleNumber or HiredVehicleNumber is set depending on VehicleType.
type VehicleAssignment struct {
	ID                 uint64
	BookingID          uint64
	Status             string
	VehicleType        string
	OwnedVehicleNumber *string
	HiredVehicleNumber *string
	DriverName         *string
	DriverPhone        *string
	AssignedAt         *time.Time
	ReleasedAt         *time.Time
}

func (a *VehicleAssignment) VehicleNumber() string {
	if a.OwnedVehicleNumber != nil && *a.OwnedVehicleNumber != "" {
		return *a.OwnedVehicleNumber
	}
	if a.HiredVehicleNumber != nil {
		return *a.HiredVehicleNumber
	}
	return ""
}

// WarehouseConsignment is owned by the warehouse service; read-only here.
type WarehouseConsignment struct {
	ID            uint64
	BookingID     uint64
	WarehouseName string
	WarehouseCity *string
	ArrivalDate   *time.Time
	DepartureDate *time.Time
}
