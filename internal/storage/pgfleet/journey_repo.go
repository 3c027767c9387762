package pgfleet

import (
	"context"
	"time"

	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Assignment/consignment tables are externally owned; only reads live here.

func (s *Storage) ActiveAssignmentForBooking(ctx context.Context, bookingID uint64) (*models.VehicleAssignment, error) {
	var a models.VehicleAssignment
	err := s.db.QueryRow(ctx, `
SELECT id, booking_id, status, vehicle_type,
       owned_vehicle_number, hired_vehicle_number,
       driver_name, driver_phone, assigned_at, released_at
FROM vehicle_assignments
WHERE booking_id = $1
  AND status = 'ACTIVE'
ORDER BY assigned_at DESC NULLS LAST
LIMIT 1
`, bookingID).Scan(
		&a.ID, &a.BookingID, &a.Status, &a.VehicleType,
		&a.OwnedVehicleNumber, &a.HiredVehicleNumber,
		&a.DriverName, &a.DriverPhone, &a.AssignedAt, &a.ReleasedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select active assignment")
	}
	return &a, nil
}

func (s *Storage) ListAssignmentsByBooking(ctx context.Context, bookingID uint64) ([]*models.VehicleAssignment, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, booking_id, status, vehicle_type,
       owned_vehicle_number, hired_vehicle_number,
       driver_name, driver_phone, assigned_at, released_at
FROM vehicle_assignments
WHERE booking_id = $1
ORDER BY id
`, bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "select assignments")
	}
	defer rows.Close()

	var out []*models.VehicleAssignment
	for rows.Next() {
		var a models.VehicleAssignment
		if err := rows.Scan(
			&a.ID, &a.BookingID, &a.Status, &a.VehicleType,
			&a.OwnedVehicleNumber, &a.HiredVehicleNumber,
			&a.DriverName, &a.DriverPhone, &a.AssignedAt, &a.ReleasedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan assignment")
		}
		out = append(out, &a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListConsignmentsByBooking(ctx context.Context, bookingID uint64) ([]*models.WarehouseConsignment, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, booking_id, warehouse_name, warehouse_city, arrival_date, departure_date
FROM warehouse_consignments
WHERE booking_id = $1
ORDER BY id
`, bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "select consignments")
	}
	defer rows.Close()

	var out []*models.WarehouseConsignment
	for rows.Next() {
		var c models.WarehouseConsignment
		if err := rows.Scan(
			&c.ID, &c.BookingID, &c.WarehouseName, &c.WarehouseCity,
			&c.ArrivalDate, &c.DepartureDate,
		); err != nil {
			return nil, errors.Wrap(err, "scan consignment")
		}
		out = append(out, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// JourneyViewRow is one row of the precomputed booking_journey_view.
type JourneyViewRow struct {
	EventType     string
	EventTime     time.Time
	VehicleNumber *string
	DriverName    *string
	WarehouseName *string
}

func (s *Storage) ListJourneyView(ctx context.Context, bookingID uint64) ([]JourneyViewRow, error) {
	rows, err := s.db.Query(ctx, `
SELECT event_type, event_time, vehicle_number, driver_name, warehouse_name
FROM booking_journey_view
WHERE booking_id = $1
ORDER BY event_time ASC
`, bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "select journey view")
	}
	defer rows.Close()

	var out []JourneyViewRow
	for rows.Next() {
		var r JourneyViewRow
		if err := rows.Scan(&r.EventType, &r.EventTime, &r.VehicleNumber, &r.DriverName, &r.WarehouseName); err != nil {
			return nil, errors.Wrap(err, "scan journey view row")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
