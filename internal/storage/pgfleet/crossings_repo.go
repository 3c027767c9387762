package pgfleet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// InsertCrossingIfNew inserts a crossing unless the identity key
// (vehicle_number, toll_plaza_name, crossing_time) is already present.
// The unique index makes this atomic, so concurrent polls cannot produce
// duplicate rows.
func (s *Storage) InsertCrossingIfNew(ctx context.Context, c *models.TollCrossing) (bool, error) {
	var payload any
	if c.PayloadJSON != nil && *c.PayloadJSON != "" {
		var m any
		if json.Unmarshal([]byte(*c.PayloadJSON), &m) == nil {
			payload = m
		}
	}

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO toll_crossings (
  booking_id, assignment_id, vehicle_number, toll_plaza_name,
  geocode_raw, latitude, longitude, crossing_time, vehicle_type,
  provider, payload, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now())
ON CONFLICT (vehicle_number, toll_plaza_name, crossing_time) DO NOTHING
RETURNING id
`, c.BookingID, c.AssignmentID, c.VehicleNumber, c.TollPlazaName,
		c.GeocodeRaw, c.Latitude, c.Longitude, c.CrossingTime.UTC(), c.VehicleType,
		c.Provider, payload).Scan(&id)
	if err == pgx.ErrNoRows {
		// конфликт по identity key — запись уже есть
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert crossing")
	}
	c.ID = id
	return true, nil
}

func (s *Storage) ListCrossingsByBooking(ctx context.Context, bookingID uint64) ([]*models.TollCrossing, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, booking_id, assignment_id, vehicle_number, toll_plaza_name,
  geocode_raw, latitude, longitude, crossing_time, vehicle_type,
  provider, payload, created_at
FROM toll_crossings
WHERE booking_id = $1
ORDER BY crossing_time DESC
`, bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "select crossings by booking")
	}
	defer rows.Close()
	return scanCrossings(rows)
}

func (s *Storage) ListCrossingsByVehicle(ctx context.Context, vehicleNumber string, since time.Time) ([]*models.TollCrossing, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, booking_id, assignment_id, vehicle_number, toll_plaza_name,
  geocode_raw, latitude, longitude, crossing_time, vehicle_type,
  provider, payload, created_at
FROM toll_crossings
WHERE vehicle_number = $1
  AND crossing_time >= $2
ORDER BY crossing_time ASC
`, vehicleNumber, since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "select crossings by vehicle")
	}
	defer rows.Close()
	return scanCrossings(rows)
}

type crossingRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCrossings(rows crossingRows) ([]*models.TollCrossing, error) {
	var out []*models.TollCrossing
	for rows.Next() {
		var c models.TollCrossing
		var payload any
		if err := rows.Scan(
			&c.ID, &c.BookingID, &c.AssignmentID, &c.VehicleNumber, &c.TollPlazaName,
			&c.GeocodeRaw, &c.Latitude, &c.Longitude, &c.CrossingTime, &c.VehicleType,
			&c.Provider, &payload, &c.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan crossing")
		}
		if payload != nil {
			b, _ := json.Marshal(payload)
			s := string(b)
			c.PayloadJSON = &s
		}
		out = append(out, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
