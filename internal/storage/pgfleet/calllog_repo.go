package pgfleet

import (
	"context"

	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) AppendCallLog(ctx context.Context, l *models.ApiCallLog) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO api_call_logs (
  vehicle_number, booking_id, provider, status, record_count, cost, requested_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`, l.VehicleNumber, l.BookingID, l.Provider, l.Status, l.RecordCount, l.Cost, l.RequestedAt.UTC()).Scan(&l.ID)
	return errors.Wrap(err, "insert call log")
}

// LatestCallLogForBooking возвращает последнюю запись журнала вызовов для брони
// (nil, если вызовов ещё не было) — это и есть "часы" для cooldown.
func (s *Storage) LatestCallLogForBooking(ctx context.Context, bookingID uint64) (*models.ApiCallLog, error) {
	var l models.ApiCallLog
	err := s.db.QueryRow(ctx, `
SELECT id, vehicle_number, booking_id, provider, status, record_count, cost, requested_at
FROM api_call_logs
WHERE booking_id = $1
ORDER BY requested_at DESC
LIMIT 1
`, bookingID).Scan(
		&l.ID, &l.VehicleNumber, &l.BookingID, &l.Provider, &l.Status,
		&l.RecordCount, &l.Cost, &l.RequestedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select latest call log")
	}
	return &l, nil
}

func (s *Storage) CountCallLogsForBooking(ctx context.Context, bookingID uint64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM api_call_logs WHERE booking_id = $1`, bookingID).Scan(&n)
	return n, errors.Wrap(err, "count call logs")
}
