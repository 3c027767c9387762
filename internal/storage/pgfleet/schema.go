package pgfleet

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS toll_crossings (
  id BIGSERIAL PRIMARY KEY,
  booking_id BIGINT NULL,
  assignment_id BIGINT NULL,
  vehicle_number TEXT NOT NULL,
  toll_plaza_name TEXT NOT NULL,
  geocode_raw TEXT NOT NULL DEFAULT '',
  latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
  longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
  crossing_time TIMESTAMPTZ NOT NULL,
  vehicle_type TEXT NOT NULL DEFAULT '',
  provider TEXT NOT NULL,
  payload JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		// Identity key: repeated polling must not duplicate crossings.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_toll_crossings_identity ON toll_crossings(vehicle_number, toll_plaza_name, crossing_time)`,
		`CREATE INDEX IF NOT EXISTS idx_toll_crossings_booking_time ON toll_crossings(booking_id, crossing_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_toll_crossings_vehicle_time ON toll_crossings(vehicle_number, crossing_time)`,
		`
CREATE TABLE IF NOT EXISTS api_call_logs (
  id BIGSERIAL PRIMARY KEY,
  vehicle_number TEXT NOT NULL,
  booking_id BIGINT NULL,
  provider TEXT NOT NULL,
  status TEXT NOT NULL,
  record_count INT NOT NULL DEFAULT 0,
  cost NUMERIC(10,2) NOT NULL DEFAULT 0,
  requested_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_api_call_logs_booking_requested ON api_call_logs(booking_id, requested_at DESC)`,
		// vehicle_assignments и warehouse_consignments принадлежат booking/warehouse
		// сервисам; здесь создаются только для локального запуска и тестов,
		// сервис их никогда не пишет.
		`
CREATE TABLE IF NOT EXISTS vehicle_assignments (
  id BIGSERIAL PRIMARY KEY,
  booking_id BIGINT NOT NULL,
  status TEXT NOT NULL,
  vehicle_type TEXT NOT NULL DEFAULT '',
  owned_vehicle_number TEXT NULL,
  hired_vehicle_number TEXT NULL,
  driver_name TEXT NULL,
  driver_phone TEXT NULL,
  assigned_at TIMESTAMPTZ NULL,
  released_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_assignments_booking ON vehicle_assignments(booking_id)`,
		`
CREATE TABLE IF NOT EXISTS warehouse_consignments (
  id BIGSERIAL PRIMARY KEY,
  booking_id BIGINT NOT NULL,
  warehouse_name TEXT NOT NULL,
  warehouse_city TEXT NULL,
  arrival_date TIMESTAMPTZ NULL,
  departure_date TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_warehouse_consignments_booking ON warehouse_consignments(booking_id)`,
		// Precomputed journey view: the aggregator prefers this and falls back
		// to a client-side merge when the deployment does not have it.
		`
CREATE OR REPLACE VIEW booking_journey_view AS
SELECT booking_id,
       'VEHICLE_ASSIGNED' AS event_type,
       assigned_at AS event_time,
       COALESCE(owned_vehicle_number, hired_vehicle_number) AS vehicle_number,
       driver_name,
       NULL::text AS warehouse_name
FROM vehicle_assignments WHERE assigned_at IS NOT NULL
UNION ALL
SELECT booking_id, 'VEHICLE_RELEASED', released_at,
       COALESCE(owned_vehicle_number, hired_vehicle_number), driver_name, NULL::text
FROM vehicle_assignments WHERE released_at IS NOT NULL
UNION ALL
SELECT booking_id, 'ARRIVED_AT_WAREHOUSE', arrival_date, NULL::text, NULL::text, warehouse_name
FROM warehouse_consignments WHERE arrival_date IS NOT NULL
UNION ALL
SELECT booking_id, 'DEPARTED_FROM_WAREHOUSE', departure_date, NULL::text, NULL::text, warehouse_name
FROM warehouse_consignments WHERE departure_date IS NOT NULL
`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
