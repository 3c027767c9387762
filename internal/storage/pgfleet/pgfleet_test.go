package pgfleet

import (
	"context"
	"testing"
	"time"

	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "tolltrace_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/tolltrace_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGFleet_CrossingsAndLedger(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	bookingID := uint64(1)
	crossTime := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &models.TollCrossing{
		BookingID:     &bookingID,
		VehicleNumber: "KA01AB1234",
		TollPlazaName: "Kherki Daula Toll Plaza",
		GeocodeRaw:    "28.4189, 76.9882",
		Latitude:      28.4189,
		Longitude:     76.9882,
		CrossingTime:  crossTime,
		VehicleType:   "VC10",
		Provider:      models.ProviderLive,
	}

	inserted, err := st.InsertCrossingIfNew(ctx, c)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NotZero(t, c.ID)

	// Повторная вставка того же identity key — не дубль.
	dup := *c
	dup.ID = 0
	inserted, err = st.InsertCrossingIfNew(ctx, &dup)
	require.NoError(t, err)
	require.False(t, inserted)

	byBooking, err := st.ListCrossingsByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, byBooking, 1)
	require.Equal(t, models.ProviderLive, byBooking[0].Provider)

	byVehicle, err := st.ListCrossingsByVehicle(ctx, "KA01AB1234", crossTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)

	byVehicle, err = st.ListCrossingsByVehicle(ctx, "KA01AB1234", crossTime.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, byVehicle, 0)

	// Ledger
	l := &models.ApiCallLog{
		VehicleNumber: "KA01AB1234",
		BookingID:     &bookingID,
		Provider:      models.ProviderLive,
		Status:        models.CallStatusSuccess,
		RecordCount:   1,
		Cost:          1.5,
		RequestedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.AppendCallLog(ctx, l))
	require.NotZero(t, l.ID)

	latest, err := st.LatestCallLogForBooking(ctx, bookingID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, models.CallStatusSuccess, latest.Status)
	require.InDelta(t, 1.5, latest.Cost, 0.001)

	latest, err = st.LatestCallLogForBooking(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, latest)

	n, err := st.CountCallLogsForBooking(ctx, bookingID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPGFleet_AssignmentsConsignmentsAndView(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	assignedAt := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	arrivedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	departedAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	_, err := st.db.Exec(ctx, `
INSERT INTO vehicle_assignments (booking_id, status, vehicle_type, owned_vehicle_number, driver_name, assigned_at)
VALUES (5, 'ACTIVE', 'OWNED', 'KA01AB1234', 'Ravi', $1)
`, assignedAt)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `
INSERT INTO warehouse_consignments (booking_id, warehouse_name, warehouse_city, arrival_date, departure_date)
VALUES (5, 'Bhiwandi WH', 'Thane', $1, $2)
`, arrivedAt, departedAt)
	require.NoError(t, err)

	a, err := st.ActiveAssignmentForBooking(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, "KA01AB1234", a.VehicleNumber())

	a, err = st.ActiveAssignmentForBooking(ctx, 6)
	require.NoError(t, err)
	require.Nil(t, a)

	asgs, err := st.ListAssignmentsByBooking(ctx, 5)
	require.NoError(t, err)
	require.Len(t, asgs, 1)

	cons, err := st.ListConsignmentsByBooking(ctx, 5)
	require.NoError(t, err)
	require.Len(t, cons, 1)
	require.Equal(t, "Bhiwandi WH", cons[0].WarehouseName)

	view, err := st.ListJourneyView(ctx, 5)
	require.NoError(t, err)
	require.Len(t, view, 3)
	// вью уже отсортирована по времени
	require.Equal(t, models.JourneyArrivedAtWarehouse, view[0].EventType)
	require.Equal(t, models.JourneyVehicleAssigned, view[1].EventType)
	require.Equal(t, models.JourneyDepartedFromWarehouse, view[2].EventType)
}
