package vehiclesearch

import (
	"context"
	"testing"
	"time"

	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	stored   []*models.TollCrossing
	listErr  error
	logs     []*models.ApiCallLog
	logErr   error
	listedVN string
}

func (f *fakeRepo) ListCrossingsByVehicle(ctx context.Context, vehicleNumber string, since time.Time) ([]*models.TollCrossing, error) {
	f.listedVN = vehicleNumber
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.TollCrossing
	for _, c := range f.stored {
		if !c.CrossingTime.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendCallLog(ctx context.Context, l *models.ApiCallLog) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append(f.logs, l)
	return nil
}

type fakeClient struct {
	records []telemetry.RawCrossing
	err     error
	calls   int
}

func (f *fakeClient) GetCrossings(ctx context.Context, vehicleNumber string) ([]telemetry.RawCrossing, error) {
	f.calls++
	return f.records, f.err
}

// fakeIngestor appends to the repo store, emulating the tracker pipeline.
type fakeIngestor struct {
	repo     *fakeRepo
	genuine  bool
	provider string
	ingested []telemetry.RawCrossing
}

func (f *fakeIngestor) Classify(records []telemetry.RawCrossing) ([]telemetry.RawCrossing, bool) {
	return records, f.genuine
}

func (f *fakeIngestor) IngestBatch(ctx context.Context, bookingID, assignmentID *uint64, vehicleNumber string, records []telemetry.RawCrossing, provider string) int {
	f.provider = provider
	f.ingested = records
	for _, r := range records {
		t, err := telemetry.ParseReaderReadTime(r.ReaderReadTime)
		if err != nil {
			continue
		}
		f.repo.stored = append(f.repo.stored, &models.TollCrossing{
			VehicleNumber: vehicleNumber,
			TollPlazaName: r.TollPlazaName,
			CrossingTime:  t,
			Provider:      provider,
		})
	}
	return len(records)
}

func TestSearch_Validate(t *testing.T) {
	s := New(&fakeRepo{}, &fakeClient{}, &fakeIngestor{genuine: true})

	_, err := s.Search(context.Background(), "", ModeCurrent)
	require.Error(t, err)

	_, err = s.Search(context.Background(), "KA01AB1234", "latest")
	require.Error(t, err)
}

func TestSearch_StoreHitSkipsLiveCall(t *testing.T) {
	now := time.Now().UTC()
	r := &fakeRepo{stored: []*models.TollCrossing{
		{ID: 1, CrossingTime: now.Add(-2 * time.Hour)},
		{ID: 2, CrossingTime: now.Add(-time.Hour)},
	}}
	c := &fakeClient{}
	s := New(r, c, &fakeIngestor{genuine: true})

	out, err := s.Search(context.Background(), "ka01 ab 1234", ModeCurrent)
	require.NoError(t, err)
	// store data is historical: current mode still returns the full set
	require.Len(t, out, 2)
	require.Equal(t, 0, c.calls)
	require.Equal(t, "KA01AB1234", r.listedVN)
}

func TestSearch_LiveCallShapedByMode(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []telemetry.RawCrossing{}
	for i := 4; i >= 0; i-- {
		records = append(records, telemetry.RawCrossing{
			ReaderReadTime: telemetry.FormatReaderReadTime(now.Add(-time.Duration(i) * time.Hour)),
			TollPlazaName:  "Plaza",
			VehicleType:    "VC10",
		})
	}

	mk := func() (*Service, *fakeRepo) {
		r := &fakeRepo{}
		ing := &fakeIngestor{repo: r, genuine: true}
		return New(r, &fakeClient{records: records}, ing).WithLookback(30 * 24 * time.Hour), r
	}

	s, _ := mk()
	out, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.NoError(t, err)
	require.Len(t, out, 5)

	s, _ = mk()
	out, err = s.Search(context.Background(), "KA01AB1234", ModeCurrent)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, now, out[0].CrossingTime)
}

func TestSearch_LiveRecordsOlderThanLookbackStillReturned(t *testing.T) {
	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	r := &fakeRepo{}
	ing := &fakeIngestor{repo: r, genuine: true}
	c := &fakeClient{records: []telemetry.RawCrossing{{
		ReaderReadTime: telemetry.FormatReaderReadTime(old),
		TollPlazaName:  "Plaza",
		VehicleType:    "VC10",
	}}}
	// default 7-day lookback: the record predates the store-first window
	s := New(r, c, ing)

	out, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.NoError(t, err)
	require.Len(t, r.stored, 1)
	require.Len(t, out, 1)
	require.Equal(t, old.Truncate(time.Second), out[0].CrossingTime)

	out, err = s.Search(context.Background(), "KA01AB1234", ModeCurrent)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestSearch_LiveFailureIsHardFailureWithLedgerEntry(t *testing.T) {
	r := &fakeRepo{}
	c := &fakeClient{err: errors.New("timeout")}
	s := New(r, c, &fakeIngestor{repo: r, genuine: true})

	_, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.Error(t, err)
	require.NotErrorIs(t, err, models.ErrNoCrossingsFound)

	require.Len(t, r.logs, 1)
	require.Equal(t, models.CallStatusFailure, r.logs[0].Status)
	require.Zero(t, r.logs[0].Cost)
	require.Nil(t, r.logs[0].BookingID)
}

func TestSearch_LedgerFailureDoesNotMaskProviderError(t *testing.T) {
	r := &fakeRepo{logErr: errors.New("pg down")}
	c := &fakeClient{err: errors.New("timeout")}
	s := New(r, c, &fakeIngestor{repo: r, genuine: true})

	_, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
	require.NotContains(t, err.Error(), "pg down")
}

func TestSearch_NothingAnywhereIsNoData(t *testing.T) {
	r := &fakeRepo{}
	c := &fakeClient{records: nil}
	s := New(r, c, &fakeIngestor{repo: r, genuine: true})

	_, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.ErrorIs(t, err, models.ErrNoCrossingsFound)
}

func TestSearch_MockBatchStillIngestedAsMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 17, 0, time.UTC)
	r := &fakeRepo{}
	ing := &fakeIngestor{repo: r, genuine: false}
	c := &fakeClient{records: []telemetry.RawCrossing{
		{ReaderReadTime: telemetry.FormatReaderReadTime(now), TollPlazaName: "Plaza"},
	}}
	s := New(r, c, ing)

	out, err := s.Search(context.Background(), "KA01AB1234", ModeAllHistory)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, models.ProviderMock, ing.provider)
	require.Equal(t, models.ProviderMock, out[0].Provider)
}
