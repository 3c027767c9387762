package vehiclesearch

import (
	"context"
	"log/slog"
	"time"

	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/pkg/errors"
)

// Search modes. ModeCurrent returns the single latest known position,
// ModeAllHistory the full chronological set.
const (
	ModeCurrent    = "current"
	ModeAllHistory = "all_history"
)

type Repository interface {
	ListCrossingsByVehicle(ctx context.Context, vehicleNumber string, since time.Time) ([]*models.TollCrossing, error)
	AppendCallLog(ctx context.Context, l *models.ApiCallLog) error
}

// Ingestor is the shared classify/persist pipeline, implemented by the tracker
// service so search results land in the same store under the same identity key.
type Ingestor interface {
	Classify(records []telemetry.RawCrossing) ([]telemetry.RawCrossing, bool)
	IngestBatch(ctx context.Context, bookingID, assignmentID *uint64, vehicleNumber string, records []telemetry.RawCrossing, provider string) int
}

type Service struct {
	repo     Repository
	client   telemetry.Client
	ingestor Ingestor
	lookback time.Duration
}

func New(repo Repository, client telemetry.Client, ingestor Ingestor) *Service {
	return &Service{
		repo:     repo,
		client:   client,
		ingestor: ingestor,
		lookback: 7 * 24 * time.Hour,
	}
}

func (s *Service) WithLookback(d time.Duration) *Service {
	if d > 0 {
		s.lookback = d
	}
	return s
}

// Search is booking-independent: the store within the lookback window wins,
// otherwise one live provider call. A live failure here is a real failure —
// there is no booking to keep rendering for, so no synthetic substitute.
func (s *Service) Search(ctx context.Context, vehicleNumber, mode string) ([]*models.TollCrossing, error) {
	if vehicleNumber == "" {
		return nil, errors.New("vehicleNumber is required")
	}
	if mode != ModeCurrent && mode != ModeAllHistory {
		return nil, errors.Errorf("unknown mode: %q", mode)
	}
	vn := models.NormalizeVehicleNumber(vehicleNumber)
	since := time.Now().UTC().Add(-s.lookback)

	stored, err := s.repo.ListCrossingsByVehicle(ctx, vn, since)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		// данные из стора уже исторические — отдаём весь набор в обоих режимах
		return stored, nil
	}

	records, err := s.client.GetCrossings(ctx, vn)
	if err != nil {
		if logErr := s.repo.AppendCallLog(ctx, &models.ApiCallLog{
			VehicleNumber: vn,
			Provider:      models.ProviderLive,
			Status:        models.CallStatusFailure,
			RequestedAt:   time.Now().UTC(),
		}); logErr != nil {
			slog.Error("append call log", "vehicle", vn, "error", logErr.Error())
		}
		return nil, errors.Wrap(err, "live search call")
	}

	kept, genuine := s.ingestor.Classify(records)
	provider := models.ProviderLive
	if !genuine {
		provider = models.ProviderMock
		kept = records
	}
	s.ingestor.IngestBatch(ctx, nil, nil, vn, kept, provider)

	// Свежий live-ответ отдаём целиком: его записи могут быть старше окна.
	fresh, err := s.repo.ListCrossingsByVehicle(ctx, vn, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return nil, models.ErrNoCrossingsFound
	}

	if mode == ModeCurrent {
		// список отсортирован по времени по возрастанию
		return fresh[len(fresh)-1:], nil
	}
	return fresh, nil
}
