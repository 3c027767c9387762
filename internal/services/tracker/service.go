package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/HaulDesk/TollTrace/internal/broker/messages"
	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry/synthetic"
	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	ActiveAssignmentForBooking(ctx context.Context, bookingID uint64) (*models.VehicleAssignment, error)
	InsertCrossingIfNew(ctx context.Context, c *models.TollCrossing) (bool, error)
	ListCrossingsByBooking(ctx context.Context, bookingID uint64) ([]*models.TollCrossing, error)
	AppendCallLog(ctx context.Context, l *models.ApiCallLog) error
	LatestCallLogForBooking(ctx context.Context, bookingID uint64) (*models.ApiCallLog, error)
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// lock TTL only matters if the holder dies before Release
const trackingLockTTL = 30 * time.Second

type Service struct {
	repo   Repository
	client telemetry.Client

	locker   Locker
	producer Producer
	topic    string

	policy   ClassifierPolicy
	cooldown time.Duration
	callCost float64
}

func New(repo Repository, client telemetry.Client) *Service {
	return &Service{
		repo:     repo,
		client:   client,
		policy:   DefaultClassifierPolicy(),
		cooldown: 5 * time.Minute,
		callCost: 1.5,
	}
}

func (s *Service) WithLocker(l Locker) *Service {
	s.locker = l
	return s
}

func (s *Service) WithProducer(p Producer, topic string) *Service {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Service) WithPolicy(p ClassifierPolicy) *Service {
	s.policy = p
	return s
}

func (s *Service) WithSettings(cooldown time.Duration, callCost float64) *Service {
	if cooldown > 0 {
		s.cooldown = cooldown
	}
	if callCost >= 0 {
		s.callCost = callCost
	}
	return s
}

type TrackingResult struct {
	Cached      bool
	WaitSeconds int
	Crossings   []*models.TollCrossing
	NewRecords  int
	IsRealData  bool
	IsMockData  bool
}

// RequestTracking is the booking-scoped entry point: cooldown gate first, then
// a fresh provider call through the classifier and the dedup persister.
func (s *Service) RequestTracking(ctx context.Context, bookingID uint64) (*TrackingResult, error) {
	if bookingID == 0 {
		return nil, errors.New("bookingId is required")
	}

	asg, err := s.repo.ActiveAssignmentForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if asg == nil || asg.VehicleNumber() == "" {
		return nil, models.ErrNoActiveVehicle
	}
	vehicleNumber := models.NormalizeVehicleNumber(asg.VehicleNumber())

	now := time.Now().UTC()
	last, err := s.repo.LatestCallLogForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		if elapsed := now.Sub(last.RequestedAt); elapsed < s.cooldown {
			wait := int((s.cooldown - elapsed).Seconds())
			return s.cachedResult(ctx, bookingID, last, wait)
		}
	}

	if s.locker != nil {
		key := fmt.Sprintf("track:booking:%d", bookingID)
		ok, lockErr := s.locker.Acquire(ctx, key, trackingLockTTL)
		switch {
		case lockErr != nil:
			// redis недоступен — cooldown по журналу остаётся единственной защитой
			slog.Warn("acquire tracking lock", "booking_id", bookingID, "error", lockErr.Error())
		case !ok:
			// параллельный запрос уже пошёл к провайдеру — отдаём кэш
			return s.cachedResult(ctx, bookingID, last, 0)
		default:
			defer func() { _ = s.locker.Release(ctx, key) }()
		}
	}

	records, provider := s.fetchAndClassify(ctx, vehicleNumber, now)

	asgID := asg.ID
	newCount := s.IngestBatch(ctx, &bookingID, &asgID, vehicleNumber, records, provider)

	crossings, err := s.repo.ListCrossingsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return &TrackingResult{
		Crossings:  crossings,
		NewRecords: newCount,
		IsRealData: provider == models.ProviderLive,
		IsMockData: provider != models.ProviderLive,
	}, nil
}

// History returns the full stored crossing set for a booking, newest first.
func (s *Service) History(ctx context.Context, bookingID uint64) ([]*models.TollCrossing, error) {
	if bookingID == 0 {
		return nil, errors.New("bookingId is required")
	}
	return s.repo.ListCrossingsByBooking(ctx, bookingID)
}

// Classify applies the mock-data policy; exposed for the vehicle search path.
func (s *Service) Classify(records []telemetry.RawCrossing) ([]telemetry.RawCrossing, bool) {
	return s.policy.Classify(records)
}

func (s *Service) cachedResult(ctx context.Context, bookingID uint64, last *models.ApiCallLog, wait int) (*TrackingResult, error) {
	crossings, err := s.repo.ListCrossingsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	res := &TrackingResult{
		Cached:      true,
		WaitSeconds: wait,
		Crossings:   crossings,
	}
	if last != nil {
		res.IsRealData = last.Provider == models.ProviderLive
		res.IsMockData = !res.IsRealData
	}
	return res, nil
}

// fetchAndClassify never fails: the provider being unreachable degrades to the
// synthetic fallback so the caller always has something to render. The fallback
// bypasses the classifier — it would trip its own fixture signature.
func (s *Service) fetchAndClassify(ctx context.Context, vehicleNumber string, now time.Time) ([]telemetry.RawCrossing, string) {
	records, err := s.client.GetCrossings(ctx, vehicleNumber)
	if err != nil {
		slog.Warn("provider unavailable, using synthetic fallback", "vehicle", vehicleNumber, "error", err.Error())
		return synthetic.Crossings(now), models.ProviderSynthetic
	}

	kept, genuine := s.policy.Classify(records)
	if !genuine {
		return records, models.ProviderMock
	}
	return kept, models.ProviderLive
}

// IngestBatch persists the surviving records and writes exactly one ledger
// entry for the batch. A failure on one record must not abort the rest, so
// per-record errors are logged and skipped.
func (s *Service) IngestBatch(ctx context.Context, bookingID, assignmentID *uint64, vehicleNumber string, records []telemetry.RawCrossing, provider string) int {
	now := time.Now().UTC()

	newCount := 0
	for _, r := range records {
		crossTime, err := telemetry.ParseReaderReadTime(r.ReaderReadTime)
		if err != nil {
			slog.Error("parse crossing time", "vehicle", vehicleNumber, "value", r.ReaderReadTime, "error", err.Error())
			continue
		}
		lat, lng, err := parseGeocode(r.TollPlazaGeocode)
		if err != nil {
			// координаты бывают битыми; запись сохраняем, сырой геокод остаётся для аудита
			slog.Warn("parse geocode", "plaza", r.TollPlazaName, "value", r.TollPlazaGeocode, "error", err.Error())
		}

		payloadB, _ := json.Marshal(r)
		payload := string(payloadB)
		c := &models.TollCrossing{
			BookingID:     bookingID,
			AssignmentID:  assignmentID,
			VehicleNumber: vehicleNumber,
			TollPlazaName: r.TollPlazaName,
			GeocodeRaw:    r.TollPlazaGeocode,
			Latitude:      lat,
			Longitude:     lng,
			CrossingTime:  crossTime,
			VehicleType:   r.VehicleType,
			Provider:      provider,
			PayloadJSON:   &payload,
		}
		inserted, err := s.repo.InsertCrossingIfNew(ctx, c)
		if err != nil {
			slog.Error("insert crossing", "vehicle", vehicleNumber, "plaza", r.TollPlazaName, "error", err.Error())
			continue
		}
		if inserted {
			newCount++
		}
	}

	status := models.CallStatusSuccess
	if len(records) == 0 {
		status = models.CallStatusNoData
	}
	cost := 0.0
	if provider == models.ProviderLive {
		cost = s.callCost
	}
	entry := &models.ApiCallLog{
		VehicleNumber: vehicleNumber,
		BookingID:     bookingID,
		Provider:      provider,
		Status:        status,
		RecordCount:   len(records),
		Cost:          cost,
		RequestedAt:   now,
	}
	if err := s.repo.AppendCallLog(ctx, entry); err != nil {
		slog.Error("append call log", "vehicle", vehicleNumber, "error", err.Error())
	}

	if newCount > 0 && s.producer != nil {
		msg := messages.CrossingsObserved{
			BookingID:     bookingID,
			VehicleNumber: vehicleNumber,
			Provider:      provider,
			NewRecords:    newCount,
			ObservedAt:    now,
		}
		b, _ := json.Marshal(msg)
		if err := s.producer.Publish(ctx, s.topic, []byte(vehicleNumber), b); err != nil {
			slog.Warn("publish crossings observed", "vehicle", vehicleNumber, "error", err.Error())
		}
	}

	return newCount
}

func parseGeocode(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("bad geocode: %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse latitude")
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse longitude")
	}
	return lat, lng, nil
}
