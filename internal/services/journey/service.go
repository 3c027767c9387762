package journey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/HaulDesk/TollTrace/internal/cache"
	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/HaulDesk/TollTrace/internal/storage/pgfleet"
	"github.com/pkg/errors"
)

type Repository interface {
	ListJourneyView(ctx context.Context, bookingID uint64) ([]pgfleet.JourneyViewRow, error)
	ListAssignmentsByBooking(ctx context.Context, bookingID uint64) ([]*models.VehicleAssignment, error)
	ListConsignmentsByBooking(ctx context.Context, bookingID uint64) ([]*models.WarehouseConsignment, error)
}

type Service struct {
	repo     Repository
	cache    cache.BytesCache
	cacheTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL}
}

// BuildJourney merges assignment and consignment lifecycles into one ascending
// timeline. The precomputed view is preferred; deployments without it fall back
// to a client-side merge. Read-only: nothing here writes.
func (s *Service) BuildJourney(ctx context.Context, bookingID uint64) ([]*models.JourneyEvent, error) {
	if bookingID == 0 {
		return nil, errors.New("bookingId is required")
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, journeyKey(bookingID)); err == nil && ok {
			var events []*models.JourneyEvent
			if json.Unmarshal(b, &events) == nil {
				return events, nil
			}
		}
	}

	events, err := s.buildFromView(ctx, bookingID)
	if err != nil {
		// вью может отсутствовать в этом деплойменте
		slog.Warn("journey view unavailable, merging client-side", "booking_id", bookingID, "error", err.Error())
		events, err = s.buildFromTables(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime.Before(events[j].EventTime)
	})

	if s.cache != nil && s.cacheTTL > 0 {
		b, _ := json.Marshal(events)
		_ = s.cache.Set(ctx, journeyKey(bookingID), b, s.cacheTTL)
	}
	return events, nil
}

// Invalidate drops the cached journey for a booking (called when new crossings
// are observed).
func (s *Service) Invalidate(ctx context.Context, bookingID uint64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, journeyKey(bookingID))
}

func (s *Service) buildFromView(ctx context.Context, bookingID uint64) ([]*models.JourneyEvent, error) {
	rows, err := s.repo.ListJourneyView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	events := make([]*models.JourneyEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, &models.JourneyEvent{
			Type:          r.EventType,
			EventTime:     r.EventTime,
			Description:   describe(r.EventType, r.VehicleNumber, r.DriverName, r.WarehouseName),
			VehicleNumber: r.VehicleNumber,
			DriverName:    r.DriverName,
			WarehouseName: r.WarehouseName,
		})
	}
	return events, nil
}

func (s *Service) buildFromTables(ctx context.Context, bookingID uint64) ([]*models.JourneyEvent, error) {
	asgs, err := s.repo.ListAssignmentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	cons, err := s.repo.ListConsignmentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var events []*models.JourneyEvent
	for _, a := range asgs {
		events = append(events, assignmentEvents(a)...)
	}
	for _, c := range cons {
		events = append(events, consignmentEvents(c)...)
	}
	return events, nil
}

// Each source record yields zero, one or two events depending on which
// timestamps are set.
func assignmentEvents(a *models.VehicleAssignment) []*models.JourneyEvent {
	var out []*models.JourneyEvent
	vn := a.VehicleNumber()
	var vnPtr *string
	if vn != "" {
		vnPtr = &vn
	}
	if a.AssignedAt != nil {
		out = append(out, &models.JourneyEvent{
			Type:          models.JourneyVehicleAssigned,
			EventTime:     *a.AssignedAt,
			Description:   describe(models.JourneyVehicleAssigned, vnPtr, a.DriverName, nil),
			VehicleNumber: vnPtr,
			DriverName:    a.DriverName,
		})
	}
	if a.ReleasedAt != nil {
		out = append(out, &models.JourneyEvent{
			Type:          models.JourneyVehicleReleased,
			EventTime:     *a.ReleasedAt,
			Description:   describe(models.JourneyVehicleReleased, vnPtr, a.DriverName, nil),
			VehicleNumber: vnPtr,
			DriverName:    a.DriverName,
		})
	}
	return out
}

func consignmentEvents(c *models.WarehouseConsignment) []*models.JourneyEvent {
	var out []*models.JourneyEvent
	wh := c.WarehouseName
	if c.ArrivalDate != nil {
		out = append(out, &models.JourneyEvent{
			Type:          models.JourneyArrivedAtWarehouse,
			EventTime:     *c.ArrivalDate,
			Description:   describe(models.JourneyArrivedAtWarehouse, nil, nil, &wh),
			WarehouseName: &wh,
		})
	}
	if c.DepartureDate != nil {
		out = append(out, &models.JourneyEvent{
			Type:          models.JourneyDepartedFromWarehouse,
			EventTime:     *c.DepartureDate,
			Description:   describe(models.JourneyDepartedFromWarehouse, nil, nil, &wh),
			WarehouseName: &wh,
		})
	}
	return out
}

func describe(eventType string, vehicleNumber, driverName, warehouseName *string) string {
	vn := "vehicle"
	if vehicleNumber != nil && *vehicleNumber != "" {
		vn = "Vehicle " + *vehicleNumber
	}
	switch eventType {
	case models.JourneyVehicleAssigned:
		if driverName != nil && *driverName != "" {
			return fmt.Sprintf("%s assigned (driver %s)", vn, *driverName)
		}
		return vn + " assigned"
	case models.JourneyVehicleReleased:
		return vn + " released"
	case models.JourneyArrivedAtWarehouse:
		if warehouseName != nil && *warehouseName != "" {
			return "Arrived at " + *warehouseName
		}
		return "Arrived at warehouse"
	case models.JourneyDepartedFromWarehouse:
		if warehouseName != nil && *warehouseName != "" {
			return "Departed from " + *warehouseName
		}
		return "Departed from warehouse"
	default:
		return eventType
	}
}

func journeyKey(bookingID uint64) string {
	return fmt.Sprintf("journey:%d", bookingID)
}
