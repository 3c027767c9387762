package tracking_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/HaulDesk/TollTrace/internal/models"
	"github.com/HaulDesk/TollTrace/internal/services/tracker"
	"github.com/HaulDesk/TollTrace/internal/services/vehiclesearch"
	"github.com/go-chi/chi/v5"
)

type TrackerService interface {
	RequestTracking(ctx context.Context, bookingID uint64) (*tracker.TrackingResult, error)
	History(ctx context.Context, bookingID uint64) ([]*models.TollCrossing, error)
}

type SearchService interface {
	Search(ctx context.Context, vehicleNumber, mode string) ([]*models.TollCrossing, error)
}

type JourneyService interface {
	BuildJourney(ctx context.Context, bookingID uint64) ([]*models.JourneyEvent, error)
}

type TrackingAPI struct {
	tracker TrackerService
	search  SearchService
	journey JourneyService
}

func New(trackerSvc TrackerService, searchSvc SearchService, journeySvc JourneyService) *TrackingAPI {
	return &TrackingAPI{tracker: trackerSvc, search: searchSvc, journey: journeySvc}
}

func (a *TrackingAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/bookings/{bookingID}/track", a.handleTrack)
		r.Get("/bookings/{bookingID}/crossings", a.handleBookingCrossings)
		r.Get("/bookings/{bookingID}/journey", a.handleJourney)
		r.Get("/vehicles/{vehicleNumber}/crossings", a.handleVehicleCrossings)
	})
}

type crossingResponse struct {
	ID            uint64    `json:"id"`
	VehicleNumber string    `json:"vehicleNumber"`
	TollPlazaName string    `json:"tollPlazaName"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	CrossingTime  time.Time `json:"crossingTime"`
	VehicleType   string    `json:"vehicleType,omitempty"`
	Provider      string    `json:"provider"`
}

type trackResponse struct {
	Cached      bool               `json:"cached"`
	WaitSeconds int                `json:"waitSeconds,omitempty"`
	Data        []crossingResponse `json:"data"`
	NewRecords  int                `json:"newRecords"`
	IsRealData  bool               `json:"isRealData"`
	IsMockData  bool               `json:"isMockData"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *TrackingAPI) handleTrack(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	res, err := a.tracker.RequestTracking(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trackResponse{
		Cached:      res.Cached,
		WaitSeconds: res.WaitSeconds,
		Data:        toCrossingResponses(res.Crossings),
		NewRecords:  res.NewRecords,
		IsRealData:  res.IsRealData,
		IsMockData:  res.IsMockData,
	})
}

func (a *TrackingAPI) handleBookingCrossings(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	crossings, err := a.tracker.History(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": toCrossingResponses(crossings)})
}

func (a *TrackingAPI) handleJourney(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	events, err := a.journey.BuildJourney(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []*models.JourneyEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}

func (a *TrackingAPI) handleVehicleCrossings(w http.ResponseWriter, r *http.Request) {
	vehicleNumber := chi.URLParam(r, "vehicleNumber")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = vehiclesearch.ModeCurrent
	}
	if mode != vehiclesearch.ModeCurrent && mode != vehiclesearch.ModeAllHistory {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mode must be current or all_history"})
		return
	}

	crossings, err := a.search.Search(r.Context(), vehicleNumber, mode)
	if err == models.ErrNoCrossingsFound {
		// не ошибка запроса: данных просто нет
		writeJSON(w, http.StatusNotFound, map[string]any{"data": []crossingResponse{}, "message": "no crossings found"})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": toCrossingResponses(crossings)})
}

func bookingIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "bookingID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bookingID must be a positive integer"})
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case models.ErrNoActiveVehicle:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case models.ErrNoCrossingsFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toCrossingResponses(in []*models.TollCrossing) []crossingResponse {
	out := make([]crossingResponse, 0, len(in))
	for _, c := range in {
		out = append(out, crossingResponse{
			ID:            c.ID,
			VehicleNumber: c.VehicleNumber,
			TollPlazaName: c.TollPlazaName,
			Latitude:      c.Latitude,
			Longitude:     c.Longitude,
			CrossingTime:  c.CrossingTime,
			VehicleType:   c.VehicleType,
			Provider:      c.Provider,
		})
	}
	return out
}
