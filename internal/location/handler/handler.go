package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wayfarer/internal/location"
	"wayfarer/internal/platform/metrics"
	"wayfarer/internal/platform/middleware"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/httputil"
	"wayfarer/pkg/requestcontext"
)

// Service defines the interface for location reads.
type Service interface {
	Get(ctx context.Context, cityID string) (*location.Location, error)
	TopLocations(ctx context.Context, limit int) ([]location.Location, error)
}

// Handler handles the public location endpoints.
type Handler struct {
	logger       *slog.Logger
	locations    Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new location Handler.
func New(locations Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		locations:    locations,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the location routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	locRouter := chi.NewRouter()
	locRouter.Use(middleware.Recovery(h.logger))
	locRouter.Use(middleware.RequestID)
	locRouter.Use(middleware.Logger(h.logger))
	locRouter.Use(middleware.Timeout(30 * time.Second))
	locRouter.Use(middleware.Latency(h.metrics))
	locRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	locRouter.Get("/top", h.handleTop)
	locRouter.Get("/{cityID}", h.handleGet)

	r.Mount("/locations", locRouter)
}

type locationResponse struct {
	CityID             string    `json:"city_id"`
	City               string    `json:"city"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	ImageURL           string    `json:"image_url,omitempty"`
	TotalVisits        int64     `json:"total_visits"`
	TotalPointsAwarded int64     `json:"total_points_awarded"`
	LastVisitedAt      time.Time `json:"last_visited_at"`
}

func toResponse(loc location.Location) locationResponse {
	return locationResponse{
		CityID:             loc.CityID,
		City:               loc.City,
		Lat:                loc.Coordinate.Lat,
		Lon:                loc.Coordinate.Lon,
		ImageURL:           loc.ImageURL,
		TotalVisits:        loc.TotalVisits,
		TotalPointsAwarded: loc.TotalPointsAwarded,
		LastVisitedAt:      loc.LastVisitedAt,
	}
}

// handleTop serves the global leaderboard, most points first.
func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	locs, err := h.locations.TopLocations(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list top locations",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list top locations"))
		return
	}

	out := make([]locationResponse, len(locs))
	for i, loc := range locs {
		out[i] = toResponse(loc)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cityID := chi.URLParam(r, "cityID")

	loc, err := h.locations.Get(ctx, cityID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get location",
			"request_id", requestcontext.RequestID(ctx),
			"city_id", cityID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to get location"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*loc))
}
