package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wayfarer/internal/claim"
	"wayfarer/internal/geo"
	"wayfarer/internal/platform/metrics"
	"wayfarer/internal/platform/middleware"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/httputil"
	"wayfarer/pkg/requestcontext"
)

// Service defines the interface for claim operations.
type Service interface {
	Claim(ctx context.Context, req claim.Request) (claim.Result, error)
	Preview(ctx context.Context, userID, cityName string, pos geo.Coordinate) (claim.Result, error)
}

// Handler handles the claim endpoints.
type Handler struct {
	logger       *slog.Logger
	claims       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new claim Handler.
func New(claims Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		claims:       claims,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the claim routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	claimRouter := chi.NewRouter()
	claimRouter.Use(middleware.Recovery(h.logger))
	claimRouter.Use(middleware.RequestID)
	claimRouter.Use(middleware.RequestTime)
	claimRouter.Use(middleware.Logger(h.logger))
	claimRouter.Use(middleware.Timeout(30 * time.Second))
	claimRouter.Use(middleware.ContentTypeJSON)
	claimRouter.Use(middleware.Latency(h.metrics))
	claimRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	claimRouter.Post("/", h.handleClaim)
	claimRouter.Get("/preview", h.handlePreview)

	r.Mount("/claim", claimRouter)
}

type claimRequest struct {
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// handleClaim performs the whole claim for the authenticated user. Rejections
// are expected outcomes and carry their own statuses; only infrastructure
// failures surface as error envelopes.
func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body claimRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid claim request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.claims.Claim(ctx, claim.Request{
		UserID:   userID,
		CityName: body.City,
		Position: geo.Coordinate{Lat: body.Lat, Lon: body.Lon},
	})
	if err != nil {
		if dErrors.Retryable(err) || dErrors.Is(err, dErrors.CodeBadRequest) || dErrors.Is(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "claim failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "claim failed"))
		return
	}

	httputil.WriteJSON(w, statusFor(res), res)
}

// handlePreview quotes the award without committing anything.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "lat and lon are required"))
		return
	}

	res, err := h.claims.Preview(ctx, userID, q.Get("city"), geo.Coordinate{Lat: lat, Lon: lon})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "claim preview failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "claim preview failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// statusFor maps a claim outcome to its HTTP status. Rejections are not error
// envelopes: the body still carries the full result so clients can branch on
// the reason.
func statusFor(res claim.Result) int {
	if res.Outcome == claim.OutcomeCommitted {
		return http.StatusOK
	}
	switch res.Reason {
	case claim.ReasonAlreadyClaimed:
		return http.StatusConflict
	case claim.ReasonNoCityDetected:
		return http.StatusUnprocessableEntity
	case claim.ReasonHomeNotSet:
		return http.StatusPreconditionFailed
	default:
		return http.StatusUnprocessableEntity
	}
}
