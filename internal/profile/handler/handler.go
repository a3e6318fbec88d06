package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wayfarer/internal/geo"
	"wayfarer/internal/platform/metrics"
	"wayfarer/internal/platform/middleware"
	"wayfarer/internal/profile"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/httputil"
	"wayfarer/pkg/requestcontext"
)

// Service defines the interface for profile operations.
type Service interface {
	Create(ctx context.Context, userID, username, email string) (*profile.Profile, error)
	Get(ctx context.Context, userID string) (*profile.Profile, int, error)
	SetHome(ctx context.Context, userID string, home geo.Coordinate) error
	SetImage(ctx context.Context, userID, imageURL string) error
}

// Handler handles the authenticated user's profile endpoints.
type Handler struct {
	logger       *slog.Logger
	profiles     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new profile Handler.
func New(profiles Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		profiles:     profiles,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	meRouter := chi.NewRouter()
	meRouter.Use(middleware.Recovery(h.logger))
	meRouter.Use(middleware.RequestID)
	meRouter.Use(middleware.RequestTime)
	meRouter.Use(middleware.Logger(h.logger))
	meRouter.Use(middleware.Timeout(30 * time.Second))
	meRouter.Use(middleware.ContentTypeJSON)
	meRouter.Use(middleware.Latency(h.metrics))
	meRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	meRouter.Post("/", h.handleCreateProfile)
	meRouter.Get("/", h.handleGetProfile)
	meRouter.Post("/home", h.handleSetHome)
	meRouter.Post("/image", h.handleSetImage)

	r.Mount("/me", meRouter)
}

type coordinatePayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type profileResponse struct {
	ID            string             `json:"id"`
	Username      string             `json:"username"`
	Email         string             `json:"email,omitempty"`
	Points        int64              `json:"points"`
	Home          *coordinatePayload `json:"home,omitempty"`
	VisitedCities []string           `json:"visited_cities"`
	CitiesVisited int                `json:"cities_visited"`
	FriendCount   int                `json:"friend_count"`
	ImageURL      string             `json:"image_url,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type createProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// handleCreateProfile materializes the signup projection for the
// authenticated user.
func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.profiles.Create(ctx, userID, body.Username, body.Email)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to create profile",
				"request_id", requestID,
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to create profile"))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, profileResponse{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		VisitedCities: []string{},
		CreatedAt:     p.CreatedAt,
	})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	p, friendCount, err := h.profiles.Get(ctx, userID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get profile",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to get profile"))
		return
	}

	resp := profileResponse{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		Points:        p.Points,
		VisitedCities: p.VisitedCities,
		CitiesVisited: p.CitiesVisited,
		FriendCount:   friendCount,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
	}
	if resp.VisitedCities == nil {
		resp.VisitedCities = []string{}
	}
	if p.Home != nil {
		resp.Home = &coordinatePayload{Lat: p.Home.Lat, Lon: p.Home.Lon}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleSetHome establishes the home coordinate. It succeeds at most once per
// profile; a second attempt comes back 412.
func (h *Handler) handleSetHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body coordinatePayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	err := h.profiles.SetHome(ctx, userID, geo.Coordinate{Lat: body.Lat, Lon: body.Lon})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to set home",
				"request_id", requestID,
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to set home"))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "home location set",
		"user_id", userID,
		"request_id", requestID,
	)
	w.WriteHeader(http.StatusNoContent)
}

type setImageRequest struct {
	ImageURL string `json:"image_url"`
}

func (h *Handler) handleSetImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body setImageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.profiles.SetImage(ctx, userID, body.ImageURL); err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to set profile image",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to set profile image"))
			return
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
