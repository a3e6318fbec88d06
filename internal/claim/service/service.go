package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfarer/internal/claim"
	"wayfarer/internal/events"
	"wayfarer/internal/geo"
	"wayfarer/internal/location"
	"wayfarer/internal/platform/metrics"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/sentinel"
	"wayfarer/pkg/requestcontext"
)

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 25 * time.Millisecond
)

// LeaderboardInvalidator drops cached leaderboard views after a commit.
type LeaderboardInvalidator interface {
	InvalidateTop(ctx context.Context)
}

// Service is the claim transaction coordinator. It executes the whole claim
// as one transaction against the aggregate stores and owns the bounded retry
// loop around write conflicts. It never takes locks of its own; the store
// transaction is the only synchronization primitive.
type Service struct {
	tx          Tx
	stores      Stores
	leaderboard LeaderboardInvalidator
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	maxAttempts  int
	retryBackoff time.Duration
}

// Option tweaks coordinator behavior.
type Option func(*Service)

// WithRetryBudget overrides how many transaction attempts a claim gets before
// it surfaces a retryable failure.
func WithRetryBudget(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the pause between conflict retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.retryBackoff = d }
}

// WithLeaderboardInvalidator wires commit-time cache invalidation.
func WithLeaderboardInvalidator(inv LeaderboardInvalidator) Option {
	return func(s *Service) { s.leaderboard = inv }
}

// NewService builds the coordinator. stores are the same store instances the
// tx hands out, used for non-transactional preview reads.
func NewService(tx Tx, stores Stores, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		tx:           tx,
		stores:       stores,
		logger:       logger,
		metrics:      m,
		tracer:       otel.Tracer("wayfarer/claim"),
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim performs the full claim for req. Rejections come back as a Result
// with OutcomeRejected and a nil error; a non-nil error is either terminal
// (missing profile, cancelled context) or retryable (conflict budget
// exhausted, store unavailable), distinguishable via domain-errors codes.
func (s *Service) Claim(ctx context.Context, req claim.Request) (claim.Result, error) {
	if req.UserID == "" {
		return claim.Result{}, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	// A blank city can never become claimable; reject before opening any
	// transaction.
	if claim.NormalizeCityID(req.CityName) == "" {
		s.reject(claim.ReasonNoCityDetected)
		return claim.Rejected(claim.ReasonNoCityDetected), nil
	}

	ctx, span := s.tracer.Start(ctx, "claim.Claim",
		trace.WithAttributes(attribute.String("claim.city", req.CityName)))
	defer span.End()

	var result claim.Result
	for attempt := 1; ; attempt++ {
		res, err := s.attempt(ctx, req)
		if err == nil {
			result = res
			break
		}

		if !errors.Is(err, sentinel.ErrConflict) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return claim.Result{}, dErrors.Wrap(err, dErrors.CodeTimeout, "claim aborted")
			}
			return claim.Result{}, err
		}

		// Another transaction touched one of the two aggregates first. The
		// whole block re-runs from the authoritative read; a replayed claim
		// resolves to AlreadyClaimed on the next attempt.
		if attempt >= s.maxAttempts {
			if s.metrics != nil {
				s.metrics.ClaimTxExhausted.Inc()
			}
			s.logger.WarnContext(ctx, "claim conflict budget exhausted",
				"user_id", req.UserID,
				"city", req.CityName,
				"attempts", attempt,
				"request_id", requestcontext.RequestID(ctx),
			)
			return claim.Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "claim conflicted repeatedly, retry later")
		}
		if s.metrics != nil {
			s.metrics.ClaimTxRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return claim.Result{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "claim aborted")
		case <-time.After(s.retryBackoff):
		}
	}

	span.SetAttributes(attribute.String("claim.outcome", string(result.Outcome)))

	switch result.Outcome {
	case claim.OutcomeCommitted:
		if s.metrics != nil {
			s.metrics.ClaimsCommitted.Inc()
			s.metrics.PointsAwarded.Add(float64(result.PointsAwarded))
			if result.FirstDiscovery {
				s.metrics.DiscoveryBonuses.Inc()
			}
		}
		if s.leaderboard != nil {
			s.leaderboard.InvalidateTop(ctx)
		}
		s.logger.InfoContext(ctx, "claim committed",
			"user_id", req.UserID,
			"city", req.CityName,
			"points", result.PointsAwarded,
			"first_discovery", result.FirstDiscovery,
			"request_id", requestcontext.RequestID(ctx),
		)
	case claim.OutcomeRejected:
		s.reject(result.Reason)
	}
	return result, nil
}

// attempt runs exactly one transaction. It is written as if it executes once;
// conflict-driven re-runs are the caller's concern.
func (s *Service) attempt(ctx context.Context, req claim.Request) (claim.Result, error) {
	var result claim.Result
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		// Authoritative read; never a stale cache.
		p, err := st.Profiles.Get(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "profile not found")
			}
			return err
		}

		cityID, reason, ok := claim.Evaluate(p, req.CityName)
		if !ok {
			// Terminal, expected, and performed with no writes.
			result = claim.Rejected(reason)
			return nil
		}

		loc, err := st.Locations.Get(ctx, cityID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		// The discovery question must be answered inside this transaction:
		// deciding it beforehand would let two users both believe they are
		// first.
		firstDiscovery := loc == nil || loc.TotalVisits == 0
		award := claim.Score(*p.Home, req.Position, firstDiscovery)

		if err := st.Profiles.ApplyClaim(ctx, req.UserID, cityID, award); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		if loc == nil {
			err = st.Locations.Create(ctx, &location.Location{
				CityID:             cityID,
				City:               claim.DisplayName(req.CityName),
				Coordinate:         req.Position,
				ImageURL:           location.CityImage(req.CityName),
				TotalVisits:        1,
				TotalPointsAwarded: award,
				LastVisitedAt:      now,
			})
		} else {
			err = st.Locations.RecordVisit(ctx, cityID, award, now)
		}
		if err != nil {
			return err
		}

		if st.Events != nil {
			if err := st.Events.Append(ctx, events.Event{
				Type:           events.TypeClaimCommitted,
				UserID:         req.UserID,
				CityID:         cityID,
				Points:         award,
				FirstDiscovery: firstDiscovery,
				At:             now,
			}); err != nil {
				return err
			}
		}

		result = claim.Committed(award, firstDiscovery)
		return nil
	})
	return result, err
}

// Preview quotes the award for a prospective claim without committing
// anything. Best effort: it reads outside any transaction, so the quote can
// differ from the eventual award when the discovery race resolves against the
// user.
func (s *Service) Preview(ctx context.Context, userID, cityName string, pos geo.Coordinate) (claim.Result, error) {
	p, err := s.stores.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return claim.Result{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return claim.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "preview claim")
	}

	cityID, reason, ok := claim.Evaluate(p, cityName)
	if !ok {
		return claim.Rejected(reason), nil
	}

	loc, err := s.stores.Locations.Get(ctx, cityID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return claim.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "preview claim")
	}
	firstDiscovery := loc == nil || loc.TotalVisits == 0
	return claim.Committed(claim.Score(*p.Home, pos, firstDiscovery), firstDiscovery), nil
}

func (s *Service) reject(reason claim.RejectReason) {
	if s.metrics != nil {
		s.metrics.ClaimRejected(string(reason))
	}
}
