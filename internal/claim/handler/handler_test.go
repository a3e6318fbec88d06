package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/claim"
	"wayfarer/internal/geo"
	"wayfarer/internal/platform/middleware"
	dErrors "wayfarer/pkg/domain-errors"
)

type stubService struct {
	claimFn   func(ctx context.Context, req claim.Request) (claim.Result, error)
	previewFn func(ctx context.Context, userID, cityName string, pos geo.Coordinate) (claim.Result, error)
}

func (s *stubService) Claim(ctx context.Context, req claim.Request) (claim.Result, error) {
	return s.claimFn(ctx, req)
}

func (s *stubService) Preview(ctx context.Context, userID, cityName string, pos geo.Coordinate) (claim.Result, error) {
	return s.previewFn(ctx, userID, cityName, pos)
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "good-token" {
		return nil, errors.New("invalid token")
	}
	return &middleware.JWTClaims{UserID: "alice"}, nil
}

func newTestServer(svc Service) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger, nil, stubValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return httptest.NewServer(r)
}

func doClaim(t *testing.T, srv *httptest.Server, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/claim", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) claim.Result {
	t.Helper()
	defer resp.Body.Close()
	var res claim.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHandleClaim(t *testing.T) {
	t.Run("committed claim returns 200 with the award", func(t *testing.T) {
		svc := &stubService{
			claimFn: func(_ context.Context, req claim.Request) (claim.Result, error) {
				assert.Equal(t, "alice", req.UserID)
				assert.Equal(t, "Rome", req.CityName)
				assert.InDelta(t, 41.9, req.Position.Lat, 0.001)
				return claim.Committed(250, true), nil
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		resp := doClaim(t, srv, "good-token", `{"city":"Rome","lat":41.9,"lon":12.5}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		res := decodeResult(t, resp)
		assert.Equal(t, claim.OutcomeCommitted, res.Outcome)
		assert.Equal(t, int64(250), res.PointsAwarded)
		assert.True(t, res.FirstDiscovery)
	})

	t.Run("rejection statuses", func(t *testing.T) {
		cases := []struct {
			reason claim.RejectReason
			status int
		}{
			{claim.ReasonAlreadyClaimed, http.StatusConflict},
			{claim.ReasonNoCityDetected, http.StatusUnprocessableEntity},
			{claim.ReasonHomeNotSet, http.StatusPreconditionFailed},
		}
		for _, tc := range cases {
			t.Run(string(tc.reason), func(t *testing.T) {
				svc := &stubService{
					claimFn: func(context.Context, claim.Request) (claim.Result, error) {
						return claim.Rejected(tc.reason), nil
					},
				}
				srv := newTestServer(svc)
				defer srv.Close()

				resp := doClaim(t, srv, "good-token", `{"city":"Rome","lat":1,"lon":1}`)
				assert.Equal(t, tc.status, resp.StatusCode)

				res := decodeResult(t, resp)
				assert.Equal(t, claim.OutcomeRejected, res.Outcome)
				assert.Equal(t, tc.reason, res.Reason)
			})
		}
	})

	t.Run("retryable failure returns 503 with Retry-After", func(t *testing.T) {
		svc := &stubService{
			claimFn: func(context.Context, claim.Request) (claim.Result, error) {
				return claim.Result{}, dErrors.New(dErrors.CodeUnavailable, "claim conflicted repeatedly, retry later")
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		resp := doClaim(t, srv, "good-token", `{"city":"Rome","lat":1,"lon":1}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	})

	t.Run("internal failure hides details", func(t *testing.T) {
		svc := &stubService{
			claimFn: func(context.Context, claim.Request) (claim.Result, error) {
				return claim.Result{}, errors.New("pq: connection reset")
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		resp := doClaim(t, srv, "good-token", `{"city":"Rome","lat":1,"lon":1}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "pq:")
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		called := false
		svc := &stubService{
			claimFn: func(context.Context, claim.Request) (claim.Result, error) {
				called = true
				return claim.Result{}, nil
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		resp := doClaim(t, srv, "good-token", `{"city":`)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, called)
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		svc := &stubService{
			claimFn: func(context.Context, claim.Request) (claim.Result, error) {
				t.Fatal("service must not be called without auth")
				return claim.Result{}, nil
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		resp := doClaim(t, srv, "", `{"city":"Rome","lat":1,"lon":1}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandlePreview(t *testing.T) {
	t.Run("quotes the award", func(t *testing.T) {
		svc := &stubService{
			previewFn: func(_ context.Context, userID, cityName string, pos geo.Coordinate) (claim.Result, error) {
				assert.Equal(t, "alice", userID)
				assert.Equal(t, "Rome", cityName)
				return claim.Committed(50, false), nil
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/claim/preview?city=Rome&lat=41.9&lon=12.5", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer good-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		res := decodeResult(t, resp)
		assert.Equal(t, int64(50), res.PointsAwarded)
	})

	t.Run("missing coordinates return 400", func(t *testing.T) {
		svc := &stubService{
			previewFn: func(context.Context, string, string, geo.Coordinate) (claim.Result, error) {
				return claim.Result{}, nil
			},
		}
		srv := newTestServer(svc)
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/claim/preview?city=Rome", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer good-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
