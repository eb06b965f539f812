package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/app/repository"
	"github.com/sifan077/MailPulse/internal/app/service"
	inthttp "github.com/sifan077/MailPulse/internal/http/handler"
	"github.com/sifan077/MailPulse/internal/http/middleware"
	"github.com/sifan077/MailPulse/internal/http/util"
	"github.com/sifan077/MailPulse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokens *util.IdentityTokens, limit int, trustedProxies ...string) (*Server, repository.TrackingRepository) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := testutil.NewDB(t)
	records := repository.NewTrackingRepository(db)

	srv := New(Dependencies{
		Redis:     client,
		Tokens:    tokens,
		RateLimit: middleware.RateLimitConfig{MaxRequests: limit, Window: time.Minute, KeyPrefix: "ratelimit"},
		Recorder: service.NewEventRecorder(service.EventRecorderDeps{
			Records: records,
			Events:  repository.NewEventRepository(db),
		}),
		Queries:  service.NewTrackingQueryService(records, 0),
		Admin:    service.NewAdminService(records, nil),
		Activity: service.NewActivityFeed(client),
		Checks: map[string]inthttp.Check{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
		TrustedProxies: trustedProxies,
	})
	return srv, records
}

func get(t *testing.T, srv *Server, target string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_RoutesAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil, 100)

	resp := get(t, srv, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = get(t, srv, "/api/tracking")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "single-tenant mode serves the API without a token")

	resp = get(t, srv, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
}

func TestServer_APIRequiresToken(t *testing.T) {
	tokens := util.NewIdentityTokens([]byte("server-secret"), "mailpulse", time.Hour)
	srv, _ := newTestServer(t, tokens, 100)

	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/api/tracking").StatusCode)

	tok, err := tokens.Issue(model.Caller{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/tracking", "Authorization", "Bearer "+tok).StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/activity", "Authorization", "Bearer "+tok).StatusCode)
}

func TestServer_TrackingRoutesAreNotRateLimited(t *testing.T) {
	srv, records := newTestServer(t, nil, 2)

	rec := &model.TrackingRecord{TrackingID: service.NewTrackingID(), Recipient: "a@x.com"}
	require.NoError(t, records.Create(context.Background(), rec))

	for i := 0; i < 5; i++ {
		resp := get(t, srv, "/track/"+rec.TrackingID+".gif")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	got, err := records.GetByTrackingID(context.Background(), rec.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.OpenCount)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, srv, "/api/tracking").StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil, 100)
	srv.App().Get("/boom", func(*fiber.Ctx) error { return errors.New("db password leaked") })

	resp := get(t, srv, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal server error", body["message"])
}

func TestServer_RateLimitKeysOnPeerUnlessProxyTrusted(t *testing.T) {
	t.Run("untrusted peer", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, 1)

		assert.Equal(t, http.StatusOK, get(t, srv, "/api/tracking", "X-Forwarded-For", "198.51.100.1").StatusCode)
		assert.Equal(t, http.StatusTooManyRequests, get(t, srv, "/api/tracking", "X-Forwarded-For", "198.51.100.2").StatusCode)
	})

	t.Run("trusted proxy", func(t *testing.T) {
		// app.Test connections come from 0.0.0.0.
		srv, _ := newTestServer(t, nil, 1, "0.0.0.0")

		assert.Equal(t, http.StatusOK, get(t, srv, "/api/tracking", "X-Forwarded-For", "198.51.100.1").StatusCode)
		assert.Equal(t, http.StatusTooManyRequests, get(t, srv, "/api/tracking", "X-Forwarded-For", "198.51.100.1").StatusCode)
		assert.Equal(t, http.StatusOK, get(t, srv, "/api/tracking", "X-Forwarded-For", "198.51.100.2").StatusCode)
	})
}
