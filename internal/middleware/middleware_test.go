// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
)

type stubResolver struct {
	account *model.Account
	err     error
}

func (s stubResolver) ResolveRequest(*http.Request) (*model.Account, error) {
	return s.account, s.err
}

func echoAccount() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a := GetAccount(r.Context()); a != nil {
			fmt.Fprint(w, a.Username)
			return
		}
		fmt.Fprint(w, "anonymous")
	})
}

func TestAuthenticator(t *testing.T) {
	alice := &model.Account{ID: "u1", Username: "alice", Role: model.RoleUser}

	rec := httptest.NewRecorder()
	Authenticator(stubResolver{account: alice})(echoAccount()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = httptest.NewRecorder()
	Authenticator(stubResolver{err: fmt.Errorf("no assertion: %w", core.ErrUnauthorized)})(echoAccount()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	OptionalAuth(stubResolver{err: fmt.Errorf("no identity assertion: %w", core.ErrUnauthorized)})(echoAccount()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestOptionalAuthSurfacesStoreFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	OptionalAuth(stubResolver{err: errors.New("read catalog: disk full")})(echoAccount()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEqual(t, "anonymous", rec.Body.String())
}

func readAll() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(readAll())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("well over eight bytes")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBodyLimitExcept(t *testing.T) {
	handler := BodyLimitExcept(8, "/api/upload")(readAll())
	body := strings.Repeat("x", 64)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimiterFallsBackWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit: redis_rate.Limit{Rate: 2, Burst: 2, Period: time.Hour},
	})
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestKeyByUserAndEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/videos/0b4c2f7e-9d1a-4c55-8f0e-2a3b4c5d6e7f/restore", nil)
	req.RemoteAddr = "192.0.2.10:4411"
	assert.Equal(t, "ip:192.0.2.10:/api/videos/{id}/restore", KeyByUserAndEndpoint(req))

	req = req.WithContext(WithAccount(req.Context(), &model.Account{ID: "u1"}))
	assert.Equal(t, "account:u1:/api/videos/{id}/restore", KeyByUserAndEndpoint(req))
}

func TestLocalBucketsRefillAndSweep(t *testing.T) {
	b := newBuckets()
	limit := redis_rate.Limit{Rate: 60, Burst: 1, Period: time.Minute}
	now := time.Now()

	res, err := b.take("k", limit, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	res, err = b.take("k", limit, now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	res, err = b.take("k", limit, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed)

	_, err = b.take("other", limit, now.Add(bucketSweepEvery+bucketIdleTTL))
	require.NoError(t, err)
	assert.NotContains(t, b.entries, "k")
	assert.Contains(t, b.entries, "other")

	_, err = b.take("k", redis_rate.Limit{}, now)
	assert.Error(t, err)
}
