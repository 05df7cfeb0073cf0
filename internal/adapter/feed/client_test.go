package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `<?xml version="1.0"?><current_status><updated><datetime>2023-10-01T12:00:00+00:00</datetime></updated></current_status>`

func testPolicy() retry.Policy {
	return retry.Policy{Timeout: time.Second, Backoff: time.Millisecond}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, testPolicy(), slog.Default()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestFetch_RetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, testPolicy(), slog.Default()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_GivesUpAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testPolicy(), slog.Default()).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testPolicy(), slog.Default()).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_OversizeBodyRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testPolicy(), slog.Default())
	c.maxBody = int64(len(body)) - 1

	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "feed exceeds")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_BodyAtLimitAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testPolicy(), slog.Default())
	c.maxBody = int64(len(body))

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestFetch_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	policy := retry.Policy{Timeout: 50 * time.Millisecond, Backoff: time.Millisecond}
	start := time.Now()
	_, err := NewClient(srv.URL, policy, slog.Default()).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Less(t, time.Since(start), time.Second)
}
