package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:   "truckpark-test",
		Timeout:     5 * time.Second,
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "truckpark-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/api/interpreter")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `{"elements":[]}`, string(data))
}

func TestDownload_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL+"/api/interpreter?data=secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.NotContains(t, err.Error(), "secret")
}

func TestSyncFile_BadPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("siteId,lat\nKS1,38.9\n"))
	}))
	defer srv.Close()

	_, _, err := SyncFile(context.Background(), newTestFetcher(), srv.URL, filepath.Join(t.TempDir(), "missing", "tpims.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create file")
}

func TestDownloadIfChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, `"v1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, `"v1"`, etag)

	body, etag, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, `"v0"`)
	require.NoError(t, err)
	require.True(t, changed)
	defer body.Close() //nolint:errcheck
	assert.Equal(t, `"v2"`, etag)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "fresh", string(data))
}

func TestDownloadIfChanged_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, _, err := newTestFetcher().DownloadIfChanged(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestSyncFile(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	path := filepath.Join(t.TempDir(), "511.json")

	changed, n, err := SyncFile(context.Background(), f, srv.URL, path)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(15), n)

	etag, err := os.ReadFile(path + ".etag")
	require.NoError(t, err)
	assert.Equal(t, "\"abc\"\n", string(etag))

	changed, _, err = SyncFile(context.Background(), f, srv.URL, path)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSyncFile_IgnoresSidecarWithoutData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("If-None-Match"))
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path+".etag", []byte(`"stale"`), 0o644))

	changed, _, err := SyncFile(context.Background(), newTestFetcher(), srv.URL, path)
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = os.Stat(path + ".etag")
	assert.True(t, os.IsNotExist(err))
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_429SlowsHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	limiter := NewAdaptiveLimiter(100, 10)
	f := NewHTTPFetcher(HTTPOptions{
		MaxRetries:   3,
		BaseBackoff:  time.Millisecond,
		RateLimiters: map[string]*AdaptiveLimiter{u.Hostname(): limiter},
	})

	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()

	// Halved on the 429, then raised 20% on success.
	assert.InDelta(t, 60.0, float64(limiter.Limit()), 0.01)
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher().Download(ctx, srv.URL)
	require.Error(t, err)
}

func TestAdaptiveLimiter(t *testing.T) {
	tests := []struct {
		name  string
		steps func(a *AdaptiveLimiter)
		want  rate.Limit
	}{
		{name: "success raises", steps: func(a *AdaptiveLimiter) { a.OnSuccess() }, want: 12},
		{name: "429 halves", steps: func(a *AdaptiveLimiter) { a.OnRateLimit() }, want: 5},
		{
			name: "capped at 2x",
			steps: func(a *AdaptiveLimiter) {
				for range 20 {
					a.OnSuccess()
				}
			},
			want: 20,
		},
		{
			name: "floored at quarter",
			steps: func(a *AdaptiveLimiter) {
				for range 10 {
					a.OnRateLimit()
				}
			},
			want: 2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdaptiveLimiter(10, 1)
			tt.steps(a)
			assert.InDelta(t, float64(tt.want), float64(a.Limit()), 0.001)
		})
	}
}

func TestAdaptiveLimiter_WaitCancelled(t *testing.T) {
	a := NewAdaptiveLimiter(0.001, 1)
	require.NoError(t, a.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, a.Wait(ctx))
}

func TestDefaultRateLimiters(t *testing.T) {
	limiters := DefaultRateLimiters()
	require.Contains(t, limiters, "overpass-api.de")
	assert.Equal(t, rate.Limit(1), limiters["overpass-api.de"].Limit())
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "truckpark-cli/1.0", f.opts.UserAgent)
	assert.Equal(t, 3, f.opts.MaxRetries)
	assert.Equal(t, 5*time.Minute, f.opts.Timeout)
	assert.Nil(t, f.limiterFor("http://example.com/x"))
	assert.NotNil(t, f.limiterFor("https://overpass-api.de/api/interpreter"))
	assert.Nil(t, f.limiterFor("://bad"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://overpass-api.de/api/interpreter", redact("https://overpass-api.de/api/interpreter?data=%5Bout%3Ajson%5D"))
	assert.Equal(t, "://bad", redact("://bad"))
}
