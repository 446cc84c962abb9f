package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/benchscrape/internal/config"
)

func testFetcher(t *testing.T, retries int) (*HTTPFetcher, *[]time.Duration) {
	t.Helper()
	cfg, err := config.Default(config.PapersWithCode)
	require.NoError(t, err)
	cfg.MaxRetries = retries
	cfg.RequestDelay = 100 * time.Millisecond
	cfg.RequestTimeout = 5 * time.Second

	f := NewHTTPFetcher(cfg, log.New(io.Discard))
	var waits []time.Duration
	f.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return f, &waits
}

func TestHTTPFetcherSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		assert.Equal(t, "en-US,en;q=0.5", r.Header.Get("Accept-Language"))
		w.Write([]byte("<html>ok</html>"))
	}))
	t.Cleanup(server.Close)

	f, _ := testFetcher(t, 1)
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestHTTPFetcherNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	f, waits := testFetcher(t, 3)
	_, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, *waits)
}

func TestHTTPFetcherRetriesWithLinearDelay(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("third time lucky"))
	}))
	t.Cleanup(server.Close)

	f, waits := testFetcher(t, 3)
	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", string(body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *waits)
}

func TestHTTPFetcherGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	f, _ := testFetcher(t, 2)
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcherEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	f, _ := testFetcher(t, 1)
	_, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestPacer(t *testing.T) {
	p := NewPacer(0, 0, 1)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}

	var jitters []time.Duration
	p = NewPacer(0, 50*time.Millisecond, 1)
	p.sleep = func(_ context.Context, d time.Duration) error {
		jitters = append(jitters, d)
		return nil
	}
	require.NoError(t, p.Wait(context.Background()))
	require.Len(t, jitters, 1)
	assert.Less(t, jitters[0], 50*time.Millisecond)

	var nilPacer *Pacer
	assert.NoError(t, nilPacer.Wait(context.Background()))
}
