package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func rateServer(t *testing.T, status int, body string) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if r.URL.Path != "/TND" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRate_SameCurrencyMakesNoCall(t *testing.T) {
	// unroutable address: any request would fail
	c := NewConverter("http://127.0.0.1:1")
	res := c.Rate(context.Background(), "TND", "tnd")
	assert.True(t, res.Rate.Equal(decimal.NewFromInt(1)))
	assert.False(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Warning())
}

func TestRate_Success(t *testing.T) {
	srv, calls := rateServer(t, http.StatusOK, `{"base":"TND","rates":{"USD":0.32,"EUR":0.30}}`)
	c := NewConverter(srv.URL)

	res := c.Rate(context.Background(), "TND", "USD")
	require.NoError(t, res.Err)
	assert.False(t, res.Fallback)
	assert.True(t, res.Rate.Equal(decimal.RequireFromString("0.32")))

	// cached table serves the second lookup
	res = c.Rate(context.Background(), "TND", "EUR")
	assert.True(t, res.Rate.Equal(decimal.RequireFromString("0.30")))
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))
}

func TestRate_FallbackCases(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		target string
	}{
		{"server error", http.StatusInternalServerError, `{}`, "USD"},
		{"missing target", http.StatusOK, `{"rates":{"EUR":0.3}}`, "USD"},
		{"bad body", http.StatusOK, `not json`, "USD"},
		{"zero rate", http.StatusOK, `{"rates":{"USD":0}}`, "USD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := rateServer(t, tc.status, tc.body)
			res := NewConverter(srv.URL).Rate(context.Background(), "TND", tc.target)
			assert.True(t, res.Fallback)
			assert.True(t, res.Rate.Equal(decimal.NewFromInt(1)))
			assert.ErrorIs(t, res.Err, core.ErrConversionUnavailable)
			assert.Contains(t, res.Warning(), "TND->USD")
		})
	}
}

func TestRate_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewConverter(url).Rate(context.Background(), "TND", "EUR")
	assert.True(t, res.Fallback)
	assert.True(t, res.Rate.Equal(decimal.NewFromInt(1)))
}

func TestRate_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"USD":0.32}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewConverter(srv.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan Result, 1)
	go func() { first <- c.Rate(firstCtx, "TND", "USD") }()
	<-started

	second := make(chan Result, 1)
	go func() { second <- c.Rate(context.Background(), "TND", "USD") }()

	// let the second caller join the in-flight lookup, then drop the first
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for _, ch := range []chan Result{first, second} {
		select {
		case res := <-ch:
			assert.False(t, res.Fallback, "cancelling one caller must not fail the shared lookup")
			assert.True(t, res.Rate.Equal(decimal.RequireFromString("0.32")))
		case <-time.After(5 * time.Second):
			t.Fatal("rate lookup did not return")
		}
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}
