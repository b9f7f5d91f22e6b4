package price_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stocksentiment/internal/httpx"
	"stocksentiment/internal/provider/price"
)

func pageSource(t *testing.T, html string) *price.YahooPage {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote/AAPL" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	now := time.Date(2026, 10, 14, 15, 4, 5, 0, time.UTC)
	return price.NewYahooPage(httpx.New(2*time.Second),
		price.WithPageBaseURL(srv.URL+"/quote/"),
		price.WithPageClock(func() time.Time { return now }))
}

func TestYahooPage_StreamerFields(t *testing.T) {
	t.Parallel()

	// Arrange
	src := pageSource(t, `<html><body>
		<h1>Apple Inc. (AAPL)</h1>
		<span class="price">1.00</span>
		<fin-streamer data-symbol="AAPL" data-field="regularMarketPrice">1,190.50</fin-streamer>
		<fin-streamer data-symbol="AAPL" data-field="regularMarketChange">+2.50</fin-streamer>
		<fin-streamer data-symbol="AAPL" data-field="regularMarketChangePercent">(+0.21%)</fin-streamer>
	</body></html>`)

	// Act
	got, err := src.Fetch(t.Context(), "AAPL")

	// Assert
	require.NoError(t, err)
	require.InDelta(t, 1190.5, got.CurrentPrice, 1e-9)
	require.InDelta(t, 1188.0, got.PreviousClose, 1e-9)
	require.InDelta(t, 2.5, got.Change, 1e-9)
	require.InDelta(t, 0.21, got.ChangePercent, 1e-9)
	require.Equal(t, "Apple Inc.", got.CompanyName)
	require.Equal(t, "2026-10-14T15:04:05Z", got.Timestamp)
}

func TestYahooPage_SelectorFallbacks(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		html string
		want float64
	}{
		"reactid": {
			html: `<span data-reactid="52">x</span><span data-reactid="price-14">101.25</span>`,
			want: 101.25,
		},
		"class": {
			html: `<span class="Trsdu(0.3s) Fw(b) Fz(36px)">$2,345.67</span>`,
			want: 2345.67,
		},
		"data-test": {
			html: `<fin-streamer data-test="qsp-price">77.10</fin-streamer>`,
			want: 77.10,
		},
		"money pattern": {
			html: `<span>Markets</span><span>$42.42 USD</span><span>99.99</span>`,
			want: 42.42,
		},
		"unparseable strategy falls through": {
			html: `<span class="price">n/a</span><span>12.34</span>`,
			want: 12.34,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			src := pageSource(t, "<html><body>"+tc.html+"</body></html>")

			got, err := src.Fetch(t.Context(), "AAPL")

			require.NoError(t, err)
			require.InDelta(t, tc.want, got.CurrentPrice, 1e-9)
			require.Zero(t, got.Change)
			require.Zero(t, got.ChangePercent)
			require.Equal(t, "AAPL", got.CompanyName)
		})
	}
}

func TestYahooPage_PercentOnly(t *testing.T) {
	t.Parallel()

	src := pageSource(t, `<fin-streamer data-symbol="AAPL" data-field="regularMarketPrice">110.00</fin-streamer>
		<fin-streamer data-symbol="AAPL" data-field="regularMarketChange">--</fin-streamer>
		<fin-streamer data-symbol="AAPL" data-field="regularMarketChangePercent">+10.00%</fin-streamer>`)

	got, err := src.Fetch(t.Context(), "AAPL")

	require.NoError(t, err)
	require.InDelta(t, 100.0, got.PreviousClose, 1e-9)
	require.InDelta(t, 10.0, got.Change, 1e-9)
	require.InDelta(t, 10.0, got.ChangePercent, 1e-9)
}

func TestYahooPage_NoPrice(t *testing.T) {
	t.Parallel()

	src := pageSource(t, `<html><body><h1>Lookup</h1><span>nothing here</span></body></html>`)

	_, err := src.Fetch(t.Context(), "AAPL")
	require.ErrorContains(t, err, "could not find price data")
}
