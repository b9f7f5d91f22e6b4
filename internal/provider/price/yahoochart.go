package price

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"stocksentiment/internal/httpx"
	"stocksentiment/internal/stock"
)

const defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooChart reads the structured chart API.
type YahooChart struct {
	baseURL string
	client  *httpx.Client
	now     func() time.Time
}

// ChartOption configures a YahooChart.
type ChartOption func(*YahooChart)

// WithChartBaseURL overrides the API base; the symbol is appended to it.
func WithChartBaseURL(u string) ChartOption {
	return func(c *YahooChart) { c.baseURL = u }
}

// WithChartClock sets the clock used when the payload carries no bar time.
func WithChartClock(now func() time.Time) ChartOption {
	return func(c *YahooChart) { c.now = now }
}

func NewYahooChart(client *httpx.Client, opts ...ChartOption) *YahooChart {
	c := &YahooChart{baseURL: defaultChartURL, client: client, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *YahooChart) Name() string { return "yahoo_chart" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		LongName           string   `json:"longName"`
		ShortName          string   `json:"shortName"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		PreviousClose      *float64 `json:"previousClose"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
		DayHigh            *float64 `json:"regularMarketDayHigh"`
		DayLow             *float64 `json:"regularMarketDayLow"`
		Volume             *float64 `json:"regularMarketVolume"`
		MarketTime         int64    `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *YahooChart) Fetch(ctx context.Context, symbol string) (stock.PriceSnapshot, error) {
	var body chartResponse
	err := c.client.GetJSON(ctx, c.baseURL+url.PathEscape(symbol), url.Values{
		"range":    {"1d"},
		"interval": {"1d"},
	}, &body)
	if err != nil {
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := body.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return stock.PriceSnapshot{}, fmt.Errorf("yahoo chart %s: %s: %w", symbol, e.Description, stock.ErrNotFound)
		}
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 {
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo chart %s: empty result: %w", symbol, stock.ErrNotFound)
	}
	return c.snapshot(symbol, body.Chart.Result[0])
}

func (c *YahooChart) snapshot(symbol string, r chartResult) (stock.PriceSnapshot, error) {
	meta := r.Meta
	var open, high, low, closing, volume *float64
	var barTime int64
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		open, high, low = lastValue(q.Open), lastValue(q.High), lastValue(q.Low)
		closing, volume = lastValue(q.Close), lastValue(q.Volume)
	}
	if n := len(r.Timestamp); n > 0 {
		barTime = r.Timestamp[n-1]
	}

	current := firstOf(meta.RegularMarketPrice, closing)
	if current == nil {
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo chart %s: no price data, symbol may be delisted: %w", symbol, stock.ErrNotFound)
	}
	prev := firstOf(meta.PreviousClose, meta.ChartPreviousClose, closing, current)

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}

	ts := c.now().UTC()
	switch {
	case barTime > 0:
		ts = time.Unix(barTime, 0).UTC()
	case meta.MarketTime > 0:
		ts = time.Unix(meta.MarketTime, 0).UTC()
	}

	snap := stock.PriceSnapshot{
		CurrentPrice:  *current,
		PreviousClose: *prev,
		CompanyName:   name,
		Open:          stock.Round(valueOr(open, 0), 2),
		High:          stock.Round(valueOr(firstOf(high, meta.DayHigh), 0), 2),
		Low:           stock.Round(valueOr(firstOf(low, meta.DayLow), 0), 2),
		Volume:        int64(valueOr(firstOf(volume, meta.Volume), 0)),
		Timestamp:     ts.Format(time.RFC3339),
	}
	return snap.WithChange(), nil
}

func lastValue(vs []*float64) *float64 {
	for i := len(vs) - 1; i >= 0; i-- {
		if vs[i] != nil {
			return vs[i]
		}
	}
	return nil
}

func firstOf(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil && *v != 0 {
			return v
		}
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
