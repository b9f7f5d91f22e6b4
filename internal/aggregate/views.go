package aggregate

import (
	"fmt"
	"strings"

	"stocksentiment/internal/stock"
)

// Batch bounds.
const (
	MinBatch   = 2
	MaxCompare = 10
	MaxChart   = 20
)

// SymbolError is a per-symbol failure inside a batch view.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type BatchSummary struct {
	TotalRequested int `json:"total_requested"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}

// Comparison is the side-by-side view of several symbols.
type Comparison struct {
	Stocks  []stock.StockResult `json:"stocks"`
	Errors  []SymbolError       `json:"errors"`
	Summary BatchSummary        `json:"summary"`
}

// ChartPoint is one symbol on the price/sentiment chart.
type ChartPoint struct {
	Symbol         string      `json:"symbol"`
	Price          float64     `json:"price"`
	ChangePercent  float64     `json:"change_percent"`
	SentimentScore float64     `json:"sentiment_score"`
	SentimentLabel stock.Label `json:"sentiment_label"`
	CompanyName    string      `json:"company_name"`
}

type Chart struct {
	Points  []ChartPoint  `json:"chart_data"`
	Errors  []SymbolError `json:"errors"`
	Symbols []string      `json:"symbols"`
}

// CheckBatchSize validates the number of requested symbols. what names the
// view in the error text ("comparison", "chart").
func CheckBatchSize(n, maxN int, what string) error {
	switch {
	case n > maxN:
		return fmt.Errorf("Maximum %d stocks allowed for %s", maxN, what)
	case n < MinBatch:
		return fmt.Errorf("At least %d stocks required for %s", MinBatch, what)
	}
	return nil
}

// SplitSymbols flattens repeated and comma separated symbol parameters,
// dropping blanks.
func SplitSymbols(params []string) []string {
	var out []string
	for _, p := range params {
		for _, s := range strings.Split(p, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func errorsOf(outcomes []Outcome) []SymbolError {
	out := make([]SymbolError, 0)
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, SymbolError{Symbol: o.Symbol, Error: o.Err.Error()})
		}
	}
	return out
}

// Compare builds the comparison view from batch outcomes.
func Compare(outcomes []Outcome) Comparison {
	c := Comparison{Stocks: make([]stock.StockResult, 0, len(outcomes)), Errors: errorsOf(outcomes)}
	for _, o := range outcomes {
		if o.Result != nil {
			c.Stocks = append(c.Stocks, *o.Result)
		}
	}
	c.Summary = BatchSummary{
		TotalRequested: len(outcomes),
		Successful:     len(c.Stocks),
		Failed:         len(c.Errors),
	}
	return c
}

// ChartOf builds the chart view from batch outcomes.
func ChartOf(outcomes []Outcome) Chart {
	ch := Chart{Points: make([]ChartPoint, 0, len(outcomes)), Errors: errorsOf(outcomes)}
	for _, o := range outcomes {
		ch.Symbols = append(ch.Symbols, o.Symbol)
		if o.Result == nil {
			continue
		}
		r := o.Result
		ch.Points = append(ch.Points, ChartPoint{
			Symbol:         r.Symbol,
			Price:          r.PriceData.CurrentPrice,
			ChangePercent:  r.PriceData.ChangePercent,
			SentimentScore: r.SentimentAnalysis.SentimentScore,
			SentimentLabel: r.SentimentAnalysis.OverallSentiment,
			CompanyName:    r.PriceData.CompanyName,
		})
	}
	return ch
}
