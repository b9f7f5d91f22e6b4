// Package stock holds the data model shared by the fetch, score and cache stages.
package stock

import "time"

// MaxHeadlines caps the number of headlines kept for a symbol.
const MaxHeadlines = 15

// Label is an overall sentiment classification.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// PriceSnapshot is the normalized quote returned by every price source.
// MarketCap is nil when the source does not report it.
type PriceSnapshot struct {
	CurrentPrice  float64  `json:"current_price"`
	PreviousClose float64  `json:"previous_close"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	CompanyName   string   `json:"company_name"`
	MarketCap     *float64 `json:"market_cap"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Volume        int64    `json:"volume"`
	Timestamp     string   `json:"timestamp"`
}

// WithChange derives Change and ChangePercent from CurrentPrice and
// PreviousClose, then rounds the money fields to cents.
// ChangePercent is 0 when PreviousClose is 0.
func (p PriceSnapshot) WithChange() PriceSnapshot {
	change := p.CurrentPrice - p.PreviousClose
	pct := 0.0
	if p.PreviousClose != 0 {
		pct = change / p.PreviousClose * 100
	}
	p.Change = Round(change, 2)
	p.ChangePercent = Round(pct, 2)
	p.CurrentPrice = Round(p.CurrentPrice, 2)
	p.PreviousClose = Round(p.PreviousClose, 2)
	return p
}

// SentimentSummary aggregates per-headline polarity.
type SentimentSummary struct {
	OverallSentiment Label   `json:"overall_sentiment"`
	SentimentScore   float64 `json:"sentiment_score"`
	PositiveCount    int     `json:"positive_count"`
	NegativeCount    int     `json:"negative_count"`
	NeutralCount     int     `json:"neutral_count"`
}

// NoDataSummary is returned when there was nothing to score.
func NoDataSummary() SentimentSummary {
	return SentimentSummary{OverallSentiment: Neutral, NeutralCount: 1}
}

// StockResult is the unit the pipeline returns and the cache stores.
// Treat it as immutable once built.
type StockResult struct {
	Symbol            string           `json:"symbol"`
	PriceData         PriceSnapshot    `json:"price_data"`
	NewsHeadlines     []string         `json:"news_headlines"`
	SentimentAnalysis SentimentSummary `json:"sentiment_analysis"`
	TotalArticles     int              `json:"total_articles"`
}

// Entry is the persisted cache record for one symbol.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Data      StockResult `json:"data"`
}
