// Package sentiment reduces a set of headlines to an aggregate score and label.
package sentiment

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonreiter/govader"

	"stocksentiment/internal/stock"
)

// Threshold separates positive and negative polarity from neutral.
const Threshold = 0.1

const noNewsPrefix = "No recent news found for "

// Polarizer scores one text in [-1, 1].
type Polarizer interface {
	Polarity(text string) (float64, error)
}

// PolarizerFunc adapts a function to Polarizer.
type PolarizerFunc func(text string) (float64, error)

func (f PolarizerFunc) Polarity(text string) (float64, error) { return f(text) }

// Vader uses the VADER compound score.
type Vader struct {
	sia *govader.SentimentIntensityAnalyzer
}

func NewVader() *Vader {
	return &Vader{sia: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Polarity(text string) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vader: %v", r)
		}
	}()
	return v.sia.PolarityScores(text).Compound, nil
}

// Scorer aggregates headline polarities.
type Scorer struct {
	pol Polarizer
	log *slog.Logger
}

func NewScorer(pol Polarizer, logger *slog.Logger) *Scorer {
	if pol == nil {
		pol = NewVader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{pol: pol, log: logger.With("component", "sentiment")}
}

// Score classifies each headline and averages the polarities that could be
// computed. A headline that fails to score counts as neutral and does not
// contribute to the mean.
func (s *Scorer) Score(headlines []string) stock.SentimentSummary {
	if noData(headlines) {
		return stock.NoDataSummary()
	}

	var (
		sum     float64
		scored  int
		summary stock.SentimentSummary
	)
	for _, h := range headlines {
		p, err := s.pol.Polarity(h)
		if err != nil {
			s.log.Error("scoring headline failed", "headline", h, "error", err)
			summary.NeutralCount++
			continue
		}
		p = max(-1, min(1, p))
		sum += p
		scored++
		switch Classify(p) {
		case stock.Positive:
			summary.PositiveCount++
		case stock.Negative:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
	}

	avg := 0.0
	if scored > 0 {
		avg = sum / float64(scored)
	}
	summary.SentimentScore = stock.Round(avg, 3)
	summary.OverallSentiment = Classify(avg)
	return summary
}

// Classify applies the ±Threshold rule.
func Classify(p float64) stock.Label {
	switch {
	case p > Threshold:
		return stock.Positive
	case p < -Threshold:
		return stock.Negative
	default:
		return stock.Neutral
	}
}

func noData(headlines []string) bool {
	if len(headlines) == 0 {
		return true
	}
	return len(headlines) == 1 && strings.HasPrefix(headlines[0], noNewsPrefix)
}
