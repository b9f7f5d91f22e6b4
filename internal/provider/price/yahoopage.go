package price

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stocksentiment/internal/httpx"
	"stocksentiment/internal/stock"
)

const defaultQuoteURL = "https://finance.yahoo.com/quote/"

var moneyPattern = regexp.MustCompile(`^\d+\.\d{2}`)

// YahooPage scrapes the rendered quote page. Markup changes often, so the
// price is located by several strategies, most specific first.
type YahooPage struct {
	baseURL string
	client  *httpx.Client
	now     func() time.Time
}

// PageOption configures a YahooPage.
type PageOption func(*YahooPage)

// WithPageBaseURL overrides the quote page base; the symbol is appended to it.
func WithPageBaseURL(u string) PageOption {
	return func(p *YahooPage) { p.baseURL = u }
}

// WithPageClock sets the clock used for the snapshot timestamp.
func WithPageClock(now func() time.Time) PageOption {
	return func(p *YahooPage) { p.now = now }
}

func NewYahooPage(client *httpx.Client, opts ...PageOption) *YahooPage {
	p := &YahooPage{baseURL: defaultQuoteURL, client: client, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *YahooPage) Name() string { return "yahoo_page" }

func (p *YahooPage) Fetch(ctx context.Context, symbol string) (stock.PriceSnapshot, error) {
	doc, err := p.client.GetDocument(ctx, p.baseURL+url.PathEscape(symbol), nil)
	if err != nil {
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo page %s: %w", symbol, err)
	}
	return p.parse(doc, symbol)
}

func (p *YahooPage) parse(doc *goquery.Document, symbol string) (stock.PriceSnapshot, error) {
	price, ok := findPrice(doc, symbol)
	if !ok {
		return stock.PriceSnapshot{}, fmt.Errorf("yahoo page %s: could not find price data", symbol)
	}

	change := parseNumber(streamer(doc, symbol, "regularMarketChange").Text())
	pct := parseNumber(streamer(doc, symbol, "regularMarketChangePercent").Text())
	prev := price - change
	if change == 0 && pct != 0 && pct != -100 {
		prev = price / (1 + pct/100)
	}
	snap := stock.PriceSnapshot{
		CurrentPrice:  price,
		PreviousClose: prev,
		CompanyName:   companyName(doc, symbol),
		Timestamp:     p.now().UTC().Format(time.RFC3339),
	}
	return snap.WithChange(), nil
}

type priceStrategy func(doc *goquery.Document, symbol string) *goquery.Selection

var priceStrategies = []priceStrategy{
	func(doc *goquery.Document, symbol string) *goquery.Selection {
		return streamer(doc, symbol, "regularMarketPrice")
	},
	func(doc *goquery.Document, _ string) *goquery.Selection {
		return doc.Find(`span[data-reactid*="price"]`)
	},
	func(doc *goquery.Document, _ string) *goquery.Selection {
		return doc.Find("span[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			return strings.Contains(class, "price") ||
				strings.Contains(class, "Fw(b)") ||
				strings.Contains(class, "regularMarketPrice")
		})
	},
	func(doc *goquery.Document, _ string) *goquery.Selection {
		return doc.Find(`fin-streamer[data-test="qsp-price"]`)
	},
}

// findPrice walks the strategies and returns the first parseable price, then
// falls back to the first span whose text looks like an amount of money.
func findPrice(doc *goquery.Document, symbol string) (float64, bool) {
	for _, strategy := range priceStrategies {
		sel := strategy(doc, symbol).First()
		if sel.Length() == 0 {
			continue
		}
		if v, err := strconv.ParseFloat(cleanMoney(sel.Text()), 64); err == nil {
			return v, true
		}
	}

	var (
		price float64
		found bool
	)
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := moneyPattern.FindString(cleanMoney(s.Text()))
		if m == "" {
			return true
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return true
		}
		price, found = v, true
		return false
	})
	return price, found
}

func streamer(doc *goquery.Document, symbol, field string) *goquery.Selection {
	return doc.Find(fmt.Sprintf(`fin-streamer[data-symbol=%q][data-field=%q]`, symbol, field)).First()
}

func companyName(doc *goquery.Document, symbol string) string {
	h1 := doc.Find(`h1[data-reactid*="title"]`).First()
	if h1.Length() == 0 {
		h1 = doc.Find("h1").First()
	}
	if h1.Length() == 0 {
		return symbol
	}
	name, _, _ := strings.Cut(h1.Text(), "(")
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return symbol
}

func cleanMoney(s string) string {
	return strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
}

// parseNumber reads values like "+1.23", "(-0.45%)" or "1,024.50"; anything
// unparseable is 0.
func parseNumber(s string) float64 {
	s = strings.NewReplacer(",", "", "+", "", "(", "", ")", "", "%", "").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
