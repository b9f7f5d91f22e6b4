package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"stocksentiment/internal/httpx"
)

const (
	defaultYahooURL  = "https://finance.yahoo.com/quote/"
	defaultGoogleURL = "https://news.google.com/search"

	perSourceMax   = 10
	fallbackMax    = 5
	minHeadlineLen = 10
	minAnchorLen   = 20
)

// YahooNews scrapes the quote news tab.
type YahooNews struct {
	baseURL string
	client  *httpx.Client
}

func NewYahooNews(client *httpx.Client, baseURL string) *YahooNews {
	if baseURL == "" {
		baseURL = defaultYahooURL
	}
	return &YahooNews{baseURL: baseURL, client: client}
}

func (y *YahooNews) Name() string { return "yahoo_news" }

func (y *YahooNews) Headlines(ctx context.Context, symbol string) ([]string, error) {
	doc, err := y.client.GetDocument(ctx, y.baseURL+url.PathEscape(symbol)+"/news", nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo news %s: %w", symbol, err)
	}
	return yahooHeadlines(doc, symbol), nil
}

func yahooHeadlines(doc *goquery.Document, symbol string) []string {
	var out []string
	items := doc.Find("h3[class], h4[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return strings.Contains(strings.ToLower(class), "headline")
	})
	items.Slice(0, min(perSourceMax, items.Length())).Each(func(_ int, s *goquery.Selection) {
		if t := text(s); utf8.RuneCountInString(t) > minHeadlineLen {
			out = append(out, t)
		}
	})
	if len(out) > 0 {
		return out
	}

	keywords := []string{strings.ToLower(symbol), "stock", "shares"}
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := text(s)
		if utf8.RuneCountInString(t) <= minAnchorLen {
			return true
		}
		lower := strings.ToLower(t)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				out = append(out, t)
				break
			}
		}
		return len(out) < fallbackMax
	})
	return out
}

// GoogleNews scrapes the news search results page.
type GoogleNews struct {
	baseURL string
	client  *httpx.Client
}

func NewGoogleNews(client *httpx.Client, baseURL string) *GoogleNews {
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	return &GoogleNews{baseURL: baseURL, client: client}
}

func (g *GoogleNews) Name() string { return "google_news" }

func (g *GoogleNews) Headlines(ctx context.Context, symbol string) ([]string, error) {
	doc, err := g.client.GetDocument(ctx, g.baseURL, url.Values{
		"q":    {symbol + " stock"},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	})
	if err != nil {
		return nil, fmt.Errorf("google news %s: %w", symbol, err)
	}
	return googleHeadlines(doc), nil
}

func googleHeadlines(doc *goquery.Document) []string {
	var out []string
	doc.Find("article").EachWithBreak(func(i int, article *goquery.Selection) bool {
		if i >= perSourceMax {
			return false
		}
		title := article.Find("h3").First()
		if title.Length() == 0 {
			title = article.Find("h4").First()
		}
		if title.Length() == 0 {
			return true
		}
		if t := text(title); utf8.RuneCountInString(t) > minHeadlineLen {
			out = append(out, t)
		}
		return true
	})
	return out
}

// text returns the selection text with whitespace collapsed.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
