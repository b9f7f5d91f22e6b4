// Package web embeds the HTML views.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"stocksentiment/internal/aggregate"
	"stocksentiment/internal/stock"
)

//go:embed templates/*.html
var files embed.FS

// View names.
const (
	Dashboard  = "dashboard.html"
	StockInfo  = "stock_info.html"
	Comparison = "comparison.html"
	Chart      = "chart.html"
	Error      = "error.html"
)

// Funcs are available to every template.
var Funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed": func(v float64) string {
		if v > 0 {
			return fmt.Sprintf("+%.2f", v)
		}
		return fmt.Sprintf("%.2f", v)
	},
	"trend": func(v float64) string {
		switch {
		case v > 0:
			return "up"
		case v < 0:
			return "down"
		}
		return "flat"
	},
	"marketCap": func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%.0f", *v)
	},
	"sentimentClass": func(l stock.Label) string { return "sentiment-" + string(l) },
	"join":           strings.Join,
	"toJSON": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

// Templates parses all embedded views.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.html")
}

// ComparisonPage is the data of the comparison view.
type ComparisonPage struct {
	Symbols    []string
	Comparison aggregate.Comparison
}

// ErrorPage is the data of the error view.
type ErrorPage struct {
	Error   string
	Symbols []string
}
