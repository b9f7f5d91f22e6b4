package stock

import (
	"fmt"
	"regexp"
	"strings"
)

// Tickers are letters and digits; share classes use '.' or '-' (BRK.B, BRK-B).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+([.\-][A-Z0-9]+)?$`)

const maxSymbolLen = 12

// Canonical upper-cases and trims a symbol and rejects malformed input.
func Canonical(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || len(s) > maxSymbolLen || !symbolPattern.MatchString(s) {
		return s, &SentimentError{
			Symbol: s,
			Msg:    fmt.Sprintf("Invalid stock symbol %q", raw),
			Err:    ErrInvalidSymbol,
		}
	}
	return s, nil
}
