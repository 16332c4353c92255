package http

import (
	"fmt"
	"net/http"
	"strings"

	"bilancio/internal/currency"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// currencyParam reads the optional ?currency= display currency. An empty
// value means the base currency; anything not configured is rejected.
func currencyParam(r *http.Request, configured []currency.Currency) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if code == "" {
		return "", nil
	}
	for _, c := range configured {
		if c.Code == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", code)
}
