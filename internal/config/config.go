package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/currency"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string // extra CIDRs allowed to set X-Forwarded-For

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP, optional: an empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncInterval time.Duration

	// Exchange rates
	RatesAPIURL   string
	RatesCacheTTL time.Duration
	RatesTimeout  time.Duration
	BaseCurrency  string
	Currencies    []currency.Currency

	// Categories offered for data entry, in display order
	IncomeCategories  []string
	ExpenseCategories []string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bilancio"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "periods_saved"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Periods"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", time.Hour),

		RatesAPIURL:   getEnv("RATES_API_URL", currency.DefaultRatesURL),
		RatesCacheTTL: getEnvDuration("RATES_CACHE_TTL", time.Hour),
		RatesTimeout:  getEnvDuration("RATES_TIMEOUT", 5*time.Second),
		BaseCurrency:  strings.ToUpper(getEnv("BASE_CURRENCY", "TND")),
		Currencies:    parseCurrencies(getEnv("CURRENCIES", "TND:TND,USD:$,EUR:€")),

		IncomeCategories:  getEnvList("INCOME_CATEGORIES", core.DefaultIncomeCategories),
		ExpenseCategories: getEnvList("EXPENSE_CATEGORIES", core.DefaultExpenseCategories),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Categories returns the configured category sets.
func (c *Config) Categories() core.Categories {
	return core.Categories{
		Incomes:  append([]string(nil), c.IncomeCategories...),
		Expenses: append([]string(nil), c.ExpenseCategories...),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	// Validate worker configuration
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Validate exchange rates
	if parsedURL, err := url.Parse(c.RatesAPIURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid rates API URL '%s': must be an absolute http(s) URL", c.RatesAPIURL))
	}
	if c.RatesCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must not be negative", c.RatesCacheTTL))
	}
	if c.RatesTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be positive", c.RatesTimeout))
	}

	if len(c.Currencies) == 0 {
		errors = append(errors, "at least one currency must be configured")
	}
	for _, cur := range c.Currencies {
		if !isCurrencyCode(cur.Code) {
			errors = append(errors, fmt.Sprintf("invalid currency code '%s': must be three letters", cur.Code))
		}
	}
	if !slices.ContainsFunc(c.Currencies, func(cur currency.Currency) bool { return cur.Code == c.BaseCurrency }) {
		errors = append(errors, fmt.Sprintf("base currency '%s' is not among the configured currencies", c.BaseCurrency))
	}

	// Validate categories
	for kind, list := range map[string][]string{"income": c.IncomeCategories, "expense": c.ExpenseCategories} {
		if len(list) == 0 {
			errors = append(errors, fmt.Sprintf("at least one %s category must be configured", kind))
		}
		if dup, ok := firstDuplicate(list); ok {
			errors = append(errors, fmt.Sprintf("duplicate %s category '%s'", kind, dup))
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// parseCurrencies reads "CODE:SYMBOL" pairs separated by commas. A bare code
// is its own symbol.
func parseCurrencies(s string) []currency.Currency {
	var out []currency.Currency
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, symbol, ok := strings.Cut(part, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		symbol = strings.TrimSpace(symbol)
		if !ok || symbol == "" {
			symbol = code
		}
		out = append(out, currency.Currency{Code: code, Symbol: symbol})
	}
	return out
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func firstDuplicate(list []string) (string, bool) {
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			return v, true
		}
		seen[v] = struct{}{}
	}
	return "", false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
