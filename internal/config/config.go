package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	BackendGmail  = "gmail"
	BackendMemory = "memory"

	FormatText = "text"
	FormatJSON = "json"
	FormatRaw  = "raw"
)

type Config struct {
	// Mailbox backend selection
	MailBackend      string
	MemoryMailboxDir string

	// Gmail OAuth
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Scan
	Queries            []string
	MaxMessages        int
	MaxResultsPerQuery int
	Workers            int
	MerchantRulesFile  string
	RequireDollarSign  bool

	// Report
	ReportFormat string
	BarWidth     int

	// AMQP publication, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		MailBackend:      getEnv("MAIL_BACKEND", BackendGmail),
		MemoryMailboxDir: getEnv("MEMORY_MAILBOX_DIR", "./testdata/mailbox"),

		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		Queries:            getEnvList("SCAN_QUERIES", ";"),
		MaxMessages:        getEnvInt("SCAN_MAX_MESSAGES", 150),
		MaxResultsPerQuery: getEnvInt("SCAN_MAX_RESULTS_PER_QUERY", 200),
		Workers:            getEnvInt("SCAN_WORKERS", 4),
		MerchantRulesFile:  getEnv("MERCHANT_RULES_FILE", ""),
		RequireDollarSign:  getEnvBool("EXTRACT_REQUIRE_DOLLAR_SIGN", false),

		ReportFormat: getEnv("REPORT_FORMAT", FormatText),
		BarWidth:     getEnvInt("BAR_WIDTH", 40),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "subscan"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "scan.report"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendGmail, BackendMemory}
	if !slices.Contains(validBackends, c.MailBackend) {
		errors = append(errors, fmt.Sprintf("invalid mail backend '%s': must be one of %v", c.MailBackend, validBackends))
	}

	if c.MailBackend == BackendMemory {
		if c.MemoryMailboxDir == "" {
			errors = append(errors, "memory mailbox directory cannot be empty when using memory backend")
		} else if info, err := os.Stat(c.MemoryMailboxDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("memory mailbox directory does not exist: %s", c.MemoryMailboxDir))
		}
	}

	if c.MailBackend == BackendGmail {
		// Must have either client file or JSON
		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for gmail backend")
		}

		// Must have either token file or JSON
		hasTokenFile := c.GoogleOAuthTokenFile != ""
		hasTokenJSON := c.GoogleOAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for gmail backend")
		}

		if hasClientFile && !hasClientJSON {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile && !hasTokenJSON {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	if c.MerchantRulesFile != "" {
		if _, err := os.Stat(c.MerchantRulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("merchant rules file does not exist: %s", c.MerchantRulesFile))
		}
	}

	if c.MaxMessages < 1 {
		errors = append(errors, fmt.Sprintf("invalid max messages %d: must be at least 1", c.MaxMessages))
	}
	if c.MaxResultsPerQuery < 1 {
		errors = append(errors, fmt.Sprintf("invalid max results per query %d: must be at least 1", c.MaxResultsPerQuery))
	}
	if c.Workers < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker count %d: must be at least 1", c.Workers))
	} else if c.Workers > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker count %d: must be at most 64", c.Workers))
	}

	validFormats := []string{FormatText, FormatJSON, FormatRaw}
	if !slices.Contains(validFormats, c.ReportFormat) {
		errors = append(errors, fmt.Sprintf("invalid report format '%s': must be one of %v", c.ReportFormat, validFormats))
	}
	if c.BarWidth < 1 || c.BarWidth > 200 {
		errors = append(errors, fmt.Sprintf("invalid bar width %d: must be between 1 and 200", c.BarWidth))
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
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a variable on sep, dropping blank items. It returns nil
// when the variable is unset so callers fall back to their own defaults.
func getEnvList(key, sep string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
