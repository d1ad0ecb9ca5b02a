package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

var (
	// ErrInvalidRPCURL indicates an RPC URL that cannot be used at all.
	ErrInvalidRPCURL = errors.New("invalid RPC URL")

	// ErrInsecureRPCURL indicates a plain-text RPC URL pointing at a remote host.
	ErrInsecureRPCURL = errors.New("insecure RPC URL")
)

// Environment variable names.
const (
	EnvLogLevel      = "TALLY_LOG_LEVEL"
	EnvLogFile       = "TALLY_LOG_FILE"
	EnvTimeout       = "TALLY_TIMEOUT"
	EnvRetryAttempts = "TALLY_RETRY_ATTEMPTS"
	EnvShowZero      = "TALLY_SHOW_ZERO"
	EnvOutputFormat  = "TALLY_OUTPUT_FORMAT"
	EnvNoColor       = "NO_COLOR"

	// EnvPriceAPIKey is the CoinGecko demo API key used by the HTTP server.
	EnvPriceAPIKey = "TALLY_COINGECKO_API_KEY"

	// EnvRPCPrefix followed by an upper-case chain key sets that chain's RPC URL,
	// e.g. TALLY_RPC_ETHEREUM.
	EnvRPCPrefix = "TALLY_RPC_"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}

	// TALLY_TIMEOUT is in milliseconds
	if v := os.Getenv(EnvTimeout); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Options.Timeout = ms
		}
	}

	if v := os.Getenv(EnvRetryAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Options.RetryAttempts = n
		}
	}

	if v := os.Getenv(EnvShowZero); v != "" {
		cfg.Options.ShowZeroBalances = parseBool(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.Format = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvRPCPrefix) || value == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvRPCPrefix))
		if key == "" {
			continue
		}
		rpcURL := SanitizeURL(value)
		if err := ValidateRPCURL(rpcURL); err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s: %v", name, err))
			if !errors.Is(err, ErrInsecureRPCURL) {
				continue
			}
		}
		if cfg.CustomRPC == nil {
			cfg.CustomRPC = make(map[string]string)
		}
		cfg.CustomRPC[key] = rpcURL
	}
}

// ValidateRPCURL checks that rawURL is an http(s) or ws(s) URL. Plain-text
// schemes are only accepted for loopback hosts; otherwise ErrInsecureRPCURL
// is returned. An empty URL is valid and means "use the default".
func ValidateRPCURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidRPCURL, rawURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return nil
	case "http", "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInsecureRPCURL, rawURL)
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRPCURL, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
