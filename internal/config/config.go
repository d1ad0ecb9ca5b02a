// Package config loads the query configuration and provides the file logger.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/chain/eth"
	"github.com/mrz1836/tally/internal/fileutil"
	"github.com/mrz1836/tally/internal/service/balance"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Config is a balance query configuration.
type Config struct {
	Wallets    []string            `yaml:"wallets" json:"wallets"`
	Chains     []string            `yaml:"chains" json:"chains"`
	Tokens     map[string][]string `yaml:"tokens,omitempty" json:"tokens,omitempty"`
	CustomRPC  map[string]string   `yaml:"customRpc,omitempty" json:"customRpc,omitempty"`
	Options    OptionsConfig       `yaml:"options" json:"options"`
	Output     OutputConfig        `yaml:"output" json:"output"`
	ChainsFile string              `yaml:"chainsFile,omitempty" json:"chainsFile,omitempty"`
	TokensFile string              `yaml:"tokensFile,omitempty" json:"tokensFile,omitempty"`
	Logging    LoggingConfig       `yaml:"logging" json:"logging"`

	// Warnings collects non-fatal problems found while loading.
	Warnings []string `yaml:"-" json:"-"`
}

// OptionsConfig controls lookups. Durations are in milliseconds.
type OptionsConfig struct {
	RetryAttempts    int               `yaml:"retryAttempts" json:"retryAttempts"`
	Timeout          int               `yaml:"timeout" json:"timeout"`
	Backoff          int               `yaml:"backoff" json:"backoff"`
	ShowZeroBalances bool              `yaml:"showZeroBalances" json:"showZeroBalances"`
	Concurrency      ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	RateLimit        RateLimitConfig   `yaml:"rateLimit" json:"rateLimit"`
}

// ConcurrencyConfig bounds parallel lookups.
type ConcurrencyConfig struct {
	Tokens  int `yaml:"tokens" json:"tokens"`
	Chains  int `yaml:"chains" json:"chains"`
	Wallets int `yaml:"wallets" json:"wallets"`
}

// RateLimitConfig limits requests per RPC endpoint. A zero rate disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"perSecond" json:"perSecond"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// OutputConfig defines result rendering and export settings.
type OutputConfig struct {
	Format   string `yaml:"format" json:"format"`
	Color    string `yaml:"color" json:"color"`
	JSON     bool   `yaml:"json" json:"json"`
	JSONFile string `yaml:"jsonFile" json:"jsonFile"`
	CSV      bool   `yaml:"csv" json:"csv"`
	CSVFile  string `yaml:"csvFile" json:"csvFile"`
	PDF      bool   `yaml:"pdf" json:"pdf"`
	PDFFile  string `yaml:"pdfFile" json:"pdfFile"`
}

// LoggingConfig defines logging settings. Format "json" switches structured
// records (HTTP request logs) to JSON; anything else writes key=value text.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Load reads configuration from path. Files ending in .json are decoded as
// JSON, anything else as YAML. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tallyerr.WithDetails(tallyerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid, err)
	}

	cfg := Defaults()
	if err := decode(path, data, cfg); err != nil {
		return nil, tallyerr.WithCause(
			tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{"path": path}),
			err,
		)
	}
	cfg.normalize()
	return cfg, nil
}

// LoadWithFallback loads path, or fallback when path does not exist. It
// returns the path that was actually read.
func LoadWithFallback(path, fallback string) (*Config, string, error) {
	cfg, err := Load(path)
	if err == nil || fallback == "" || fallback == path || !errors.Is(err, tallyerr.ErrConfigNotFound) {
		return cfg, path, err
	}

	cfg, fbErr := Load(fallback)
	if fbErr != nil {
		if errors.Is(fbErr, tallyerr.ErrConfigNotFound) {
			return nil, path, tallyerr.WithSuggestion(err, fmt.Sprintf("Copy %s to %s and edit it", fallback, path))
		}
		return nil, fallback, fbErr
	}
	return cfg, fallback, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isJSONPath(path) {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes configuration to path, as JSON for .json files and YAML
// otherwise, so that Load reads it back unchanged.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isJSONPath(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// normalize trims wallet and chain entries and lower-cases chain keys.
func (c *Config) normalize() {
	for i, w := range c.Wallets {
		c.Wallets[i] = strings.TrimSpace(w)
	}
	for i, key := range c.Chains {
		c.Chains[i] = strings.ToLower(strings.TrimSpace(key))
	}
	if len(c.Tokens) > 0 {
		tokens := make(map[string][]string, len(c.Tokens))
		for key, symbols := range c.Tokens {
			tokens[strings.ToLower(strings.TrimSpace(key))] = symbols
		}
		c.Tokens = tokens
	}
	if len(c.CustomRPC) > 0 {
		rpcs := make(map[string]string, len(c.CustomRPC))
		for key, url := range c.CustomRPC {
			rpcs[strings.ToLower(strings.TrimSpace(key))] = SanitizeURL(url)
		}
		c.CustomRPC = rpcs

		keys := make([]string, 0, len(rpcs))
		for key := range rpcs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := ValidateRPCURL(rpcs[key]); errors.Is(err, ErrInsecureRPCURL) {
				c.Warnings = append(c.Warnings, fmt.Sprintf("customRpc.%s: %v", key, err))
			}
		}
	}
}

// Validate checks that the configuration describes a query that can run
// against registry. It fails on the first problem found.
func (c *Config) Validate(registry *chain.Registry) error {
	if len(c.Wallets) == 0 {
		return tallyerr.WithSuggestion(tallyerr.ErrNoWallets, "Add at least one address under 'wallets'")
	}
	if len(c.Chains) == 0 {
		return tallyerr.WithSuggestion(tallyerr.ErrNoChains, "Add at least one chain under 'chains'")
	}
	for _, wallet := range c.Wallets {
		if err := eth.ValidateAddress(wallet); err != nil {
			return err
		}
	}
	for _, key := range c.Chains {
		if _, err := registry.Lookup(key); err != nil {
			return err
		}
	}
	for key, rpcURL := range c.CustomRPC {
		if _, err := registry.Lookup(key); err != nil {
			return err
		}
		if err := ValidateRPCURL(rpcURL); err != nil && !errors.Is(err, ErrInsecureRPCURL) {
			return tallyerr.WithCause(tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
				"field": "customRpc." + key,
			}), err)
		}
	}

	switch {
	case c.Options.RetryAttempts < 1:
		return invalidOption("retryAttempts", "must be at least 1")
	case c.Options.Timeout <= 0:
		return invalidOption("timeout", "must be positive")
	case c.Options.Backoff < 0:
		return invalidOption("backoff", "must not be negative")
	case c.Options.RateLimit.PerSecond < 0:
		return invalidOption("rateLimit.perSecond", "must not be negative")
	}
	return nil
}

func invalidOption(field, reason string) error {
	return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
		"field":  "options." + field,
		"reason": reason,
	})
}

// Registries returns the built-in chain and token registries extended by
// ChainsFile and TokensFile when set.
func (c *Config) Registries() (*chain.Registry, *chain.TokenRegistry, error) {
	registry := chain.DefaultRegistry()
	tokens := chain.DefaultTokens()

	if c.ChainsFile != "" {
		data, err := readFile(c.ChainsFile)
		if err != nil {
			return nil, nil, err
		}
		extra, err := chain.ParseRegistry(data)
		if err != nil {
			return nil, nil, tallyerr.Wrap(err, "loading %s", c.ChainsFile)
		}
		registry = registry.Merge(extra)
	}

	if c.TokensFile != "" {
		data, err := readFile(c.TokensFile)
		if err != nil {
			return nil, nil, err
		}
		extra, err := chain.ParseTokens(data)
		if err != nil {
			return nil, nil, tallyerr.Wrap(err, "loading %s", c.TokensFile)
		}
		tokens = tokens.Merge(extra)
	}

	return registry, tokens, nil
}

func readFile(path string) ([]byte, error) {
	// #nosec G304 -- registry file path comes from the query config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tallyerr.WithDetails(tallyerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid, err)
	}
	return data, nil
}

// BalanceOptions converts the lookup options for the balance service.
func (c *Config) BalanceOptions() balance.Options {
	return balance.Options{
		RetryAttempts: c.Options.RetryAttempts,
		Timeout:       time.Duration(c.Options.Timeout) * time.Millisecond,
		Backoff:       time.Duration(c.Options.Backoff) * time.Millisecond,
	}
}

// BalancePolicy converts the concurrency options for the balance service.
func (c *Config) BalancePolicy() balance.Policy {
	return balance.Policy{
		TokenConcurrency:  c.Options.Concurrency.Tokens,
		ChainConcurrency:  c.Options.Concurrency.Chains,
		WalletConcurrency: c.Options.Concurrency.Wallets,
	}
}

// RateLimiter returns the per-endpoint limiter, or nil when disabled.
func (c *Config) RateLimiter() *chain.RateLimiter {
	return chain.NewRateLimiter(c.Options.RateLimit.PerSecond, c.Options.RateLimit.Burst)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.Format
}
