package balance

import (
	"strings"
	"time"
)

// Options control how each balance lookup is attempted.
type Options struct {
	// RetryAttempts is the maximum number of attempts per lookup.
	RetryAttempts int `json:"retryAttempts" yaml:"retryAttempts"`
	// Timeout bounds a single attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// Backoff is the linear backoff unit: attempt n waits n*Backoff before retrying.
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// DefaultOptions returns the options used by the query command.
func DefaultOptions() Options {
	return Options{
		RetryAttempts: 3,
		Timeout:       30 * time.Second,
		Backoff:       time.Second,
	}
}

// DefaultHTTPOptions returns the tighter options used by the HTTP API, sized
// so a full query fits inside one request deadline.
func DefaultHTTPOptions() Options {
	return Options{
		RetryAttempts: 2,
		Timeout:       8 * time.Second,
		Backoff:       time.Second,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = d.RetryAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	return o
}

// Policy bounds how many lookups run at once.
type Policy struct {
	// TokenConcurrency is the number of lookups run in parallel on one chain.
	TokenConcurrency int
	// ChainConcurrency is the number of chains queried in parallel per wallet.
	ChainConcurrency int
	// WalletConcurrency is the number of wallets queried in parallel.
	WalletConcurrency int
}

// DefaultPolicy returns the default concurrency policy. Chains and wallets
// run one at a time so public endpoints are not flooded.
func DefaultPolicy() Policy {
	return Policy{
		TokenConcurrency:  4,
		ChainConcurrency:  1,
		WalletConcurrency: 1,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.TokenConcurrency <= 0 {
		p.TokenConcurrency = d.TokenConcurrency
	}
	if p.ChainConcurrency <= 0 {
		p.ChainConcurrency = d.ChainConcurrency
	}
	if p.WalletConcurrency <= 0 {
		p.WalletConcurrency = d.WalletConcurrency
	}
	return p
}

func normalizeChainKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
