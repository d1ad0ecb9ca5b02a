package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/metrics"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Fetcher performs single balance lookups with retries and turns every
// outcome into a Record. It never returns an error.
type Fetcher struct {
	opts    Options
	limiter *chain.RateLimiter
	metrics *metrics.Metrics
	logger  Logger
}

// NewFetcher creates a fetcher. limiter and m may be nil.
func NewFetcher(opts Options, limiter *chain.RateLimiter, m *metrics.Metrics, logger Logger) *Fetcher {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Fetcher{
		opts:    opts.withDefaults(),
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// Options returns the effective options.
func (f *Fetcher) Options() Options {
	return f.opts
}

// FetchNative looks up the native balance of address on the client's chain.
func (f *Fetcher) FetchNative(ctx context.Context, client chain.BalanceReader, desc chain.Descriptor, address string) Record {
	record := Record{
		Chain:    desc.Name,
		ChainKey: desc.Key,
		Token:    desc.Native.Symbol,
		IsNative: true,
		Decimals: desc.Native.Decimals,
	}

	raw, err := f.fetch(ctx, limiterKey(client, desc.Key), desc.Key, metrics.KindNative, func(ctx context.Context) (*big.Int, error) {
		return client.NativeBalance(ctx, address)
	})
	return f.finish(record, raw, err)
}

// FetchToken looks up the balance of symbol on the client's chain. A nil
// token means the symbol is not configured for the chain; the record then
// carries the error and no network call is made.
func (f *Fetcher) FetchToken(ctx context.Context, client chain.TokenReader, desc chain.Descriptor, address, symbol string, token *chain.Token) Record {
	record := Record{
		Chain:    desc.Name,
		ChainKey: desc.Key,
		Token:    symbol,
	}

	if token == nil {
		f.metrics.RecordLookup(desc.Key, metrics.KindToken, true)
		record.Balance = "0"
		record.Error = fmt.Sprintf("%s: %s", tallyerr.ErrTokenNotConfigured.Message, strings.ToUpper(strings.TrimSpace(symbol)))
		return record
	}

	record.Token = token.Symbol
	record.ContractAddress = token.Address
	record.Decimals = token.Decimals

	raw, err := f.fetch(ctx, limiterKey(client, desc.Key), desc.Key, metrics.KindToken, func(ctx context.Context) (*big.Int, error) {
		return client.TokenBalance(ctx, address, token.Address)
	})
	return f.finish(record, raw, err)
}

func (f *Fetcher) fetch(ctx context.Context, endpoint, chainKey, kind string, read func(context.Context) (*big.Int, error)) (*big.Int, error) {
	cfg := chain.RetryConfig{
		MaxAttempts:    f.opts.RetryAttempts,
		BackoffUnit:    f.opts.Backoff,
		AttemptTimeout: f.opts.Timeout,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			f.logger.Debug("balance: %s %s lookup attempt %d failed, retrying in %s: %v", chainKey, kind, attempt, delay, err)
		},
	}

	raw, err := chain.RetryWithConfig(ctx, cfg, func(ctx context.Context, _ int) (*big.Int, error) {
		if err := f.limiter.Wait(ctx, endpoint); err != nil {
			return nil, err
		}
		start := time.Now()
		v, err := read(ctx)
		f.metrics.RecordAttempt(chainKey, time.Since(start), err)
		return v, err
	})

	f.metrics.RecordLookup(chainKey, kind, err != nil)
	if err != nil {
		f.logger.Error("balance: %s %s lookup failed: %v", chainKey, kind, err)
	}
	return raw, err
}

func (f *Fetcher) finish(record Record, raw *big.Int, err error) Record {
	if err != nil {
		record.Balance = "0"
		record.Error = err.Error()
		return record
	}
	if raw == nil {
		raw = new(big.Int)
	}
	record.Balance = chain.FormatDecimalAmount(raw, record.Decimals)
	record.RawBalance = raw.String()
	return record
}

// limiterKey rate limits per RPC endpoint when the reader exposes one.
func limiterKey(reader any, fallback string) string {
	if e, ok := reader.(interface{ Endpoint() string }); ok && e.Endpoint() != "" {
		return e.Endpoint()
	}
	return fallback
}
