// Package balance aggregates native and token balance lookups across chains
// and wallets.
package balance

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/chain/eth"
	"github.com/mrz1836/tally/internal/metrics"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Query scopes reported to metrics.
const (
	scopeChain   = "chain"
	scopeWallet  = "wallet"
	scopeWallets = "wallets"
)

// Config holds the dependencies of a Service. Zero fields get defaults.
type Config struct {
	Registry     *chain.Registry
	Tokens       *chain.TokenRegistry
	Factory      chain.Factory
	Options      Options
	Policy       Policy
	Limiter      *chain.RateLimiter
	Metrics      *metrics.Metrics
	Logger       Logger
	RPCOverrides map[string]string
}

// Service runs balance queries for one session. It owns a client pool that
// is released by Cleanup; create one Service per session.
type Service struct {
	registry *chain.Registry
	tokens   *chain.TokenRegistry
	pool     *Pool
	fetcher  *Fetcher
	policy   Policy
	metrics  *metrics.Metrics
	logger   Logger
}

// NewService creates a balance service.
func NewService(cfg Config) *Service {
	if cfg.Registry == nil {
		cfg.Registry = chain.DefaultRegistry()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = chain.DefaultTokens()
	}
	if cfg.Factory == nil {
		cfg.Factory = eth.NewFactory(eth.SharedTransport())
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	return &Service{
		registry: cfg.Registry,
		tokens:   cfg.Tokens,
		pool:     NewPool(cfg.Registry, cfg.Factory, cfg.RPCOverrides, cfg.Logger, cfg.Metrics),
		fetcher:  NewFetcher(cfg.Options, cfg.Limiter, cfg.Metrics, cfg.Logger),
		policy:   cfg.Policy.withDefaults(),
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Registry returns the chain registry the service resolves keys against.
func (s *Service) Registry() *chain.Registry {
	return s.registry
}

// Tokens returns the token registry the service resolves symbols against.
func (s *Service) Tokens() *chain.TokenRegistry {
	return s.tokens
}

// QueryWalletOnChain returns the native balance of address on chainKey
// followed by one record per symbol, in the order given.
func (s *Service) QueryWalletOnChain(ctx context.Context, chainKey, address string, symbols []string) ([]Record, error) {
	if err := eth.ValidateAddress(address); err != nil {
		return nil, err
	}
	if _, err := s.registry.Lookup(chainKey); err != nil {
		return nil, err
	}
	return s.queryChain(ctx, chainKey, address, symbols, "")
}

// QueryWallet queries every chain in spec.Chains and concatenates the
// records in chain order. All chains are validated before any remote call.
func (s *Service) QueryWallet(ctx context.Context, spec QuerySpec) ([]Record, error) {
	if err := s.validate(spec.Address, spec.Chains); err != nil {
		return nil, err
	}
	return s.queryWallet(ctx, spec)
}

// QueryMultipleWallets queries each address and returns its records keyed by
// address. Duplicate addresses map to a single entry.
func (s *Service) QueryMultipleWallets(ctx context.Context, addresses, chains []string, tokens map[string][]string, overrides map[string]string) (map[string][]Record, error) {
	results, err := s.QueryMultipleWalletsOrdered(ctx, addresses, chains, tokens, overrides)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]Record, len(results))
	for _, r := range results {
		out[r.Address] = r.Records
	}
	return out, nil
}

// QueryMultipleWalletsOrdered is QueryMultipleWallets with results in the
// order the addresses were given.
func (s *Service) QueryMultipleWalletsOrdered(ctx context.Context, addresses, chains []string, tokens map[string][]string, overrides map[string]string) ([]WalletResult, error) {
	if len(addresses) == 0 {
		return nil, tallyerr.ErrNoWallets
	}
	for _, address := range addresses {
		if err := s.validate(address, chains); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	defer func() { s.metrics.ObserveQuery(scopeWallets, time.Since(start)) }()

	results := make([]WalletResult, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.WalletConcurrency)

	for i, address := range addresses {
		g.Go(func() error {
			records, err := s.queryWallet(gctx, QuerySpec{
				Address:      address,
				Chains:       chains,
				Tokens:       tokens,
				RPCOverrides: overrides,
			})
			results[i] = WalletResult{Address: address, Records: records}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Cleanup releases every pooled client. The service can still be used
// afterwards; clients are recreated on demand.
func (s *Service) Cleanup() {
	s.pool.Close()
}

func (s *Service) validate(address string, chains []string) error {
	if err := eth.ValidateAddress(address); err != nil {
		return err
	}
	if len(chains) == 0 {
		return tallyerr.ErrNoChains
	}
	for _, key := range chains {
		if _, err := s.registry.Lookup(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) queryWallet(ctx context.Context, spec QuerySpec) ([]Record, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery(scopeWallet, time.Since(start)) }()

	perChain := make([][]Record, len(spec.Chains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.ChainConcurrency)

	for i, key := range spec.Chains {
		symbols := tokensFor(spec.Tokens, key)
		override := overrideFor(spec.RPCOverrides, key)
		g.Go(func() error {
			records, err := s.queryChain(gctx, key, spec.Address, symbols, override)
			perChain[i] = records
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, records := range perChain {
		total += len(records)
	}
	out := make([]Record, 0, total)
	for _, records := range perChain {
		out = append(out, records...)
	}
	return out, nil
}

// queryChain assumes address and chainKey are valid. Lookup failures become
// records; only a client that cannot be constructed is returned as an error.
func (s *Service) queryChain(ctx context.Context, chainKey, address string, symbols []string, rpcURL string) ([]Record, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery(scopeChain, time.Since(start)) }()

	client, desc, err := s.pool.Client(ctx, chainKey, rpcURL)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 1+len(symbols))
	g := new(errgroup.Group)
	g.SetLimit(s.policy.TokenConcurrency)

	g.Go(func() error {
		records[0] = s.fetcher.FetchNative(ctx, client, desc, address)
		return nil
	})
	for i, symbol := range symbols {
		token, _ := s.tokens.Lookup(desc.Key, symbol)
		g.Go(func() error {
			records[i+1] = s.fetcher.FetchToken(ctx, client, desc, address, symbol, token)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("balance: %s queried %d records for %s", desc.Key, len(records), address)
	return records, nil
}

func tokensFor(tokens map[string][]string, chainKey string) []string {
	if symbols, ok := tokens[chainKey]; ok {
		return symbols
	}
	key := normalizeChainKey(chainKey)
	for k, symbols := range tokens {
		if normalizeChainKey(k) == key {
			return symbols
		}
	}
	return nil
}

func overrideFor(overrides map[string]string, chainKey string) string {
	key := normalizeChainKey(chainKey)
	for k, url := range overrides {
		if normalizeChainKey(k) == key {
			return url
		}
	}
	return ""
}
