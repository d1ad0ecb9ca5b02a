package balance

import (
	"context"
	"sort"
	"sync"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/metrics"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Pool caches one RPC client per chain key for the lifetime of a query
// session. It is safe for concurrent use.
type Pool struct {
	registry  *chain.Registry
	factory   chain.Factory
	overrides map[string]string
	logger    Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	clients map[string]chain.Client
}

// NewPool creates an empty pool. overrides maps chain keys to RPC URLs used
// instead of each chain's default endpoint.
func NewPool(registry *chain.Registry, factory chain.Factory, overrides map[string]string, logger Logger, m *metrics.Metrics) *Pool {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Pool{
		registry:  registry,
		factory:   factory,
		overrides: normalizeOverrides(overrides),
		logger:    logger,
		metrics:   m,
		clients:   make(map[string]chain.Client),
	}
}

// Client returns the session client for chainKey, creating it on first use.
// rpcURL, when not empty, replaces the pool's override and the chain default
// for that first construction; later calls return the cached client.
//
// If two callers race on first use, the first stored client wins and the
// other is closed, so every caller sees the same client.
func (p *Pool) Client(ctx context.Context, chainKey, rpcURL string) (chain.Client, chain.Descriptor, error) {
	desc, err := p.registry.Lookup(chainKey)
	if err != nil {
		return nil, chain.Descriptor{}, err
	}

	p.mu.Lock()
	if c, ok := p.clients[desc.Key]; ok {
		p.mu.Unlock()
		return c, desc, nil
	}
	p.mu.Unlock()

	url := p.endpointFor(desc, rpcURL)
	created, err := p.factory.NewClient(ctx, desc, url)
	if err != nil {
		return nil, chain.Descriptor{}, tallyerr.Wrap(err, "creating %s client", desc.Key)
	}

	p.mu.Lock()
	if existing, ok := p.clients[desc.Key]; ok {
		p.mu.Unlock()
		p.release(desc.Key, created)
		return existing, desc, nil
	}
	p.clients[desc.Key] = created
	p.mu.Unlock()

	p.metrics.RecordClientCreated(desc.Key)
	p.logger.Debug("pool: created %s client for %s", desc.Key, url)
	return created, desc, nil
}

// Len returns the number of cached clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close releases every cached client and empties the pool. Release failures
// are logged, never returned.
func (p *Pool) Close() {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]chain.Client)
	p.mu.Unlock()

	keys := make([]string, 0, len(clients))
	for key := range clients {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p.release(key, clients[key])
	}
}

func (p *Pool) release(key string, c chain.Client) {
	if err := c.Close(); err != nil {
		p.metrics.RecordCloseError(key)
		p.logger.Error("pool: closing %s client: %v", key, err)
	}
}

func (p *Pool) endpointFor(desc chain.Descriptor, rpcURL string) string {
	if rpcURL != "" {
		return rpcURL
	}
	if url := p.overrides[desc.Key]; url != "" {
		return url
	}
	return desc.DefaultRPC()
}

func normalizeOverrides(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, url := range in {
		out[normalizeChainKey(key)] = url
	}
	return out
}
