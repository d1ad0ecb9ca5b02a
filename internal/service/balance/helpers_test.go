package balance_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/service/balance"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	usdc    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	usdt    = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

var errRPCDown = errors.New("connection refused")

// stubClient is a chain.Client whose reads are scripted per test.
type stubClient struct {
	endpoint string
	native   func(ctx context.Context, address string) (*big.Int, error)
	token    func(ctx context.Context, address, token string) (*big.Int, error)
	closeErr error

	nativeCalls atomic.Int32
	tokenCalls  atomic.Int32
	closeCalls  atomic.Int32
}

func (s *stubClient) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	s.nativeCalls.Add(1)
	if s.native == nil {
		return new(big.Int), nil
	}
	return s.native(ctx, address)
}

func (s *stubClient) TokenBalance(ctx context.Context, address, token string) (*big.Int, error) {
	s.tokenCalls.Add(1)
	if s.token == nil {
		return new(big.Int), nil
	}
	return s.token(ctx, address, token)
}

func (s *stubClient) Endpoint() string { return s.endpoint }

func (s *stubClient) Close() error {
	s.closeCalls.Add(1)
	return s.closeErr
}

// recordingLogger collects log lines.
type recordingLogger struct {
	mu     sync.Mutex
	debug  []string
	errors []string
}

func (l *recordingLogger) Debug(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, format)
}

func (l *recordingLogger) Error(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, format)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func fastOptions(attempts int) balance.Options {
	return balance.Options{
		RetryAttempts: attempts,
		Timeout:       2 * time.Second,
		Backoff:       time.Millisecond,
	}
}

func ethereum(t *testing.T) chain.Descriptor {
	t.Helper()
	desc, err := chain.DefaultRegistry().Lookup(chain.Ethereum)
	if err != nil {
		t.Fatalf("ethereum descriptor: %v", err)
	}
	return desc
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}
