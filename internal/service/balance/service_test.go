package balance_test

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/chain/eth"
	"github.com/mrz1836/tally/internal/rpctest"
	"github.com/mrz1836/tally/internal/service/balance"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

func newNodeService(t *testing.T, overrides map[string]string, attempts int) *balance.Service {
	t.Helper()
	svc := balance.NewService(balance.Config{
		Factory:      eth.NewFactory(eth.SharedTransport()),
		Options:      fastOptions(attempts),
		RPCOverrides: overrides,
	})
	t.Cleanup(svc.Cleanup)
	return svc
}

// assertRecordShape checks that each record is either a success with a
// decimal balance or a failure with balance "0".
func assertRecordShape(t *testing.T, records []balance.Record) {
	t.Helper()
	for _, r := range records {
		if r.Failed() {
			assert.Equal(t, "0", r.Balance, "%s/%s", r.ChainKey, r.Token)
			assert.Empty(t, r.RawBalance, "%s/%s", r.ChainKey, r.Token)
			continue
		}
		_, err := chain.ParseDecimalAmount(r.Balance, r.Decimals)
		require.NoError(t, err, "%s/%s balance %q", r.ChainKey, r.Token, r.Balance)
		assert.NotEmpty(t, r.RawBalance)
	}
}

func TestQueryWalletOnChain(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	node.SetBalance(walletA, wei("2500000000000000000"))
	node.SetTokenBalance(usdc, walletA, big.NewInt(12_340_000))
	svc := newNodeService(t, map[string]string{chain.Ethereum: node.URL()}, 3)

	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, []string{"USDC", "USDT", "SHIB"})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assertRecordShape(t, records)

	assert.Equal(t, "ETH", records[0].Token)
	assert.True(t, records[0].IsNative)
	assert.Equal(t, "2.5", records[0].Balance)

	assert.Equal(t, "USDC", records[1].Token)
	assert.Equal(t, "12.34", records[1].Balance)
	assert.Equal(t, usdc, records[1].ContractAddress)

	assert.Equal(t, "USDT", records[2].Token)
	assert.Equal(t, "0.0", records[2].Balance)
	assert.Empty(t, records[2].Error)

	assert.Equal(t, "SHIB", records[3].Token)
	assert.Equal(t, "token not configured: SHIB", records[3].Error)

	assert.Equal(t, 1, node.Calls("eth_getBalance"))
	assert.Equal(t, 2, node.Calls("balanceOf"))
}

func TestQueryWalletOnChain_NativeOnly(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	svc := newNodeService(t, map[string]string{chain.Ethereum: node.URL()}, 3)

	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0.0", records[0].Balance)
}

func TestQueryWalletOnChain_UnreachableEndpoint(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	url := node.URL()
	node.Close()
	svc := newNodeService(t, map[string]string{chain.Ethereum: url}, 2)

	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "ETH", r.Token)
	assert.True(t, r.IsNative)
	assert.Equal(t, "0", r.Balance)
	assert.NotEmpty(t, r.Error)
}

func TestQueryWalletOnChain_RetryBound(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	node.FailAlways("rate limited")
	svc := newNodeService(t, map[string]string{chain.Ethereum: node.URL()}, 3)

	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, nil)
	require.NoError(t, err)
	assert.Contains(t, records[0].Error, "rate limited")
	assert.Equal(t, 3, node.Calls("eth_getBalance"))
}

func TestQueryWalletOnChain_AttemptTimeout(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	node.Hang(2 * time.Second)
	svc := balance.NewService(balance.Config{
		Factory: eth.NewFactory(eth.SharedTransport()),
		Options: balance.Options{
			RetryAttempts: 1,
			Timeout:       50 * time.Millisecond,
			Backoff:       time.Millisecond,
		},
		RPCOverrides: map[string]string{chain.Ethereum: node.URL()},
	})
	t.Cleanup(svc.Cleanup)

	start := time.Now()
	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Failed())
	assert.Equal(t, "0", records[0].Balance)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueryWalletOnChain_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	svc := newNodeService(t, map[string]string{chain.Ethereum: node.URL()}, 3)

	_, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, "0x1234", nil)
	require.ErrorIs(t, err, tallyerr.ErrInvalidAddress)

	_, err = svc.QueryWalletOnChain(testContext(t), "etherium", walletA, nil)
	require.ErrorIs(t, err, tallyerr.ErrUnknownChain)

	assert.Equal(t, 0, node.TotalCalls())
}

func TestQueryWalletOnChain_OrderIndependentOfCompletion(t *testing.T) {
	t.Parallel()

	tokens := chain.NewTokenRegistry()
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	addresses := []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
	}
	position := make(map[string]int, len(addresses))
	for i, symbol := range symbols {
		require.NoError(t, tokens.Add(chain.Ethereum, chain.Token{Symbol: symbol, Address: addresses[i], Decimals: 0}))
		position[addresses[i]] = i
	}

	var inFlight, peak atomic.Int32
	client := &stubClient{token: func(_ context.Context, _, token string) (*big.Int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// Earlier tokens finish last.
		idx := position[token]
		time.Sleep(time.Duration(len(addresses)-idx) * 10 * time.Millisecond)
		return big.NewInt(int64(idx + 1)), nil
	}}

	svc := balance.NewService(balance.Config{
		Tokens: tokens,
		Factory: chain.FactoryFunc(func(context.Context, chain.Descriptor, string) (chain.Client, error) {
			return client, nil
		}),
		Options: fastOptions(1),
		Policy:  balance.Policy{TokenConcurrency: 2},
	})
	defer svc.Cleanup()

	records, err := svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, symbols)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.True(t, records[0].IsNative)
	for i, symbol := range symbols {
		assert.Equal(t, symbol, records[i+1].Token)
		assert.Equal(t, addresses[i], records[i+1].ContractAddress)
		assert.Equal(t, big.NewInt(int64(i+1)).String()+".0", records[i+1].Balance)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestQueryWallet_ChainsAreIndependent(t *testing.T) {
	t.Parallel()

	good := rpctest.NewNode(t, 1)
	good.SetBalance(walletA, wei("1000000000000000000"))
	down := rpctest.NewNode(t, 56)
	downURL := down.URL()
	down.Close()

	svc := newNodeService(t, nil, 2)
	records, err := svc.QueryWallet(testContext(t), balance.QuerySpec{
		Address: walletA,
		Chains:  []string{chain.BSC, chain.Ethereum},
		Tokens: map[string][]string{
			chain.BSC:      {"USDT"},
			chain.Ethereum: {"USDC"},
		},
		RPCOverrides: map[string]string{
			chain.Ethereum: good.URL(),
			chain.BSC:      downURL,
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assertRecordShape(t, records)

	assert.Equal(t, []string{chain.BSC, chain.BSC, chain.Ethereum, chain.Ethereum},
		[]string{records[0].ChainKey, records[1].ChainKey, records[2].ChainKey, records[3].ChainKey})
	assert.True(t, records[0].Failed())
	assert.True(t, records[1].Failed())
	assert.Equal(t, "BNB", records[0].Token)
	assert.Equal(t, "1.0", records[2].Balance)
	assert.False(t, records[3].Failed())
}

func TestQueryWallet_ValidatesBeforeRemoteCalls(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode(t, 1)
	svc := newNodeService(t, map[string]string{chain.Ethereum: node.URL()}, 3)

	tests := []struct {
		name string
		spec balance.QuerySpec
		want error
	}{
		{"bad address", balance.QuerySpec{Address: "nope", Chains: []string{chain.Ethereum}}, tallyerr.ErrInvalidAddress},
		{"no chains", balance.QuerySpec{Address: walletA}, tallyerr.ErrNoChains},
		{"unknown chain after a valid one", balance.QuerySpec{Address: walletA, Chains: []string{chain.Ethereum, "solana"}}, tallyerr.ErrUnknownChain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.QueryWallet(testContext(t), tt.spec)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, tallyerr.IsInputError(err))
		})
	}
	assert.Equal(t, 0, node.TotalCalls())
}

func TestQueryMultipleWallets_Independent(t *testing.T) {
	t.Parallel()

	client := &stubClient{native: func(_ context.Context, address string) (*big.Int, error) {
		if address == walletB {
			return nil, errRPCDown
		}
		return big.NewInt(7_000_000_000_000_000), nil
	}}
	svc := balance.NewService(balance.Config{
		Factory: chain.FactoryFunc(func(context.Context, chain.Descriptor, string) (chain.Client, error) {
			return client, nil
		}),
		Options: fastOptions(2),
	})
	defer svc.Cleanup()

	results, err := svc.QueryMultipleWallets(testContext(t), []string{walletA, walletB}, []string{chain.Ethereum}, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, results[walletA], 1)
	assert.Equal(t, "0.007", results[walletA][0].Balance)
	assert.Empty(t, results[walletA][0].Error)

	require.Len(t, results[walletB], 1)
	assert.Equal(t, "0", results[walletB][0].Balance)
	assert.Equal(t, "connection refused", results[walletB][0].Error)
}

func TestQueryMultipleWalletsOrdered(t *testing.T) {
	t.Parallel()

	svc := balance.NewService(balance.Config{
		Factory: chain.FactoryFunc(func(context.Context, chain.Descriptor, string) (chain.Client, error) {
			return &stubClient{}, nil
		}),
		Options: fastOptions(1),
		Policy:  balance.Policy{WalletConcurrency: 4, ChainConcurrency: 2},
	})
	defer svc.Cleanup()

	wallets := []string{walletB, walletA}
	results, err := svc.QueryMultipleWalletsOrdered(testContext(t), wallets, []string{chain.Polygon, chain.Base}, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, walletB, results[0].Address)
	assert.Equal(t, walletA, results[1].Address)
	for _, r := range results {
		require.Len(t, r.Records, 2)
		assert.Equal(t, chain.Polygon, r.Records[0].ChainKey)
		assert.Equal(t, "MATIC", r.Records[0].Token)
		assert.Equal(t, chain.Base, r.Records[1].ChainKey)
	}

	_, err = svc.QueryMultipleWalletsOrdered(testContext(t), nil, []string{chain.Base}, nil, nil)
	require.ErrorIs(t, err, tallyerr.ErrNoWallets)

	_, err = svc.QueryMultipleWallets(testContext(t), []string{walletA, "bad"}, []string{chain.Base}, nil, nil)
	require.ErrorIs(t, err, tallyerr.ErrInvalidAddress)
}

func TestService_CleanupReleasesClients(t *testing.T) {
	t.Parallel()

	factory := &countingFactory{}
	svc := balance.NewService(balance.Config{Factory: factory, Options: fastOptions(1)})

	_, err := svc.QueryWallet(testContext(t), balance.QuerySpec{
		Address: walletA,
		Chains:  []string{chain.Ethereum, chain.Optimism},
	})
	require.NoError(t, err)
	require.Equal(t, 2, factory.count())

	// The pool is reused across queries in one session.
	_, err = svc.QueryWalletOnChain(testContext(t), chain.Ethereum, walletA, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.count())

	svc.Cleanup()
	for _, c := range factory.created {
		assert.Equal(t, int32(1), c.closeCalls.Load())
	}
}

func TestService_Defaults(t *testing.T) {
	t.Parallel()

	svc := balance.NewService(balance.Config{})
	assert.Equal(t, chain.DefaultRegistry().Keys(), svc.Registry().Keys())
	assert.Equal(t, chain.DefaultTokens().Chains(), svc.Tokens().Chains())
	svc.Cleanup()
}
