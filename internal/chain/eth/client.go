// Package eth provides the EVM chain client used for balance lookups.
package eth

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/tally/internal/chain"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

var (
	// ErrInvalidTokenAddress indicates the token address format is invalid.
	ErrInvalidTokenAddress = &tallyerr.TallyError{
		Code:     "ETH_INVALID_TOKEN_ADDRESS",
		Message:  "invalid token address format",
		ExitCode: tallyerr.ExitInput,
	}

	// ErrClientClosed is returned by calls on a closed client.
	ErrClientClosed = &tallyerr.TallyError{
		Code:     "ETH_CLIENT_CLOSED",
		Message:  "client is closed",
		ExitCode: tallyerr.ExitGeneral,
	}

	// ErrUnexpectedResult indicates a contract call returned data that does
	// not decode as the expected ERC-20 value.
	ErrUnexpectedResult = &tallyerr.TallyError{
		Code:     "ETH_UNEXPECTED_RESULT",
		Message:  "unexpected contract call result",
		ExitCode: tallyerr.ExitGeneral,
	}
)

// ClientOptions contains optional configuration for the client.
type ClientOptions struct {
	// ChainID skips eth_chainId detection when set.
	ChainID *big.Int
	// Name is the chain's display name, used in logs and errors.
	Name string
	// Transport overrides the default HTTP transport.
	// Useful for sharing one connection pool across clients.
	Transport *http.Transport
}

// Compile-time interface checks
var (
	_ chain.Client              = (*Client)(nil)
	_ chain.TokenMetadataReader = (*Client)(nil)
)

// Client reads balances from one EVM chain's JSON-RPC endpoint.
// It connects lazily on first use and is safe for concurrent use.
type Client struct {
	rpcURL    string
	name      string
	chainID   *big.Int
	transport *http.Transport

	mu     sync.Mutex
	eth    *ethclient.Client
	closed bool
}

// NewClient creates a client bound to rpcURL. No network call is made until
// the first lookup.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if rpcURL == "" {
		return nil, tallyerr.ErrRPCURLRequired
	}

	c := &Client{rpcURL: rpcURL}
	if opts != nil {
		c.name = opts.Name
		c.transport = opts.Transport
		if opts.ChainID != nil {
			c.chainID = new(big.Int).Set(opts.ChainID)
		}
	}

	return c, nil
}

// NewFactory returns a chain.Factory producing clients that share transport.
// A nil transport gives each client Go's default transport.
func NewFactory(transport *http.Transport) chain.Factory {
	return chain.FactoryFunc(func(_ context.Context, desc chain.Descriptor, rpcURL string) (chain.Client, error) {
		c, err := NewClient(rpcURL, &ClientOptions{
			ChainID:   desc.ChainIDBig(),
			Name:      desc.Name,
			Transport: transport,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Endpoint returns the RPC URL the client is bound to.
func (c *Client) Endpoint() string {
	return c.rpcURL
}

// Name returns the chain display name, if one was configured.
func (c *Client) Name() string {
	return c.name
}

// ChainID returns the chain id, querying the node if it was not configured.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if _, err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.chainID), nil
}

// NativeBalance returns the native balance of address at the latest block.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !IsValidAddress(address) {
		return nil, chain.Permanent(invalidAddress(address))
	}

	ec, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := ec.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns balanceOf(address) on the ERC-20 contract at tokenAddress.
func (c *Client) TokenBalance(ctx context.Context, address, tokenAddress string) (*big.Int, error) {
	if !IsValidAddress(address) {
		return nil, chain.Permanent(invalidAddress(address))
	}

	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, chain.Permanent(err)
	}

	out, err := c.call(ctx, tokenAddress, data)
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf: %w", err)
	}
	return unpackBigInt("balanceOf", out)
}

// TokenDecimals returns decimals() of the ERC-20 contract.
func (c *Client) TokenDecimals(ctx context.Context, tokenAddress string) (uint8, error) {
	out, err := c.callNoArgs(ctx, tokenAddress, "decimals")
	if err != nil {
		return 0, err
	}
	v, err := unpackOne("decimals", out)
	if err != nil {
		return 0, err
	}
	decimals, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals returned %T", ErrUnexpectedResult, v)
	}
	return decimals, nil
}

// TokenSymbol returns symbol() of the ERC-20 contract.
func (c *Client) TokenSymbol(ctx context.Context, tokenAddress string) (string, error) {
	out, err := c.callNoArgs(ctx, tokenAddress, "symbol")
	if err != nil {
		return "", err
	}
	v, err := unpackOne("symbol", out)
	if err != nil {
		return "", err
	}
	symbol, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: symbol returned %T", ErrUnexpectedResult, v)
	}
	return symbol, nil
}

func (c *Client) callNoArgs(ctx context.Context, tokenAddress, method string) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, chain.Permanent(err)
	}
	out, err := c.call(ctx, tokenAddress, data)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return out, nil
}

// call runs a read-only eth_call against the latest block.
func (c *Client) call(ctx context.Context, tokenAddress string, data []byte) ([]byte, error) {
	if !IsValidAddress(tokenAddress) {
		return nil, chain.Permanent(tallyerr.WithDetails(ErrInvalidTokenAddress, map[string]string{
			"token": tokenAddress,
		}))
	}

	ec, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(tokenAddress)
	return ec.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Close releases the underlying RPC connection. Closing twice returns ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	c.closed = true
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	return nil
}

// connect establishes the RPC connection if not already connected.
// A failed chain id lookup leaves the client unconnected so the next call retries.
func (c *Client) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, chain.Permanent(ErrClientClosed)
	}
	if c.eth != nil {
		return c.eth, nil
	}

	httpClient := &http.Client{}
	if c.transport != nil {
		httpClient.Transport = c.transport
	}

	rc, err := rpc.DialOptions(ctx, c.rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, tallyerr.WithCause(tallyerr.ErrNetworkError, fmt.Errorf("connecting to %s: %w", c.rpcURL, err))
	}
	ec := ethclient.NewClient(rc)

	if c.chainID == nil {
		chainID, err := ec.ChainID(ctx)
		if err != nil {
			ec.Close()
			return nil, fmt.Errorf("getting chain ID: %w", err)
		}
		c.chainID = chainID
	}

	c.eth = ec
	return ec, nil
}

func invalidAddress(address string) error {
	return tallyerr.WithDetails(tallyerr.ErrInvalidAddress, map[string]string{
		"address": address,
	})
}
