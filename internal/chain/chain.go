// Package chain provides chain and token descriptors, registries, and the
// shared retry, rate-limit and formatting utilities used by balance lookups.
package chain

import (
	"context"
	"math/big"
)

// Currency describes a chain's native currency.
type Currency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// Descriptor holds the network parameters of one supported chain.
// Descriptors are loaded once at startup and never mutated.
type Descriptor struct {
	Key      string   `json:"key" yaml:"-"`
	ChainID  uint64   `json:"chainId" yaml:"chainId"`
	Name     string   `json:"name" yaml:"name"`
	RPC      []string `json:"rpc" yaml:"rpc"`
	Explorer string   `json:"explorer,omitempty" yaml:"explorer,omitempty"`
	Native   Currency `json:"nativeCurrency" yaml:"nativeCurrency"`
}

// DefaultRPC returns the first configured RPC endpoint, or "" if none.
func (d Descriptor) DefaultRPC() string {
	if len(d.RPC) == 0 {
		return ""
	}
	return d.RPC[0]
}

// ChainIDBig returns the numeric chain id as a big.Int.
func (d Descriptor) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(d.ChainID)
}

// BalanceReader reads native balances.
type BalanceReader interface {
	// NativeBalance returns the native balance of address in the smallest unit.
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
}

// TokenReader reads ERC-20 token state through read-only contract calls.
type TokenReader interface {
	// TokenBalance returns balanceOf(address) for the token contract.
	TokenBalance(ctx context.Context, address, tokenAddress string) (*big.Int, error)
}

// TokenMetadataReader reads ERC-20 metadata.
type TokenMetadataReader interface {
	TokenDecimals(ctx context.Context, tokenAddress string) (uint8, error)
	TokenSymbol(ctx context.Context, tokenAddress string) (string, error)
}

// Client is a session-lifetime handle bound to one chain's RPC endpoint.
// Implementations must be safe for concurrent use.
type Client interface {
	BalanceReader
	TokenReader

	// Endpoint returns the RPC URL the client is bound to.
	Endpoint() string

	// Close releases transport resources held by the client.
	Close() error
}
