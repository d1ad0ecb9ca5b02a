package chain

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// contractAddressRegex validates the shape of a contract address.
var contractAddressRegex = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// Token describes an ERC-20 token deployed on one chain.
type Token struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Address  string `json:"address" yaml:"address"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// TokenRegistry maps (chain key, symbol) to token contracts.
// Symbol lookups are case-insensitive.
type TokenRegistry struct {
	chains []string
	order  map[string][]string
	tokens map[string]map[string]Token
}

// NewTokenRegistry returns an empty token registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		order:  make(map[string][]string),
		tokens: make(map[string]map[string]Token),
	}
}

// Add registers tok on chainKey, replacing any token with the same symbol.
func (r *TokenRegistry) Add(chainKey string, tok Token) error {
	chainKey = normalizeKey(chainKey)
	if chainKey == "" {
		return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"reason": "token chain key is required",
		})
	}
	if tok.Symbol == "" {
		return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"chain":  chainKey,
			"reason": "token symbol is required",
		})
	}
	if !contractAddressRegex.MatchString(tok.Address) {
		return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"chain":  chainKey,
			"token":  tok.Symbol,
			"reason": "invalid contract address",
		})
	}
	if tok.Decimals < 0 || tok.Decimals > maxDecimals {
		return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"chain":  chainKey,
			"token":  tok.Symbol,
			"reason": fmt.Sprintf("decimals must be between 0 and %d", maxDecimals),
		})
	}

	byChain, ok := r.tokens[chainKey]
	if !ok {
		byChain = make(map[string]Token)
		r.tokens[chainKey] = byChain
		r.chains = append(r.chains, chainKey)
	}

	key := symbolKey(tok.Symbol)
	if _, exists := byChain[key]; !exists {
		r.order[chainKey] = append(r.order[chainKey], key)
	}
	byChain[key] = tok
	return nil
}

// Lookup returns the token registered for symbol on chainKey.
func (r *TokenRegistry) Lookup(chainKey, symbol string) (*Token, bool) {
	byChain, ok := r.tokens[normalizeKey(chainKey)]
	if !ok {
		return nil, false
	}
	tok, ok := byChain[symbolKey(symbol)]
	if !ok {
		return nil, false
	}
	return &tok, true
}

// ForChain returns the tokens registered on chainKey in registration order.
func (r *TokenRegistry) ForChain(chainKey string) []Token {
	chainKey = normalizeKey(chainKey)
	keys := r.order[chainKey]
	out := make([]Token, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.tokens[chainKey][key])
	}
	return out
}

// Symbols returns the token symbols registered on chainKey in registration order.
func (r *TokenRegistry) Symbols(chainKey string) []string {
	toks := r.ForChain(chainKey)
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Symbol
	}
	return out
}

// Chains returns the chain keys that have at least one token.
func (r *TokenRegistry) Chains() []string {
	return append([]string(nil), r.chains...)
}

// All returns every chain's tokens keyed by chain key.
func (r *TokenRegistry) All() map[string][]Token {
	out := make(map[string][]Token, len(r.chains))
	for _, key := range r.chains {
		out[key] = r.ForChain(key)
	}
	return out
}

// Merge returns a new registry with other's tokens overlaid on r's.
func (r *TokenRegistry) Merge(other *TokenRegistry) *TokenRegistry {
	merged := NewTokenRegistry()
	for _, src := range []*TokenRegistry{r, other} {
		if src == nil {
			continue
		}
		for _, chainKey := range src.chains {
			for _, tok := range src.ForChain(chainKey) {
				_ = merged.Add(chainKey, tok)
			}
		}
	}
	return merged
}

// ParseTokens decodes a token table in YAML or JSON form, keyed by chain
// key and then by symbol:
//
//	ethereum:
//	  USDC: {address: "0xA0b8...", decimals: 6, symbol: USDC}
//
// When a token's symbol field is empty the mapping key is used.
func ParseTokens(data []byte) (*TokenRegistry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid, err)
	}

	r := NewTokenRegistry()
	if len(root.Content) == 0 {
		return r, nil
	}

	chains := root.Content[0]
	if chains.Kind != yaml.MappingNode {
		return nil, tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"reason": "token table must be a mapping of chain key to tokens",
		})
	}

	for i := 0; i+1 < len(chains.Content); i += 2 {
		chainKey := chains.Content[i].Value
		toks := chains.Content[i+1]
		if toks.Kind != yaml.MappingNode {
			return nil, tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
				"chain":  chainKey,
				"reason": "tokens must be a mapping of symbol to token",
			})
		}
		for j := 0; j+1 < len(toks.Content); j += 2 {
			var tok Token
			if err := toks.Content[j+1].Decode(&tok); err != nil {
				return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid,
					fmt.Errorf("token %s/%s: %w", chainKey, toks.Content[j].Value, err))
			}
			if tok.Symbol == "" {
				tok.Symbol = toks.Content[j].Value
			}
			if err := r.Add(chainKey, tok); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func symbolKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
