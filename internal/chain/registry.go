package chain

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// maxSuggestionDistance bounds how far a typo may be from a known key
// before no suggestion is offered.
const maxSuggestionDistance = 3

// maxDecimals is the largest decimal count that fits a uint256 balance.
const maxDecimals = 77

// Registry maps chain keys to their descriptors. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	order  []string
	chains map[string]Descriptor
}

// NewRegistry builds a registry from descriptors, preserving their order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(descs)),
		chains: make(map[string]Descriptor, len(descs)),
	}
	for _, d := range descs {
		if err := r.add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// add validates and inserts a descriptor, replacing an existing key in place.
func (r *Registry) add(d Descriptor) error {
	d.Key = normalizeKey(d.Key)
	if err := validateDescriptor(d); err != nil {
		return err
	}

	if _, exists := r.chains[d.Key]; !exists {
		r.order = append(r.order, d.Key)
	}
	d.RPC = append([]string(nil), d.RPC...)
	r.chains[d.Key] = d
	return nil
}

func validateDescriptor(d Descriptor) error {
	invalid := func(reason string) error {
		return tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"chain":  d.Key,
			"reason": reason,
		})
	}

	switch {
	case d.Key == "":
		return invalid("chain key is required")
	case d.Name == "":
		return invalid("name is required")
	case d.ChainID == 0:
		return invalid("chainId is required")
	case len(d.RPC) == 0:
		return invalid("at least one rpc endpoint is required")
	case d.Native.Symbol == "":
		return invalid("nativeCurrency.symbol is required")
	case d.Native.Decimals < 0 || d.Native.Decimals > maxDecimals:
		return invalid(fmt.Sprintf("nativeCurrency.decimals must be between 0 and %d", maxDecimals))
	}
	return nil
}

// Lookup returns the descriptor for key. Unknown keys yield ErrUnknownChain
// with a suggestion when a close match exists.
func (r *Registry) Lookup(key string) (Descriptor, error) {
	normalized := normalizeKey(key)
	if d, ok := r.chains[normalized]; ok {
		return d, nil
	}

	err := tallyerr.WithDetails(tallyerr.ErrUnknownChain, map[string]string{"chain": key})
	if s := r.Suggest(normalized); s != "" {
		return Descriptor{}, tallyerr.WithSuggestion(err, fmt.Sprintf("Did you mean '%s'?", s))
	}
	return Descriptor{}, tallyerr.WithSuggestion(err, "Run 'tally chains' to list supported chains")
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.chains[normalizeKey(key)]
	return ok
}

// Keys returns the registered chain keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

// All returns all descriptors in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.chains[key])
	}
	return out
}

// Len returns the number of registered chains.
func (r *Registry) Len() int {
	return len(r.order)
}

// Merge returns a new registry containing r's chains overlaid with other's.
// Chains present in both take other's descriptor and keep r's position.
func (r *Registry) Merge(other *Registry) *Registry {
	merged := &Registry{
		order:  make([]string, 0, len(r.order)),
		chains: make(map[string]Descriptor, len(r.chains)),
	}
	for _, d := range r.All() {
		_ = merged.add(d)
	}
	if other != nil {
		for _, d := range other.All() {
			_ = merged.add(d)
		}
	}
	return merged
}

// Suggest returns the closest registered key to key, or "" when nothing is close.
func (r *Registry) Suggest(key string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range r.order {
		if dist := levenshtein.ComputeDistance(key, candidate); dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}

// ParseRegistry decodes a chain table in YAML or JSON form:
//
//	ethereum:
//	  chainId: 1
//	  name: Ethereum
//	  rpc: [https://eth.llamarpc.com]
//	  nativeCurrency: {name: Ether, symbol: ETH, decimals: 18}
//
// Document order is preserved.
func ParseRegistry(data []byte) (*Registry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid, err)
	}

	r, _ := NewRegistry()
	if len(root.Content) == 0 {
		return r, nil
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, tallyerr.WithDetails(tallyerr.ErrConfigInvalid, map[string]string{
			"reason": "chain table must be a mapping of chain key to descriptor",
		})
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var d Descriptor
		if err := mapping.Content[i+1].Decode(&d); err != nil {
			return nil, tallyerr.WithCause(tallyerr.ErrConfigInvalid, fmt.Errorf("chain %s: %w", mapping.Content[i].Value, err))
		}
		d.Key = mapping.Content[i].Value
		if err := r.add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
