package chain

// Chain keys of the built-in networks.
const (
	Ethereum  = "ethereum"
	BSC       = "bsc"
	Polygon   = "polygon"
	Arbitrum  = "arbitrum"
	Optimism  = "optimism"
	Base      = "base"
	Avalanche = "avalanche"
	Fantom    = "fantom"
)

func ether() Currency {
	return Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}
}

// DefaultDescriptors returns the built-in chain descriptors in display order.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			Key:     Ethereum,
			ChainID: 1,
			Name:    "Ethereum",
			RPC: []string{
				"https://eth.llamarpc.com",
				"https://rpc.ankr.com/eth",
				"https://ethereum.publicnode.com",
			},
			Explorer: "https://etherscan.io",
			Native:   ether(),
		},
		{
			Key:     BSC,
			ChainID: 56,
			Name:    "BNB Smart Chain",
			RPC: []string{
				"https://bsc-dataseed.binance.org",
				"https://rpc.ankr.com/bsc",
				"https://bsc.publicnode.com",
			},
			Explorer: "https://bscscan.com",
			Native:   Currency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		},
		{
			Key:     Polygon,
			ChainID: 137,
			Name:    "Polygon",
			RPC: []string{
				"https://polygon-rpc.com",
				"https://rpc.ankr.com/polygon",
				"https://polygon.llamarpc.com",
			},
			Explorer: "https://polygonscan.com",
			Native:   Currency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
		},
		{
			Key:     Arbitrum,
			ChainID: 42161,
			Name:    "Arbitrum One",
			RPC: []string{
				"https://arb1.arbitrum.io/rpc",
				"https://rpc.ankr.com/arbitrum",
				"https://arbitrum.llamarpc.com",
			},
			Explorer: "https://arbiscan.io",
			Native:   ether(),
		},
		{
			Key:     Optimism,
			ChainID: 10,
			Name:    "Optimism",
			RPC: []string{
				"https://mainnet.optimism.io",
				"https://rpc.ankr.com/optimism",
				"https://optimism.llamarpc.com",
			},
			Explorer: "https://optimistic.etherscan.io",
			Native:   ether(),
		},
		{
			Key:     Base,
			ChainID: 8453,
			Name:    "Base",
			RPC: []string{
				"https://mainnet.base.org",
				"https://base.llamarpc.com",
				"https://base.publicnode.com",
			},
			Explorer: "https://basescan.org",
			Native:   ether(),
		},
		{
			Key:     Avalanche,
			ChainID: 43114,
			Name:    "Avalanche C-Chain",
			RPC: []string{
				"https://api.avax.network/ext/bc/C/rpc",
				"https://rpc.ankr.com/avalanche",
				"https://avalanche.public-rpc.com",
			},
			Explorer: "https://snowtrace.io",
			Native:   Currency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
		},
		{
			Key:     Fantom,
			ChainID: 250,
			Name:    "Fantom",
			RPC: []string{
				"https://rpc.ftm.tools",
				"https://rpc.ankr.com/fantom",
				"https://fantom.publicnode.com",
			},
			Explorer: "https://ftmscan.com",
			Native:   Currency{Name: "Fantom", Symbol: "FTM", Decimals: 18},
		},
	}
}

// DefaultRegistry returns a registry of the built-in chains.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDescriptors()...)
	if err != nil {
		panic("chain: invalid built-in chain table: " + err.Error())
	}
	return r
}

// defaultTokenTable lists the built-in ERC-20 contracts per chain.
//
//nolint:gochecknoglobals // static table, copied by DefaultTokens
var defaultTokenTable = []struct {
	chain  string
	tokens []Token
}{
	{Ethereum, []Token{
		{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
	}},
	{BSC, []Token{
		{Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18},
		{Symbol: "USDC", Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18},
		{Symbol: "WBNB", Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Decimals: 18},
	}},
	{Polygon, []Token{
		{Symbol: "USDT", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
		{Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
		{Symbol: "WMATIC", Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Decimals: 18},
	}},
	{Arbitrum, []Token{
		{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
		{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		{Symbol: "ARB", Address: "0x912CE59144191C1204E64559FE8253a0e49E6548", Decimals: 18},
	}},
	{Optimism, []Token{
		{Symbol: "USDT", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: 6},
		{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6},
		{Symbol: "OP", Address: "0x4200000000000000000000000000000000000042", Decimals: 18},
	}},
	{Base, []Token{
		{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		{Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18},
	}},
	{Avalanche, []Token{
		{Symbol: "USDT", Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Decimals: 6},
		{Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6},
		{Symbol: "WAVAX", Address: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", Decimals: 18},
	}},
	{Fantom, []Token{
		{Symbol: "USDT", Address: "0x049d68029688eAbF473097a2fC38ef61633A3C7A", Decimals: 6},
		{Symbol: "USDC", Address: "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75", Decimals: 6},
		{Symbol: "WFTM", Address: "0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83", Decimals: 18},
	}},
}

// DefaultTokens returns a registry of the built-in token contracts.
func DefaultTokens() *TokenRegistry {
	r := NewTokenRegistry()
	for _, entry := range defaultTokenTable {
		for _, tok := range entry.tokens {
			if err := r.Add(entry.chain, tok); err != nil {
				panic("chain: invalid built-in token table: " + err.Error())
			}
		}
	}
	return r
}
