package balance

// Record is the uniform result of one balance lookup. On success Balance
// holds the formatted amount and RawBalance the integer amount in the
// smallest unit. On failure Balance is "0", RawBalance is empty and Error
// carries the failure message.
type Record struct {
	Chain           string `json:"chain"`
	ChainKey        string `json:"chainKey"`
	Token           string `json:"token"`
	IsNative        bool   `json:"isNative"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Balance         string `json:"balance"`
	RawBalance      string `json:"rawBalance,omitempty"`
	Decimals        int    `json:"decimals"`
	Error           string `json:"error,omitempty"`
}

// Failed reports whether the lookup failed.
func (r Record) Failed() bool {
	return r.Error != ""
}

// QuerySpec describes one wallet query.
type QuerySpec struct {
	// Address is the wallet address.
	Address string
	// Chains are chain keys, queried and reported in this order.
	Chains []string
	// Tokens maps a chain key to token symbols; the native balance is always included.
	Tokens map[string][]string
	// RPCOverrides maps a chain key to an RPC URL used instead of the chain's default.
	RPCOverrides map[string]string
}

// WalletResult pairs a wallet address with its records.
type WalletResult struct {
	Address string   `json:"address"`
	Records []Record `json:"records"`
}

// Summary aggregates counts over a query's results.
type Summary struct {
	Wallets     int `json:"wallets"`
	Chains      int `json:"chains"`
	Records     int `json:"records"`
	WithBalance int `json:"withBalance"`
	Failed      int `json:"failed"`
}
