package balance

import "github.com/mrz1836/tally/internal/chain"

// FilterZeroBalances drops successful zero-balance records unless showZero
// is set. Failed records are always kept.
func FilterZeroBalances(records []Record, showZero bool) []Record {
	if showZero {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Failed() || chain.IsPositiveAmount(r.Balance) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize counts wallets, distinct chains, records, positive balances and
// failures across results.
func Summarize(results []WalletResult) Summary {
	chains := make(map[string]struct{})
	summary := Summary{Wallets: len(results)}
	for _, wallet := range results {
		for _, r := range wallet.Records {
			chains[r.ChainKey] = struct{}{}
			summary.Records++
			switch {
			case r.Failed():
				summary.Failed++
			case chain.IsPositiveAmount(r.Balance):
				summary.WithBalance++
			}
		}
	}
	summary.Chains = len(chains)
	return summary
}
