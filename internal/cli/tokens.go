package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/output"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// Verification statuses.
const (
	VerifyOK       = "ok"
	VerifyMismatch = "mismatch"
	VerifyError    = "error"
)

const (
	verifyTimeout     = 2 * time.Minute
	verifyConcurrency = 4
)

var (
	tokensChain  string
	tokensVerify bool
)

// tokensCmd lists configured tokens.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List configured ERC-20 tokens",
	Long: `List the token contracts known for each chain: the built-in table plus any
loaded from the config's tokensFile.

With --verify, each contract's symbol() and decimals() are read from the chain
and compared with the registry. A decimals mismatch would make every balance
for that token wrong by a power of ten.`,
	Example: `  tally tokens
  tally tokens --chain bsc
  tally tokens --chain ethereum --verify`,
	Args: cobra.NoArgs,
	RunE: runTokens,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&tokensChain, "chain", "", "only list tokens on this chain")
	tokensCmd.Flags().BoolVar(&tokensVerify, "verify", false, "check symbol and decimals against the chain")
	_ = tokensCmd.RegisterFlagCompletionFunc("chain", completeChainKeys)
}

// TokenInfo is one token in the listing.
type TokenInfo struct {
	Chain    string        `json:"chain"`
	Symbol   string        `json:"symbol"`
	Address  string        `json:"address"`
	Decimals int           `json:"decimals"`
	Verified *Verification `json:"verified,omitempty"`
}

// Verification is the on-chain metadata read for a token.
type Verification struct {
	Status   string `json:"status"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int    `json:"decimals,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runTokens(cmd *cobra.Command, _ []string) error {
	cc := Context()
	registry, tokens, err := cc.Cfg.Registries()
	if err != nil {
		return err
	}

	chainKeys := tokens.Chains()
	if tokensChain != "" {
		desc, err := registry.Lookup(tokensChain)
		if err != nil {
			return err
		}
		chainKeys = []string{desc.Key}
	}

	infos := listTokens(tokens, chainKeys)

	if tokensVerify {
		ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
		defer cancel()
		if err := verifyTokens(ctx, cc, registry, infos); err != nil {
			return err
		}
	}

	if len(infos) == 0 && !cc.Formatter.IsJSON() {
		return cc.Formatter.Println("No tokens configured.")
	}
	return cc.Formatter.Emit(infos, tokenTable(infos, tokensVerify))
}

func listTokens(tokens *chain.TokenRegistry, chainKeys []string) []TokenInfo {
	infos := make([]TokenInfo, 0)
	for _, key := range chainKeys {
		for _, tok := range tokens.ForChain(key) {
			infos = append(infos, TokenInfo{
				Chain:    key,
				Symbol:   tok.Symbol,
				Address:  tok.Address,
				Decimals: tok.Decimals,
			})
		}
	}
	return infos
}

// verifyTokens fills in Verified for every entry of infos. Lookup failures are
// recorded per token; only a failure to create a chain's client is returned.
func verifyTokens(ctx context.Context, cc *CommandContext, registry *chain.Registry, infos []TokenInfo) error {
	readers := make(map[string]chain.TokenMetadataReader)
	for _, info := range infos {
		if _, ok := readers[info.Chain]; ok {
			continue
		}
		desc, err := registry.Lookup(info.Chain)
		if err != nil {
			return err
		}
		client, err := cc.ChainFactory.NewClient(ctx, desc, activeRPC(desc, cc.Cfg.CustomRPC))
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				cc.Logger.Error("closing %s client: %v", desc.Key, err)
			}
		}()

		reader, ok := client.(chain.TokenMetadataReader)
		if !ok {
			return tallyerr.WithDetails(tallyerr.ErrGeneral, map[string]string{
				"chain":  desc.Key,
				"reason": "client cannot read token metadata",
			})
		}
		readers[info.Chain] = reader
	}

	timeout := cc.Cfg.BalanceOptions().Timeout
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i := range infos {
		info := &infos[i]
		reader := readers[info.Chain]
		g.Go(func() error {
			info.Verified = verifyToken(gctx, reader, *info, timeout)
			cc.Logger.Debug("verified %s/%s: %s", info.Chain, info.Symbol, info.Verified.Status)
			return nil
		})
	}
	return g.Wait()
}

func verifyToken(ctx context.Context, reader chain.TokenMetadataReader, info TokenInfo, timeout time.Duration) *Verification {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decimals, err := reader.TokenDecimals(ctx, info.Address)
	if err != nil {
		return &Verification{Status: VerifyError, Error: err.Error()}
	}
	symbol, err := reader.TokenSymbol(ctx, info.Address)
	if err != nil {
		return &Verification{Status: VerifyError, Decimals: int(decimals), Error: err.Error()}
	}

	v := &Verification{Status: VerifyOK, Symbol: symbol, Decimals: int(decimals)}
	if v.Decimals != info.Decimals || !strings.EqualFold(symbol, info.Symbol) {
		v.Status = VerifyMismatch
	}
	return v
}

func tokenTable(infos []TokenInfo, verified bool) *output.Table {
	headers := []string{"CHAIN", "SYMBOL", "ADDRESS", "DECIMALS"}
	if verified {
		headers = append(headers, "ON-CHAIN", "STATUS")
	}
	t := output.NewTable(headers...)
	t.SetAlignment(3, output.AlignRight)

	for _, info := range infos {
		row := []string{info.Chain, info.Symbol, info.Address, strconv.Itoa(info.Decimals)}
		if verified && info.Verified != nil {
			row = append(row, onChainSummary(info.Verified), info.Verified.Status)
		}
		t.AddRow(row...)
	}
	return t
}

func onChainSummary(v *Verification) string {
	if v.Status == VerifyError {
		return v.Error
	}
	return fmt.Sprintf("%s/%d", v.Symbol, v.Decimals)
}
