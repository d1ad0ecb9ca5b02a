package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/output"
)

// chainsCmd lists the supported chains.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains",
	Long: `List every chain in the registry: the built-in chains plus any loaded from
the config's chainsFile. The RPC column shows the endpoint a query would use,
including customRpc and TALLY_RPC_<CHAIN> overrides.`,
	Example: `  tally chains
  tally chains -o json`,
	Args: cobra.NoArgs,
	RunE: runChains,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(chainsCmd)
}

// ChainInfo is one chain in the JSON listing.
type ChainInfo struct {
	chain.Descriptor

	ActiveRPC string `json:"activeRpc"`
}

func runChains(_ *cobra.Command, _ []string) error {
	cc := Context()
	registry, _, err := cc.Cfg.Registries()
	if err != nil {
		return err
	}

	infos := make([]ChainInfo, 0, registry.Len())
	for _, desc := range registry.All() {
		infos = append(infos, ChainInfo{
			Descriptor: desc,
			ActiveRPC:  activeRPC(desc, cc.Cfg.CustomRPC),
		})
	}

	return cc.Formatter.Emit(infos, chainTable(infos))
}

func chainTable(infos []ChainInfo) *output.Table {
	t := output.NewTable("KEY", "NAME", "CHAIN ID", "SYMBOL", "RPC")
	t.SetAlignment(2, output.AlignRight)
	for _, info := range infos {
		t.AddRow(
			info.Key,
			info.Name,
			strconv.FormatUint(info.ChainID, 10),
			info.Native.Symbol,
			info.ActiveRPC,
		)
	}
	return t
}

// activeRPC returns the override for desc when one is set, else its default.
func activeRPC(desc chain.Descriptor, overrides map[string]string) string {
	if rpcURL, ok := overrides[desc.Key]; ok && rpcURL != "" {
		return rpcURL
	}
	return desc.DefaultRPC()
}
