package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/chain/eth"
	"github.com/mrz1836/tally/internal/config"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

var (
	configForce  bool
	configChains string
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the query configuration",
}

// configInitCmd writes a starter configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init [wallet...]",
	Short: "Write a starter configuration file",
	Long: `Write a configuration with default options to the --config path. Wallet
addresses given as arguments are validated and stored checksummed. The file is
JSON when the path ends in .json, YAML otherwise.

An existing file is only replaced with --force.`,
	Example: `  tally config init 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed
  tally config init --chains ethereum,bsc,polygon -c wallets.yaml
  tally config init --force`,
	RunE: runConfigInit,
}

// configShowCmd prints the effective configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults and environment overrides
(TALLY_* variables, NO_COLOR) are applied, as YAML or JSON.`,
	Example: `  tally config show
  tally config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing configuration")
	configInitCmd.Flags().StringVar(&configChains, "chains", chain.Ethereum, "comma-separated chain keys to query")
	_ = configInitCmd.RegisterFlagCompletionFunc("chains", completeChainKeys)
}

func runConfigInit(_ *cobra.Command, args []string) error {
	cc := Context()
	path := configPath

	if _, err := os.Stat(path); err == nil && !configForce {
		return tallyerr.WithSuggestion(
			tallyerr.WithDetails(tallyerr.ErrInvalidInput, map[string]string{"path": path}),
			"A configuration already exists. Use --force to overwrite it.",
		)
	}

	starter, err := starterConfig(args, configChains)
	if err != nil {
		return err
	}
	if err := config.Save(starter, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	cc.Logger.Info("wrote starter config to %s", path)
	cc.Messenger.Successf("Configuration written to %s", path)
	if len(starter.Wallets) == 0 {
		cc.Messenger.Warn("no wallets yet; add addresses under 'wallets' before running query")
	}
	return nil
}

// starterConfig builds the default configuration for the given wallets and
// comma-separated chain keys, rejecting bad addresses and unknown chains.
func starterConfig(wallets []string, chains string) (*config.Config, error) {
	registry := chain.DefaultRegistry()

	c := config.Defaults()
	c.Wallets = make([]string, 0, len(wallets))
	for _, w := range wallets {
		addr, err := eth.NormalizeAddress(strings.TrimSpace(w))
		if err != nil {
			return nil, err
		}
		c.Wallets = append(c.Wallets, addr)
	}

	for _, key := range strings.Split(chains, ",") {
		if key = strings.TrimSpace(key); key == "" {
			continue
		}
		desc, err := registry.Lookup(key)
		if err != nil {
			return nil, err
		}
		c.Chains = append(c.Chains, desc.Key)
	}
	if len(c.Chains) == 0 {
		return nil, tallyerr.ErrNoChains
	}
	return c, nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cc := Context()
	if err := configError(); err != nil {
		if !errors.Is(err, tallyerr.ErrConfigNotFound) {
			return err
		}
		cc.Messenger.Info("No config file found, showing defaults")
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(cc.Cfg)
	}
	data, err := yaml.Marshal(cc.Cfg)
	if err != nil {
		return err
	}
	return cc.Formatter.Printf("%s", data)
}
