package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/config"
	"github.com/mrz1836/tally/internal/server"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	usdc    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// resetFlags restores every package-level flag to its default.
func resetFlags() {
	configPath = config.DefaultConfigPath
	outputFormat = "auto"
	verbose = false

	queryShowZero = false
	queryNoExport = false

	configForce = false
	configChains = chain.Ethereum

	tokensChain = ""
	tokensVerify = false

	serveAddr = server.DefaultAddr
	servePriceAPIKey = ""
	servePriceURL = ""
	serveNoPrices = false

	clearChanged(rootCmd)
}

// clearChanged resets the Changed mark cobra leaves on parsed flags.
func clearChanged(cmd *cobra.Command) {
	unmark := func(f *pflag.Flag) { f.Changed = false }
	cmd.PersistentFlags().VisitAll(unmark)
	cmd.Flags().VisitAll(unmark)
	for _, sub := range cmd.Commands() {
		clearChanged(sub)
	}
}

// executeCommand runs the root command with args and returns what it wrote to
// stdout and stderr. Tests using it must not run in parallel.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeConfig writes body to a config file in a temp dir and returns its path.
func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
