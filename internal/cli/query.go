package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tally/internal/config"
	"github.com/mrz1836/tally/internal/output"
	"github.com/mrz1836/tally/internal/service/balance"
)

var (
	queryShowZero bool
	queryNoExport bool
)

// queryCmd runs a balance query described by the config file.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query balances for the configured wallets",
	Long: `Query native and token balances for every wallet and chain in the config
file, print them per wallet with a summary, then write the exports enabled
under 'output' (JSON, CSV, PDF).

When --config is not given and config.json is missing, config.example.json is
used instead.`,
	Example: `  tally query
  tally query --config wallets.yaml --show-zero
  tally query -o json --no-export`,
	RunE: runQuery,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().BoolVar(&queryShowZero, "show-zero", false, "include zero balances in output and exports")
	queryCmd.Flags().BoolVar(&queryNoExport, "no-export", false, "skip the JSON, CSV and PDF exports")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	if err := configError(); err != nil {
		return err
	}

	cc := Context()
	c := cc.Cfg
	if queryShowZero {
		c.Options.ShowZeroBalances = true
	}

	registry, tokens, err := c.Registries()
	if err != nil {
		return err
	}
	if err := c.Validate(registry); err != nil {
		return err
	}

	svc := balance.NewService(balance.Config{
		Registry:     registry,
		Tokens:       tokens,
		Factory:      cc.ChainFactory,
		Options:      c.BalanceOptions(),
		Policy:       c.BalancePolicy(),
		Limiter:      c.RateLimiter(),
		Metrics:      cc.Metrics,
		Logger:       cc.Logger,
		RPCOverrides: c.CustomRPC,
	})
	defer svc.Cleanup()

	cc.Messenger.Infof("Querying %d wallet(s) on %d chain(s): %s",
		len(c.Wallets), len(c.Chains), strings.Join(c.Chains, ", "))

	started := time.Now()
	results, err := svc.QueryMultipleWalletsOrdered(cmd.Context(), c.Wallets, c.Chains, c.Tokens, c.CustomRPC)
	if err != nil {
		return err
	}
	elapsed := time.Since(started)
	cc.Logger.Debug("query finished in %s", elapsed)

	report := output.Report{
		Timestamp: started,
		Duration:  elapsed,
		Wallets:   c.Wallets,
		Chains:    c.Chains,
		Results:   filterResults(results, c.Options.ShowZeroBalances),
	}

	if err := renderQuery(cc.Formatter, report, balance.Summarize(results)); err != nil {
		return err
	}

	if !queryNoExport {
		if err := exportReport(cc, c.Output, report); err != nil {
			return err
		}
	}

	cc.Messenger.Success("Query complete")
	return nil
}

// filterResults drops zero balances from each wallet unless showZero is set.
func filterResults(results []balance.WalletResult, showZero bool) []balance.WalletResult {
	filtered := make([]balance.WalletResult, len(results))
	for i, res := range results {
		filtered[i] = balance.WalletResult{
			Address: res.Address,
			Records: balance.FilterZeroBalances(res.Records, showZero),
		}
	}
	return filtered
}

// renderQuery prints the filtered results. JSON output is the export document
// itself; text output is one table per wallet plus the summary of all records.
func renderQuery(f *output.Formatter, report output.Report, summary balance.Summary) error {
	if f.IsJSON() {
		return output.WriteJSON(f.Writer(), report)
	}
	if err := output.RenderResults(f.Writer(), report.Results); err != nil {
		return err
	}
	if err := f.Println(); err != nil {
		return err
	}
	return output.RenderSummary(f.Writer(), summary, report.Duration)
}

type exportTarget struct {
	enabled  bool
	path     string
	fallback string
	export   output.Exporter
}

// exportReport writes every export enabled in out.
func exportReport(cc *CommandContext, out config.OutputConfig, report output.Report) error {
	targets := []exportTarget{
		{out.JSON, out.JSONFile, config.DefaultJSONFile, output.WriteJSON},
		{out.CSV, out.CSVFile, config.DefaultCSVFile, output.WriteCSV},
		{out.PDF, out.PDFFile, config.DefaultPDFFile, output.WritePDF},
	}

	for _, t := range targets {
		if !t.enabled {
			continue
		}
		path := t.path
		if path == "" {
			path = t.fallback
		}
		if err := output.ExportFile(path, report, t.export); err != nil {
			return err
		}
		cc.Logger.Info("exported results to %s", path)
		cc.Messenger.Successf("Results saved to %s", path)
	}
	return nil
}
