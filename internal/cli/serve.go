package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mrz1836/tally/internal/config"
	"github.com/mrz1836/tally/internal/metrics"
	"github.com/mrz1836/tally/internal/price"
	"github.com/mrz1836/tally/internal/server"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

var (
	serveAddr        string
	servePriceAPIKey string
	servePriceURL    string
	serveNoPrices    bool
)

// serveCmd runs the HTTP API.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve balance lookups over HTTP",
	Long: `Start the HTTP API. Endpoints:

  POST /api/balance   {"address", "selectedChains", "selectedTokens"}
  GET  /api/chains    supported chains
  GET  /api/tokens    configured tokens per chain
  POST /api/prices    {"tokens": [...]} USD prices
  GET  /health        liveness
  GET  /metrics       Prometheus metrics

The config file is optional here. When present, its chainsFile, tokensFile,
customRpc, concurrency and rate limit settings apply to every request.`,
	Example: `  tally serve
  tally serve --addr 127.0.0.1:9000 -v`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "listen address")
	serveCmd.Flags().StringVar(&servePriceAPIKey, "price-api-key", "", "CoinGecko API key (default $"+config.EnvPriceAPIKey+")")
	serveCmd.Flags().StringVar(&servePriceURL, "price-url", price.DefaultBaseURL, "CoinGecko API base URL")
	serveCmd.Flags().BoolVar(&serveNoPrices, "no-prices", false, "disable /api/prices")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := configError(); err != nil {
		if !errors.Is(err, tallyerr.ErrConfigNotFound) {
			return err
		}
		Context().Messenger.Info("No config file found, serving built-in chains and tokens")
	}

	srv, err := newServer(Context())
	if err != nil {
		return err
	}

	log := Context().Logger
	if log.Level() < config.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.Writer(config.LogLevelDebug)
	gin.DefaultErrorWriter = log.Writer(config.LogLevelError)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Context().Messenger.Infof("Listening on %s", serveAddr)
	return srv.Run(ctx, serveAddr)
}

// newServer builds the HTTP server from the loaded configuration.
func newServer(cc *CommandContext) (*server.Server, error) {
	c := cc.Cfg
	registry, tokens, err := c.Registries()
	if err != nil {
		return nil, err
	}
	for key := range c.CustomRPC {
		if _, err := registry.Lookup(key); err != nil {
			return nil, err
		}
	}

	reg := metrics.NewRegistry()
	cc.WithMetrics(metrics.NewMetrics(reg))

	scfg := server.Config{
		Registry:     registry,
		Tokens:       tokens,
		Factory:      cc.ChainFactory,
		Policy:       c.BalancePolicy(),
		Limiter:      c.RateLimiter(),
		RPCOverrides: c.CustomRPC,
		Metrics:      cc.Metrics,
		Gatherer:     reg,
		Logger:       cc.Logger,
	}

	if !serveNoPrices {
		apiKey := servePriceAPIKey
		if apiKey == "" {
			apiKey = os.Getenv(config.EnvPriceAPIKey)
		}
		scfg.Prices = price.NewClient(&price.ClientOptions{
			BaseURL: servePriceURL,
			APIKey:  apiKey,
		})
	}

	return server.New(scfg), nil
}
