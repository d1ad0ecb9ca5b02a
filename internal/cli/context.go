package cli

import (
	"github.com/mrz1836/tally/internal/chain"
	"github.com/mrz1836/tally/internal/chain/eth"
	"github.com/mrz1836/tally/internal/config"
	"github.com/mrz1836/tally/internal/metrics"
	"github.com/mrz1836/tally/internal/output"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg          *config.Config
	Logger       *config.Logger
	Formatter    *output.Formatter
	Messenger    *output.Messenger
	ChainFactory chain.Factory
	Metrics      *metrics.Metrics
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
	messenger *output.Messenger,
) *CommandContext {
	return &CommandContext{
		Cfg:          cfg,
		Logger:       logger,
		Formatter:    formatter,
		Messenger:    messenger,
		ChainFactory: eth.NewFactory(eth.SharedTransport()),
	}
}

// WithMetrics sets the metrics collector used by balance lookups.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}
