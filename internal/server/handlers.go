package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/tally/internal/service/balance"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// BalanceRequest is the body of POST /api/balance.
type BalanceRequest struct {
	Address        string              `json:"address"`
	SelectedChains []string            `json:"selectedChains"`
	SelectedTokens map[string][]string `json:"selectedTokens"`
}

// BalanceResponse is a successful POST /api/balance reply.
type BalanceResponse struct {
	Success   bool             `json:"success"`
	Address   string           `json:"address"`
	Results   []balance.Record `json:"results"`
	Timestamp string           `json:"timestamp"`
}

// PriceRequest is the body of POST /api/prices.
type PriceRequest struct {
	Tokens []string `json:"tokens"`
}

// handleBalance queries one wallet across the selected chains.
// POST /api/balance
func (s *Server) handleBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, tallyerr.WithCause(tallyerr.ErrInvalidInput, err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	svc := balance.NewService(balance.Config{
		Registry:     s.cfg.Registry,
		Tokens:       s.cfg.Tokens,
		Factory:      s.cfg.Factory,
		Options:      s.cfg.Options,
		Policy:       s.cfg.Policy,
		Limiter:      s.cfg.Limiter,
		Metrics:      s.cfg.Metrics,
		Logger:       s.cfg.Logger,
		RPCOverrides: s.cfg.RPCOverrides,
	})
	defer svc.Cleanup()

	records, err := svc.QueryWallet(ctx, balance.QuerySpec{
		Address: req.Address,
		Chains:  req.SelectedChains,
		Tokens:  req.SelectedTokens,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Success:   true,
		Address:   req.Address,
		Results:   records,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleChains lists the supported chains in registry order.
// GET /api/chains
func (s *Server) handleChains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chains":  s.cfg.Registry.All(),
	})
}

// handleTokens lists configured tokens by chain key.
// GET /api/tokens
func (s *Server) handleTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tokens":  s.cfg.Tokens.All(),
	})
}

// handlePrices returns USD quotes for the requested symbols.
// POST /api/prices
func (s *Server) handlePrices(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tokens == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid tokens"})
		return
	}
	if s.cfg.Prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "price lookup is not configured"})
		return
	}

	quotes, err := s.cfg.Prices.USD(c.Request.Context(), req.Tokens)
	if err != nil {
		s.cfg.Logger.Error("[api] price lookup failed: %v id=%s", err, requestID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	prices := make(map[string]float64, len(quotes))
	for symbol, p := range quotes {
		prices[symbol] = p.InexactFloat64()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prices": prices})
}

// fail writes {error} with 400 for input errors and 500 otherwise.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if tallyerr.IsInputError(err) {
		status = http.StatusBadRequest
	} else {
		s.cfg.Logger.Error("[api] %s %s: %v id=%s", c.Request.Method, c.FullPath(), err, requestID(c))
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": tallyerr.Code(err)})
}
