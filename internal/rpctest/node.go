// Package rpctest provides an in-process fake EVM JSON-RPC node for tests.
package rpctest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ERC-20 function selectors.
const (
	SelectorBalanceOf = "70a08231"
	SelectorDecimals  = "313ce567"
	SelectorSymbol    = "95d89b41"
)

type tokenMeta struct {
	symbol   string
	decimals uint8
}

// Node is a fake JSON-RPC node answering eth_chainId, eth_getBalance and
// ERC-20 eth_call reads from in-memory state.
type Node struct {
	server *httptest.Server

	mu            sync.Mutex
	chainID       uint64
	balances      map[string]*big.Int
	tokenBalances map[string]map[string]*big.Int
	meta          map[string]tokenMeta
	failMessage   string
	failRemaining int
	failAlways    bool
	hang          time.Duration
	calls         map[string]int
	total         int
}

// NewNode starts a fake node that is shut down when the test ends.
func NewNode(tb testing.TB, chainID uint64) *Node {
	tb.Helper()

	n := &Node{
		chainID:       chainID,
		balances:      make(map[string]*big.Int),
		tokenBalances: make(map[string]map[string]*big.Int),
		meta:          make(map[string]tokenMeta),
		calls:         make(map[string]int),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	tb.Cleanup(n.server.Close)
	return n
}

// URL returns the node's HTTP endpoint.
func (n *Node) URL() string {
	return n.server.URL
}

// Close stops the node; later requests fail with connection errors.
func (n *Node) Close() {
	n.server.Close()
}

// SetBalance sets the native balance of address in the smallest unit.
func (n *Node) SetBalance(address string, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[strings.ToLower(address)] = new(big.Int).Set(amount)
}

// SetTokenBalance sets balanceOf(holder) on the token contract.
func (n *Node) SetTokenBalance(token, holder string, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	token = strings.ToLower(token)
	if n.tokenBalances[token] == nil {
		n.tokenBalances[token] = make(map[string]*big.Int)
	}
	n.tokenBalances[token][strings.ToLower(holder)] = new(big.Int).Set(amount)
}

// SetTokenMetadata sets the values returned by symbol() and decimals().
func (n *Node) SetTokenMetadata(token, symbol string, decimals uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.meta[strings.ToLower(token)] = tokenMeta{symbol: symbol, decimals: decimals}
}

// FailAlways makes every request return a JSON-RPC error with message.
func (n *Node) FailAlways(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failAlways = true
	n.failMessage = message
}

// FailTimes makes the next count requests return a JSON-RPC error.
func (n *Node) FailTimes(count int, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failRemaining = count
	n.failMessage = message
}

// Hang delays every response by d or until the client gives up.
func (n *Node) Hang(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hang = d
}

// Calls returns how many requests for method were received. eth_call
// requests are also counted under their ERC-20 function name.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// TotalCalls returns the number of JSON-RPC requests received.
func (n *Node) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.total
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (n *Node) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	hang := n.hang
	n.mu.Unlock()
	if hang > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(hang):
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var batch []request
		if err := json.Unmarshal(raw, &batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := make([]response, len(batch))
		for i, req := range batch {
			out[i] = n.handle(req)
		}
		_ = json.NewEncoder(w).Encode(out)
		return
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(n.handle(req))
}

func (n *Node) handle(req request) response {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.total++
	n.calls[req.Method]++
	resp := response{JSONRPC: "2.0", ID: req.ID}

	if n.failAlways || n.failRemaining > 0 {
		if n.failRemaining > 0 {
			n.failRemaining--
		}
		resp.Error = &rpcError{Code: -32000, Message: n.failMessage}
		return resp
	}

	switch req.Method {
	case "eth_chainId":
		resp.Result = hexutil.EncodeUint64(n.chainID)
	case "eth_getBalance":
		var addr string
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &addr)
		}
		resp.Result = hexutil.EncodeBig(n.balanceOf(n.balances, addr))
	case "eth_call":
		result, err := n.call(req.Params)
		if err != nil {
			resp.Error = err
			return resp
		}
		resp.Result = hexutil.Encode(result)
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found: " + req.Method}
	}
	return resp
}

func (n *Node) call(params []json.RawMessage) ([]byte, *rpcError) {
	if len(params) == 0 {
		return nil, &rpcError{Code: -32602, Message: "missing call arguments"}
	}

	var msg struct {
		To    string `json:"to"`
		Input string `json:"input"`
		Data  string `json:"data"`
	}
	if err := json.Unmarshal(params[0], &msg); err != nil {
		return nil, &rpcError{Code: -32602, Message: err.Error()}
	}

	input := msg.Input
	if input == "" {
		input = msg.Data
	}
	data, err := hex.DecodeString(strings.TrimPrefix(input, "0x"))
	if err != nil || len(data) < 4 {
		return nil, &rpcError{Code: -32602, Message: "invalid call data"}
	}

	token := strings.ToLower(msg.To)
	switch hex.EncodeToString(data[:4]) {
	case SelectorBalanceOf:
		n.calls["balanceOf"]++
		if len(data) < 36 {
			return nil, &rpcError{Code: 3, Message: "execution reverted"}
		}
		holder := common.BytesToAddress(data[4:36]).Hex()
		return common.LeftPadBytes(n.balanceOf(n.tokenBalances[token], holder).Bytes(), 32), nil
	case SelectorDecimals:
		n.calls["decimals"]++
		meta, ok := n.meta[token]
		if !ok {
			return []byte{}, nil
		}
		return common.LeftPadBytes([]byte{meta.decimals}, 32), nil
	case SelectorSymbol:
		n.calls["symbol"]++
		meta, ok := n.meta[token]
		if !ok {
			return []byte{}, nil
		}
		return encodeString(meta.symbol), nil
	default:
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}
}

func (n *Node) balanceOf(m map[string]*big.Int, addr string) *big.Int {
	if v, ok := m[strings.ToLower(addr)]; ok {
		return v
	}
	return new(big.Int)
}

// encodeString ABI-encodes a single dynamic string return value.
func encodeString(s string) []byte {
	out := common.LeftPadBytes(big.NewInt(32).Bytes(), 32)
	out = append(out, common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)...)
	padded := (len(s) + 31) / 32 * 32
	return append(out, common.RightPadBytes([]byte(s), padded)...)
}
