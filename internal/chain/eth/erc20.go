package eth

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// erc20ABI covers the read-only ERC-20 methods used for balance lookups.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

//nolint:gochecknoglobals // parsed once, read-only afterwards
var (
	erc20Once   sync.Once
	erc20Parsed abi.ABI
	erc20Err    error
)

func erc20() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20Parsed, erc20Err = abi.JSON(strings.NewReader(erc20ABI))
	})
	return erc20Parsed, erc20Err
}

// unpackBigInt decodes a single uint256 return value.
func unpackBigInt(method string, data []byte) (*big.Int, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	v, ok := out.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedResult, method, out)
	}
	return v, nil
}

func unpackOne(method string, data []byte) (any, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data", ErrUnexpectedResult, method)
	}
	out, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrUnexpectedResult, method, len(out))
	}
	return out[0], nil
}
