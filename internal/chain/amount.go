package chain

import (
	"math/big"
	"strings"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// ErrInvalidAmount indicates a decimal amount string could not be parsed.
var ErrInvalidAmount = &tallyerr.TallyError{
	Code:     "INVALID_AMOUNT",
	Message:  "invalid decimal amount",
	ExitCode: tallyerr.ExitInput,
}

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
// Digits beyond decimalPlaces are truncated.
func ParseDecimalAmount(amount string, decimalPlaces int) (*big.Int, error) {
	if amount == "" || strings.HasPrefix(amount, "-") {
		return nil, ErrInvalidAmount
	}

	intPart, decPart, _ := strings.Cut(amount, ".")
	if strings.Contains(decPart, ".") {
		return nil, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || !isDigits(decPart) {
		return nil, ErrInvalidAmount
	}

	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	result := new(big.Int).Mul(intVal, pow10(decimalPlaces))

	if decPart != "" && decimalPlaces > 0 {
		if len(decPart) < decimalPlaces {
			decPart += strings.Repeat("0", decimalPlaces-len(decPart))
		}
		decVal, ok := new(big.Int).SetString(decPart[:decimalPlaces], 10)
		if !ok {
			return nil, ErrInvalidAmount
		}
		result.Add(result, decVal)
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed, keeping at least one fractional digit.
// For example, 1500000000000000000 with 18 decimals returns "1.5", and 0 returns "0.0".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if decimalPlaces <= 0 {
		return amount.String() + ".0"
	}

	str := amount.String()

	// Pad with leading zeros if necessary
	if len(str) <= decimalPlaces {
		str = strings.Repeat("0", decimalPlaces-len(str)+1) + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]

	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	return result
}

// IsPositiveAmount reports whether a formatted decimal amount is greater than zero.
// Unparseable amounts are not positive.
func IsPositiveAmount(amount string) bool {
	intPart, decPart, _ := strings.Cut(amount, ".")
	v, err := ParseDecimalAmount(amount, len(decPart))
	if err != nil || intPart == "" && decPart == "" {
		return false
	}
	return v.Sign() > 0
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
