package output

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/mrz1836/tally/internal/service/balance"
)

var (
	tinyThreshold = decimal.New(1, -6)
	oneUnit       = decimal.NewFromInt(1)
	thousand      = decimal.NewFromInt(1000)
)

// FormatBalance renders a decimal balance string for display:
//
//	0           -> "0"
//	< 0.000001  -> scientific, 4 fraction digits ("1.2345e-7")
//	< 1         -> 6 places
//	< 1000      -> 4 places
//	otherwise   -> thousands separators, at most 2 places ("1,234.5")
//
// Strings that are not decimals are returned unchanged.
func FormatBalance(amount string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return amount
	}
	if d.IsZero() {
		return "0"
	}

	abs := d.Abs()
	switch {
	case abs.LessThan(tinyThreshold):
		return scientific(d)
	case abs.LessThan(oneUnit):
		return d.StringFixed(6)
	case abs.LessThan(thousand):
		return d.StringFixed(4)
	}

	intPart, frac, _ := strings.Cut(abs.Round(2).String(), ".")
	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return amount
	}
	out := humanize.BigComma(n)
	if frac != "" {
		out += "." + frac
	}
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// scientific formats d as mantissa "e" exponent without exponent padding.
func scientific(d decimal.Decimal) string {
	s := strconv.FormatFloat(d.InexactFloat64(), 'e', 4, 64)
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

// RecordStatus is the status column value for r.
func RecordStatus(r balance.Record) string {
	if r.Failed() {
		return "failed"
	}
	return "ok"
}

// BalanceTable builds the chain/token/balance/status table for one wallet.
// Failed rows show their error text in the balance column.
func BalanceTable(records []balance.Record) *Table {
	t := NewTable("CHAIN", "TOKEN", "BALANCE", "STATUS")
	t.SetAlignment(2, AlignRight)
	for _, r := range records {
		shown := FormatBalance(r.Balance)
		if r.Failed() {
			shown = r.Error
		}
		t.AddRow(r.Chain, r.Token, shown, RecordStatus(r))
	}
	return t
}

// RenderResults writes one section per wallet. Wallets whose records were all
// filtered out get a placeholder line instead of a table.
func RenderResults(w io.Writer, results []balance.WalletResult) error {
	for i, res := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Wallet: %s\n%s\n", res.Address, strings.Repeat("-", 40)); err != nil {
			return err
		}
		if len(res.Records) == 0 {
			if _, err := fmt.Fprintln(w, "  (no balances, or all zero balances were hidden)"); err != nil {
				return err
			}
			continue
		}
		if err := BalanceTable(res.Records).Render(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderSummary writes the summary block followed by the elapsed time.
func RenderSummary(w io.Writer, s balance.Summary, elapsed time.Duration) error {
	rule := strings.Repeat("=", 40)
	t := NewTable()
	t.SetNoHeader(true)
	t.SetAlignment(1, AlignRight)
	t.AddRow("Wallets:", strconv.Itoa(s.Wallets))
	t.AddRow("Chains:", strconv.Itoa(s.Chains))
	t.AddRow("Tokens queried:", strconv.Itoa(s.Records))
	t.AddRow("With balance:", strconv.Itoa(s.WithBalance))
	t.AddRow("Failed:", strconv.Itoa(s.Failed))

	_, err := fmt.Fprintf(w, "%s\nSummary\n%s\n%s%s\nElapsed: %s\n",
		rule, rule, t.String(), rule, FormatDuration(elapsed))
	return err
}

// FormatDuration renders d in seconds with two decimals, e.g. "1.25s".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
