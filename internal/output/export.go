package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/mrz1836/tally/internal/fileutil"
	"github.com/mrz1836/tally/internal/service/balance"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// NativeContract is written in the contract column for native balances.
const NativeContract = "Native"

// csvHeader is the column order of CSV exports.
var csvHeader = []string{"wallet", "chain", "token", "balance", "contractAddress", "error"}

// Report is one completed query, ready for export.
type Report struct {
	Timestamp time.Time
	Duration  time.Duration
	Wallets   []string
	Chains    []string
	Results   []balance.WalletResult
}

// jsonReport is the on-disk shape of a JSON export.
type jsonReport struct {
	Timestamp string                      `json:"timestamp"`
	Duration  string                      `json:"duration"`
	Wallets   []string                    `json:"wallets"`
	Chains    []string                    `json:"chains"`
	Results   map[string][]balance.Record `json:"results"`
}

// WriteJSON writes r as an indented JSON document.
func WriteJSON(w io.Writer, r Report) error {
	doc := jsonReport{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Duration:  FormatDuration(r.Duration),
		Wallets:   nonNil(r.Wallets),
		Chains:    nonNil(r.Chains),
		Results:   make(map[string][]balance.Record, len(r.Results)),
	}
	for _, res := range r.Results {
		records := res.Records
		if records == nil {
			records = []balance.Record{}
		}
		doc.Results[res.Address] = records
	}
	return writeJSON(w, doc)
}

// WriteCSV writes one row per record.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range r.Results {
		for _, rec := range res.Records {
			contract := rec.ContractAddress
			if contract == "" {
				contract = NativeContract
			}
			row := []string{res.Address, rec.Chain, rec.Token, rec.Balance, contract, rec.Error}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders r as an A4 report with one table per wallet.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("Wallet balances", false)
	pdf.SetCreator("tally", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "Wallet balances", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s in %s", r.Timestamp.UTC().Format(time.RFC3339), FormatDuration(r.Duration)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Chains: "+strings.Join(r.Chains, ", "), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)

	widths := []float64{42, 28, 62, 50}
	headers := []string{"Chain", "Token", "Balance", "Status"}

	for _, res := range r.Results {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Wallet "+res.Address, "", 1, "L", false, 0, "")

		if len(res.Records) == 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 6, "No balances to show.", "", 1, "L", false, 0, "")
			pdf.Ln(2)
			continue
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(235, 235, 235)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 6, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, rec := range res.Records {
			status := RecordStatus(rec)
			if rec.Failed() {
				status = truncate(rec.Error, 34)
			}
			pdf.CellFormat(widths[0], 6, rec.Chain, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, rec.Token, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[2], 6, FormatBalance(rec.Balance), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[3], 6, status, "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	s := balance.Summarize(r.Results)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, fmt.Sprintf("Wallets: %d\nChains: %d\nTokens queried: %d\nWith balance: %d\nFailed: %d",
		s.Wallets, s.Chains, s.Records, s.WithBalance, s.Failed), "", "L", false)

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// Exporter writes a report to a file.
type Exporter func(io.Writer, Report) error

// ExportFile writes r to path with export, replacing any existing file.
func ExportFile(path string, r Report, export Exporter) error {
	err := fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		return export(w, r)
	})
	if err != nil {
		return tallyerr.WithCause(tallyerr.WithDetails(tallyerr.ErrExportFailed, map[string]string{
			"path": path,
		}), err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
