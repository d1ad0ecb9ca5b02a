package output_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/output"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

func sampleReport() output.Report {
	return output.Report{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Duration:  1250 * time.Millisecond,
		Wallets:   []string{walletA, walletB},
		Chains:    []string{"ethereum", "bsc"},
		Results:   sampleResults(),
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.WriteJSON(&buf, sampleReport()))

	var doc struct {
		Timestamp string   `json:"timestamp"`
		Duration  string   `json:"duration"`
		Wallets   []string `json:"wallets"`
		Chains    []string `json:"chains"`
		Results   map[string][]struct {
			Chain           string `json:"chain"`
			Token           string `json:"token"`
			Balance         string `json:"balance"`
			ContractAddress string `json:"contractAddress"`
			Error           string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2026-03-14T09:30:00Z", doc.Timestamp)
	assert.Equal(t, "1.25s", doc.Duration)
	assert.Equal(t, []string{walletA, walletB}, doc.Wallets)
	assert.Equal(t, []string{"ethereum", "bsc"}, doc.Chains)
	require.Len(t, doc.Results[walletA], 3)
	assert.Equal(t, usdc, doc.Results[walletA][1].ContractAddress)
	assert.Equal(t, "connection refused", doc.Results[walletA][2].Error)
	assert.NotNil(t, doc.Results[walletB])
	assert.Empty(t, doc.Results[walletB])
	assert.Contains(t, buf.String(), "\""+walletB+"\": []")
}

func TestWriteJSON_EmptyReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.WriteJSON(&buf, output.Report{}))
	assert.Contains(t, buf.String(), `"wallets": []`)
	assert.Contains(t, buf.String(), `"results": {}`)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.WriteCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"wallet", "chain", "token", "balance", "contractAddress", "error"}, rows[0])
	assert.Equal(t, []string{walletA, "Ethereum", "ETH", "1.5", "Native", ""}, rows[1])
	assert.Equal(t, []string{walletA, "Ethereum", "USDC", "1234.5", usdc, ""}, rows[2])
	assert.Equal(t, []string{walletA, "BNB Smart Chain", "BNB", "0", "Native", "connection refused"}, rows[3])
}

func TestWriteCSV_QuotesFields(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.Results[0].Records[2].Error = `rpc error: "bad", retry later`

	var buf bytes.Buffer
	require.NoError(t, output.WriteCSV(&buf, report))
	assert.Contains(t, buf.String(), `"rpc error: ""bad"", retry later"`)
}

func TestWriteCSV_WriterError(t *testing.T) {
	t.Parallel()
	require.Error(t, output.WriteCSV(failingWriter{}, sampleReport()))
}

func TestWritePDF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.WritePDF(&buf, sampleReport()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestExportFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "balances.json")
	require.NoError(t, output.ExportFile(path, sampleReport(), output.WriteJSON))

	data, err := os.ReadFile(path) //nolint:gosec // G304: path from t.TempDir()
	require.NoError(t, err)
	assert.Contains(t, string(data), walletA)
}

func TestExportFile_Failure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := output.ExportFile(filepath.Join(blocker, "balances.csv"), sampleReport(), output.WriteCSV)
	require.ErrorIs(t, err, tallyerr.ErrExportFailed)

	var te *tallyerr.TallyError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, filepath.Join(blocker, "balances.csv"), te.Details["path"])
}
