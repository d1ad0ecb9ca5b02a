package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/output"
)

func TestFormatter_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)

	require.NoError(t, f.Print(map[string]string{"chain": "ethereum"}))

	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "ethereum", result["chain"])
	assert.Contains(t, buf.String(), "\n  \"chain\"")
	assert.True(t, f.IsJSON())
	assert.Equal(t, output.FormatJSON, f.Format())
	assert.Same(t, &buf, f.Writer())
}

func TestFormatter_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hello", "hello\n"},
		{"stringer", output.FormatJSON, "json\n"},
		{"other", 42, "42\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			f := output.NewFormatter(output.FormatText, &buf)
			require.NoError(t, f.Print(tt.value))
			assert.Equal(t, tt.want, buf.String())
			assert.False(t, f.IsJSON())
		})
	}
}

func TestFormatter_PrintfPrintln(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf)

	require.NoError(t, f.Printf("querying %s...\n", "bsc"))
	require.NoError(t, f.Println("done"))
	assert.Equal(t, "querying bsc...\ndone\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  output.Format
	}{
		{"json", output.FormatJSON},
		{" JSON ", output.FormatJSON},
		{"text", output.FormatText},
		{"Text", output.FormatText},
		{"auto", output.FormatAuto},
		{"", output.FormatAuto},
		{"yaml", output.FormatAuto},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, output.ParseFormat(tt.input))
		})
	}
}

func TestFormatter_Emit(t *testing.T) {
	t.Parallel()

	data := []map[string]string{{"rpc": "https://rpc.example/?key=a&b=c"}}
	table := output.NewTable("RPC")
	table.AddRow("https://rpc.example/?key=a&b=c")

	var jsonBuf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON, &jsonBuf).Emit(data, table))
	assert.Contains(t, jsonBuf.String(), `"rpc": "https://rpc.example/?key=a&b=c"`)

	var textBuf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatText, &textBuf).Emit(data, table))
	assert.Equal(t, table.String()+"\n", textBuf.String())
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	assert.False(t, output.IsTerminal(&buf))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatJSON))
	assert.Equal(t, output.FormatText, output.DetectFormat(&buf, output.FormatText))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatAuto), "non-terminal writers get JSON")
}

func TestDetectFormat_RegularFile(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.False(t, output.IsTerminal(f))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(f, output.FormatAuto))
}

func TestDetectFormat_TTY(t *testing.T) {
	if os.Getenv("TEST_TTY") == "" {
		t.Skip("set TEST_TTY=1 to run on a terminal")
	}
	assert.True(t, output.IsTerminal(os.Stdout))
	assert.Equal(t, output.FormatText, output.DetectFormat(os.Stdout, output.FormatAuto))
}
