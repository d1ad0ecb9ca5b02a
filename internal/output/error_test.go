package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/output"
	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

var errDial = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("write failed") //nolint:err113 // test error
}

func unknownChain() error {
	err := tallyerr.WithDetails(tallyerr.ErrUnknownChain, map[string]string{"chain": "etherium"})
	return tallyerr.WithSuggestion(err, "Did you mean 'ethereum'?")
}

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()

	for _, format := range []output.Format{output.FormatJSON, output.FormatText} {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, nil, format))
		assert.Empty(t, buf.String())
	}
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, unknownChain(), output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, tallyerr.ErrUnknownChain.Code, result.Error.Code)
	assert.Equal(t, "etherium", result.Error.Details["chain"])
	assert.Equal(t, "Did you mean 'ethereum'?", result.Error.Suggestion)
	assert.Equal(t, tallyerr.ExitInput, result.Error.ExitCode)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"error\": {\n    \"code\":"))
}

func TestFormatError_JSONOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, tallyerr.ErrNoWallets, output.FormatJSON))
	assert.NotContains(t, buf.String(), "details")
	assert.NotContains(t, buf.String(), "suggestion")
}

func TestFormatError_GenericError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errDial, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, errDial.Error(), result.Error.Message)
	assert.Equal(t, tallyerr.ExitGeneral, result.Error.ExitCode)

	buf.Reset()
	require.NoError(t, output.FormatError(&buf, errDial, output.FormatText))
	assert.Equal(t, "Error: "+errDial.Error()+"\n", buf.String())
}

func TestFormatError_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, unknownChain(), output.FormatText))

	want := "Error: unsupported chain\n" +
		"\nDetails:\n  chain: etherium\n" +
		"\nSuggestion: Did you mean 'ethereum'?\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatError_TextIncludesCause(t *testing.T) {
	t.Parallel()

	err := tallyerr.WithCause(tallyerr.ErrConfigInvalid, fmt.Errorf("yaml: line 3: %w", errDial))

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))
	assert.Contains(t, buf.String(), "Cause: yaml: line 3: dial tcp")
}

func TestFormatError_TextDetailsSorted(t *testing.T) {
	t.Parallel()

	err := tallyerr.WithDetails(tallyerr.ErrInvalidAddress, map[string]string{
		"zulu":    "4",
		"alpha":   "1",
		"charlie": "3",
		"bravo":   "2",
	})

	var first string
	for i := 0; i < 5; i++ {
		var buf bytes.Buffer
		require.NoError(t, output.FormatError(&buf, err, output.FormatText))
		if i == 0 {
			first = buf.String()
			continue
		}
		assert.Equal(t, first, buf.String())
	}

	assert.Less(t, strings.Index(first, "alpha:"), strings.Index(first, "bravo:"))
	assert.Less(t, strings.Index(first, "bravo:"), strings.Index(first, "charlie:"))
	assert.Less(t, strings.Index(first, "charlie:"), strings.Index(first, "zulu:"))
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()

	require.Error(t, output.FormatError(failingWriter{}, unknownChain(), output.FormatText))
	require.Error(t, output.FormatError(failingWriter{}, unknownChain(), output.FormatJSON))
}

func TestNewErrorDetail_WrappedTallyError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("loading config: %w", tallyerr.ErrConfigNotFound)
	detail := output.NewErrorDetail(err)
	assert.Equal(t, tallyerr.ErrConfigNotFound.Code, detail.Code)
	assert.Equal(t, tallyerr.ExitNotFound, detail.ExitCode)
}

