package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// ErrorOutput is the JSON envelope for a rendered error.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the fields of a TallyError.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorDetail describes err. Errors that are not TallyErrors are reported
// as GENERAL_ERROR with their full message.
func NewErrorDetail(err error) ErrorDetail {
	var te *tallyerr.TallyError
	if errors.As(err, &te) {
		return ErrorDetail{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			ExitCode:   te.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     tallyerr.ErrGeneral.Code,
		Message:  err.Error(),
		ExitCode: tallyerr.ExitGeneral,
	}
}

// FormatError writes err to w in the given format. A nil error writes nothing.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}
	if format == FormatJSON {
		return writeJSON(w, ErrorOutput{Error: NewErrorDetail(err)})
	}
	return formatErrorText(w, err)
}

func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder

	var te *tallyerr.TallyError
	if !errors.As(err, &te) {
		fmt.Fprintf(&sb, "Error: %s\n", err.Error())
		_, writeErr := io.WriteString(w, sb.String())
		return writeErr
	}

	fmt.Fprintf(&sb, "Error: %s\n", te.Message)
	if te.Cause != nil {
		fmt.Fprintf(&sb, "Cause: %s\n", te.Cause.Error())
	}

	if len(te.Details) > 0 {
		keys := make([]string, 0, len(te.Details))
		for k := range te.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, te.Details[k])
		}
	}

	if te.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", te.Suggestion)
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
