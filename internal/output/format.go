// Package output renders balance results, errors and exports for the tally CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter with the specified format.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: w,
	}
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the output writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Print writes formatted output.
func (f *Formatter) Print(v any) error {
	if f.format == FormatJSON {
		return f.printJSON(v)
	}
	return f.printText(v)
}

// Printf writes formatted text output.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.writer, format, args...)
	return err
}

// Println writes a line of text output.
func (f *Formatter) Println(args ...any) error {
	_, err := fmt.Fprintln(f.writer, args...)
	return err
}

// Emit prints data as JSON, or text as its human-readable rendering.
func (f *Formatter) Emit(data any, text fmt.Stringer) error {
	if f.format == FormatJSON {
		return f.printJSON(data)
	}
	return f.printText(text)
}

// printJSON leaves HTML characters unescaped so RPC URLs with query strings
// stay readable.
func (f *Formatter) printJSON(v any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *Formatter) printText(v any) error {
	var err error
	switch val := v.(type) {
	case string:
		_, err = io.WriteString(f.writer, val+"\n")
	case fmt.Stringer:
		_, err = io.WriteString(f.writer, val.String()+"\n")
	default:
		_, err = fmt.Fprintf(f.writer, "%v\n", val)
	}
	return err
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	//nolint:gosec // G115: Fd() fits in int on supported platforms
	return ok && term.IsTerminal(int(f.Fd()))
}

// DetectFormat resolves FormatAuto: text for a terminal, JSON for pipes and
// files. An explicit format is returned unchanged.
func DetectFormat(w io.Writer, explicit Format) Format {
	switch {
	case explicit != FormatAuto:
		return explicit
	case IsTerminal(w):
		return FormatText
	default:
		return FormatJSON
	}
}

// ParseFormat parses a format name. Unknown names resolve to FormatAuto.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f
	default:
		return FormatAuto
	}
}
