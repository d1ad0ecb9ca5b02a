package output

import (
	"fmt"
	"io"
)

// Messenger prints progress and status lines. Decorated messengers prefix
// each line with a status glyph; plain ones (NO_COLOR, piped output) do not.
type Messenger struct {
	w     io.Writer
	plain bool
}

// NewMessenger creates a messenger writing to w.
func NewMessenger(w io.Writer, plain bool) *Messenger {
	return &Messenger{w: w, plain: plain}
}

// Info prints an informational line.
func (m *Messenger) Info(msg string) {
	m.line("ℹ️  ", msg)
}

// Infof prints a formatted informational line.
func (m *Messenger) Infof(format string, args ...any) {
	m.Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (m *Messenger) Warn(msg string) {
	m.line("⚠️  ", "warning: "+msg)
}

// Warnf prints a formatted warning line.
func (m *Messenger) Warnf(format string, args ...any) {
	m.Warn(fmt.Sprintf(format, args...))
}

// Success prints a success line.
func (m *Messenger) Success(msg string) {
	m.line("✅ ", msg)
}

// Successf prints a formatted success line.
func (m *Messenger) Successf(format string, args ...any) {
	m.Success(fmt.Sprintf(format, args...))
}

func (m *Messenger) line(prefix, msg string) {
	if m == nil || m.w == nil {
		return
	}
	if m.plain {
		prefix = ""
	}
	_, _ = fmt.Fprintln(m.w, prefix+msg)
}
