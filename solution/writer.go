package solution

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// byteOrderMark starts every solution file Visual Studio writes.
const byteOrderMark = "\uFEFF"

// structuredWriter writes tab-indented, CRLF terminated lines. The first write
// error is kept and every later call becomes a no-op.
type structuredWriter struct {
	w      *bufio.Writer
	indent string
	tab    string
	err    error
}

func newStructuredWriter(w io.Writer) *structuredWriter {
	return &structuredWriter{w: bufio.NewWriter(w), tab: "\t"}
}

func (sw *structuredWriter) BeginIndent() {
	sw.indent += sw.tab
}

func (sw *structuredWriter) EndIndent() {
	sw.indent = strings.TrimSuffix(sw.indent, sw.tab)
}

// ScopeIndent runs infix one level deeper.
func (sw *structuredWriter) ScopeIndent(infix func()) {
	sw.BeginIndent()
	infix()
	sw.EndIndent()
}

func (sw *structuredWriter) Raw(s string) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.w.WriteString(s)
}

func (sw *structuredWriter) Println(format string, args ...any) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	sw.Raw(sw.indent + line + "\r\n")
}

// Flush writes buffered output and returns the first error encountered.
func (sw *structuredWriter) Flush() error {
	if sw.err != nil {
		return sw.err
	}
	return sw.w.Flush()
}
