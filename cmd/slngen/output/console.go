package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Verbosity levels
type Verbosity int

const (
	// VerbosityQuiet shows errors only
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows errors, warnings, and the generated solution path (default)
	VerbosityNormal
	// VerbosityDetailed shows above + loader progress
	VerbosityDetailed
	// VerbosityDiagnostic shows above + evaluation and cache details
	VerbosityDiagnostic
)

// ParseVerbosity maps q[uiet], m[inimal], n[ormal], d[etailed] and diag[nostic]
// to a Verbosity. Minimal is treated as normal.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "quiet":
		return VerbosityQuiet, nil
	case "", "m", "minimal", "n", "normal":
		return VerbosityNormal, nil
	case "d", "detailed":
		return VerbosityDetailed, nil
	case "diag", "diagnostic":
		return VerbosityDiagnostic, nil
	}
	return VerbosityNormal, fmt.Errorf("invalid verbosity %q (expected quiet, minimal, normal, detailed or diagnostic)", s)
}

// Console provides output abstraction
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole creates a new console
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	c := &Console{
		out:       out,
		err:       err,
		verbosity: verbosity,
		colors:    IsColorEnabled(),
	}

	if !c.colors {
		DisableColors()
	}

	return c
}

// DefaultConsole creates a console with stdout/stderr and normal verbosity
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// SetVerbosity sets the verbosity level
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// GetVerbosity returns the current verbosity level
func (c *Console) GetVerbosity() Verbosity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verbosity
}

// SetColors enables or disables color output
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
	if enabled {
		EnableColors()
	} else {
		DisableColors()
	}
}

// Println writes line to output
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

// Printf writes formatted output unless the console is quiet
func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verbosity == VerbosityQuiet {
		return
	}
	fmt.Fprintf(c.out, format, a...)
}

// Success writes success message (green)
func (c *Console) Success(format string, a ...any) {
	c.write(VerbosityNormal, c.out, ColorSuccess, "", format, a...)
}

// Error writes error message (red)
func (c *Console) Error(format string, a ...any) {
	c.write(VerbosityQuiet, c.err, ColorError, "Error: ", format, a...)
}

// Warning writes warning message (yellow)
func (c *Console) Warning(format string, a ...any) {
	c.write(VerbosityNormal, c.err, ColorWarning, "Warning: ", format, a...)
}

// Detail writes detailed message
func (c *Console) Detail(format string, a ...any) {
	c.write(VerbosityDetailed, c.out, nil, "", format, a...)
}

// Debug writes debug message (white)
func (c *Console) Debug(format string, a ...any) {
	c.write(VerbosityDiagnostic, c.out, ColorDebug, "[DEBUG] ", format, a...)
}

func (c *Console) write(min Verbosity, w io.Writer, col colorPrinter, prefix, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verbosity < min {
		return
	}
	if c.colors && col != nil {
		_, _ = col.Fprintf(w, prefix+format+"\n", a...)
		return
	}
	fmt.Fprintf(w, prefix+format+"\n", a...)
}
