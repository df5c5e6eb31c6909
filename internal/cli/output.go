package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Emit writes v as indented JSON in json mode, or calls text otherwise.
func (f *OutputFormatter) Emit(v any, text func(w io.Writer) error) error {
	if f.JSON() {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(f.Writer)
}

func (f *OutputFormatter) Printf(format string, args ...any) {
	fmt.Fprintf(f.Writer, format, args...)
}
