// FILE: src/internal/format/format.go
package format

import (
	"fmt"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter renders one destination call for display.
type Formatter interface {
	// Format returns the rendered call terminated by a newline.
	Format(call core.Record) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// Options configures the display formatters.
type Options struct {
	Pretty   bool   // indent JSON output
	Template string // text/template source for the text formatter
}

// New creates a Formatter by name. An empty name selects json.
func New(name string, opts Options, logger *log.Logger) (Formatter, error) {
	if name == "" {
		name = "json"
	}

	switch name {
	case "json":
		return NewJSONFormatter(opts, logger), nil
	case "text":
		return NewTextFormatter(opts, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
