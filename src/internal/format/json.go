// FILE: src/internal/format/json.go
package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// MarshalCompact encodes v without insignificant whitespace and without
// HTML escaping. Map keys are sorted, so equal values encode identically.
func MarshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder terminates every value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// JSONFormatter renders calls as JSON, one per line unless pretty.
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts Options, logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{
		pretty: opts.Pretty,
		logger: logger,
	}
}

// Format renders a single call.
func (f *JSONFormatter) Format(call core.Record) ([]byte, error) {
	var (
		result []byte
		err    error
	)
	if f.pretty {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		err = enc.Encode(call)
		result = bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	} else {
		result, err = MarshalCompact(call)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatEvent joins the compact encodings of one event's calls with commas.
// It returns nil for an event without calls.
func FormatEvent(calls []core.Record) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for i, call := range calls {
		data, err := MarshalCompact(call)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
