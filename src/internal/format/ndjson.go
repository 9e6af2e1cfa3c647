// FILE: src/internal/format/ndjson.go
package format

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultMaxLineBytes bounds a single NDJSON line.
const DefaultMaxLineBytes = 10 * 1024 * 1024

// Decoder reads newline-delimited JSON objects. Blank lines are skipped;
// lines that are not a single JSON object are dropped and counted.
type Decoder struct {
	maxLineBytes int
	logger       *log.Logger

	// Statistics
	linesRead      atomic.Uint64
	recordsDecoded atomic.Uint64
	malformedLines atomic.Uint64
	oversizedLines atomic.Uint64
}

// NewDecoder creates a decoder. Zero maxLineBytes selects the default.
func NewDecoder(maxLineBytes int, logger *log.Logger) *Decoder {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Decoder{
		maxLineBytes: maxLineBytes,
		logger:       logger,
	}
}

// Decode reads r to EOF. Only read failures are returned as errors; the
// records decoded before a failure are returned with it.
func (d *Decoder) Decode(r io.Reader) ([]core.Record, error) {
	var records []core.Record
	reader := bufio.NewReaderSize(r, 64*1024)
	lineNum := 0

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNum++
			if rec, ok := d.decodeLine(line, lineNum); ok {
				records = append(records, rec)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("read failed after %d lines: %w", lineNum, err)
		}
	}
}

// DecodeLine decodes one line. ok is false for blank or malformed lines.
func (d *Decoder) DecodeLine(line []byte) (core.Record, bool) {
	return d.decodeLine(line, 0)
}

func (d *Decoder) decodeLine(line []byte, lineNum int) (core.Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}
	d.linesRead.Add(1)

	if len(line) > d.maxLineBytes {
		d.oversizedLines.Add(1)
		d.logger.Warn("msg", "Dropping oversized input line",
			"component", "ndjson_decoder",
			"line", lineNum,
			"bytes", len(line),
			"max_line_bytes", d.maxLineBytes)
		return nil, false
	}

	rec, err := decodeObject(line)
	if err != nil {
		d.malformedLines.Add(1)
		d.logger.Debug("msg", "Dropping malformed input line",
			"component", "ndjson_decoder",
			"line", lineNum,
			"error", err)
		return nil, false
	}

	d.recordsDecoded.Add(1)
	return rec, true
}

// decodeObject keeps numbers as json.Number so they re-encode unchanged.
func decodeObject(data []byte) (core.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return rec, nil
}

// DecodeNDJSON is a one-shot Decode with default limits.
func DecodeNDJSON(r io.Reader, logger *log.Logger) ([]core.Record, error) {
	return NewDecoder(0, logger).Decode(r)
}

// GetStats returns decoder statistics.
func (d *Decoder) GetStats() map[string]any {
	return map[string]any{
		"lines_read":      d.linesRead.Load(),
		"records_decoded": d.recordsDecoded.Load(),
		"malformed_lines": d.malformedLines.Load(),
		"oversized_lines": d.oversizedLines.Load(),
	}
}
