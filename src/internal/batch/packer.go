// FILE: src/internal/batch/packer.go
package batch

import (
	"fmt"
	"strings"
	"sync/atomic"

	"segbridge/src/internal/core"
	"segbridge/src/internal/format"

	"github.com/lixenwraith/log"
)

// Packer groups serialized calls into enveloped payloads under a byte
// ceiling. Packing is greedy and keeps input order.
type Packer struct {
	maxPayload int
	limit      int
	logger     *log.Logger

	// Statistics
	totalBatches   atomic.Uint64
	skippedEvents  atomic.Uint64
	oversizedCalls atomic.Uint64
}

// NewPacker creates a packer for payloads of at most maxPayloadBytes,
// envelope included. Zero selects the collector default.
func NewPacker(maxPayloadBytes int, logger *log.Logger) (*Packer, error) {
	if maxPayloadBytes == 0 {
		maxPayloadBytes = core.DefaultMaxPayloadBytes
	}
	if maxPayloadBytes <= core.BatchReserve+1 {
		return nil, fmt.Errorf("max payload %d bytes cannot hold the batch envelope", maxPayloadBytes)
	}

	return &Packer{
		maxPayload: maxPayloadBytes,
		limit:      maxPayloadBytes - core.BatchReserve,
		logger:     logger,
	}, nil
}

// Limit returns the byte budget for the content between the envelope brackets.
func (p *Packer) Limit() int {
	return p.limit
}

// Pack serializes each event's calls as one comma-joined chunk and packs the
// chunks. Events without calls are skipped, as are events that fail to
// serialize.
func (p *Packer) Pack(events [][]core.Record) []string {
	chunks := make([][]byte, 0, len(events))
	for i, calls := range events {
		chunk, err := format.FormatEvent(calls)
		if err != nil {
			p.skippedEvents.Add(1)
			p.logger.Warn("msg", "Failed to serialize event calls",
				"component", "batch_packer",
				"event_index", i,
				"error", err)
			continue
		}
		if len(chunk) == 0 {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return p.PackChunks(chunks)
}

// PackChunks packs pre-serialized chunks. A chunk is never split; a chunk
// larger than the limit gets a batch of its own.
func (p *Packer) PackChunks(chunks [][]byte) []string {
	var (
		batches []string
		cur     strings.Builder
		open    bool
	)

	closeBatch := func() {
		if open {
			batches = append(batches, fmt.Sprintf(core.BatchTemplate, cur.String()))
			cur.Reset()
			open = false
		}
	}

	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}

		if !open || cur.Len()+len(chunk)+1 > p.limit {
			closeBatch()
			cur.Write(chunk)
			open = true

			if len(chunk) > p.limit {
				p.oversizedCalls.Add(1)
				p.logger.Warn("msg", "Event exceeds payload ceiling, sending alone",
					"component", "batch_packer",
					"bytes", len(chunk)+core.BatchOverhead,
					"max_payload_bytes", p.maxPayload)
			}
			continue
		}

		cur.WriteByte(',')
		cur.Write(chunk)
	}
	closeBatch()

	p.totalBatches.Add(uint64(len(batches)))
	return batches
}

// GetStats returns packer statistics.
func (p *Packer) GetStats() map[string]any {
	return map[string]any{
		"max_payload_bytes": p.maxPayload,
		"total_batches":     p.totalBatches.Load(),
		"skipped_events":    p.skippedEvents.Load(),
		"oversized_events":  p.oversizedCalls.Load(),
	}
}
