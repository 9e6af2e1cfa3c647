// FILE: src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/transform"

	"github.com/lixenwraith/log"
)

// Chain applies filters in order; a record must pass every one.
type Chain struct {
	filters []*Filter
	logger  *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
}

// NewChain creates a chain from filter configurations. An empty list passes
// every record.
func NewChain(configs []config.FilterConfig, reg *transform.Registry, logger *log.Logger) (*Chain, error) {
	chain := &Chain{
		filters: make([]*Filter, 0, len(configs)),
		logger:  logger,
	}

	for i, cfg := range configs {
		filter, err := NewFilter(cfg, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		chain.filters = append(chain.filters, filter)
	}

	if len(configs) > 0 {
		logger.Info("msg", "Filter chain created",
			"component", "filter_chain",
			"filter_count", len(configs))
	}
	return chain, nil
}

// Apply runs a record through all filters in the chain.
func (c *Chain) Apply(record core.Record) bool {
	if c == nil {
		return true
	}
	c.totalProcessed.Add(1)

	for i, filter := range c.filters {
		if !filter.Apply(record) {
			c.logger.Debug("msg", "Record filtered out",
				"component", "filter_chain",
				"filter_index", i,
				"filter_type", filter.config.Type)
			return false
		}
	}

	c.totalPassed.Add(1)
	return true
}

// Select returns the records that pass, in order.
func (c *Chain) Select(records []core.Record) []core.Record {
	if c == nil || len(c.filters) == 0 {
		if c != nil {
			c.totalProcessed.Add(uint64(len(records)))
			c.totalPassed.Add(uint64(len(records)))
		}
		return records
	}

	kept := make([]core.Record, 0, len(records))
	for _, r := range records {
		if c.Apply(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}

// GetStats returns aggregated statistics for the entire chain.
func (c *Chain) GetStats() map[string]any {
	if c == nil {
		return map[string]any{"filter_count": 0}
	}

	filterStats := make([]map[string]any, len(c.filters))
	for i, filter := range c.filters {
		filterStats[i] = filter.GetStats()
	}

	processed := c.totalProcessed.Load()
	passed := c.totalPassed.Load()
	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": processed,
		"total_passed":    passed,
		"total_dropped":   processed - passed,
		"filters":         filterStats,
	}
}
