// FILE: src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/format"
	"segbridge/src/internal/transform"

	"github.com/lixenwraith/log"
)

// DefaultField is matched when a filter names no field.
const DefaultField = "event_type"

// Filter applies regex patterns to one field of a source record.
type Filter struct {
	config   config.FilterConfig
	field    *transform.PathExpr
	patterns []*regexp.Regexp
	mu       sync.RWMutex
	logger   *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
}

// NewFilter creates a filter from configuration. The field is a path
// expression and may use registered transforms.
func NewFilter(cfg config.FilterConfig, reg *transform.Registry, logger *log.Logger) (*Filter, error) {
	if cfg.Type == "" {
		cfg.Type = config.FilterTypeInclude
	}
	if cfg.Logic == "" {
		cfg.Logic = config.FilterLogicOr
	}
	if cfg.Field == "" {
		cfg.Field = DefaultField
	}
	if reg == nil {
		reg = transform.NewRegistry()
	}

	field, err := transform.CompileExpr(cfg.Field, reg)
	if err != nil {
		return nil, fmt.Errorf("invalid field '%s': %w", cfg.Field, err)
	}

	f := &Filter{
		config:   cfg,
		field:    field,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		logger:   logger,
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	logger.Debug("msg", "Filter created",
		"component", "filter",
		"type", cfg.Type,
		"logic", cfg.Logic,
		"field", cfg.Field,
		"pattern_count", len(cfg.Patterns))

	return f, nil
}

// Apply reports whether the record passes. A field that resolves to nothing
// is matched as the empty string.
func (f *Filter) Apply(record core.Record) bool {
	f.totalProcessed.Add(1)

	f.mu.RLock()
	patterns := f.patterns
	f.mu.RUnlock()

	// No patterns means pass everything
	if len(patterns) == 0 {
		return true
	}

	text := ""
	if v, ok := f.field.Resolve(record); ok {
		text = fieldText(v)
	}

	matched := matches(f.config.Logic, patterns, text)
	if matched {
		f.totalMatched.Add(1)
	}

	shouldPass := false
	switch f.config.Type {
	case config.FilterTypeInclude:
		shouldPass = matched
	case config.FilterTypeExclude:
		shouldPass = !matched
	}

	if !shouldPass {
		f.totalDropped.Add(1)
	}

	return shouldPass
}

func matches(logic config.FilterLogic, patterns []*regexp.Regexp, text string) bool {
	switch logic {
	case config.FilterLogicAnd:
		for _, re := range patterns {
			if !re.MatchString(text) {
				return false
			}
		}
		return true
	default:
		for _, re := range patterns {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}
}

// fieldText renders collections as compact JSON and scalars with %v.
func fieldText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		b, err := format.MarshalCompact(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// GetStats returns filter statistics
func (f *Filter) GetStats() map[string]any {
	f.mu.RLock()
	patternCount := len(f.patterns)
	f.mu.RUnlock()

	return map[string]any{
		"type":            f.config.Type,
		"logic":           f.config.Logic,
		"field":           f.config.Field,
		"pattern_count":   patternCount,
		"total_processed": f.totalProcessed.Load(),
		"total_matched":   f.totalMatched.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}

// UpdatePatterns swaps the pattern set. Nothing changes if any pattern fails
// to compile.
func (f *Filter) UpdatePatterns(patterns []string) error {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		compiled = append(compiled, re)
	}

	f.mu.Lock()
	f.patterns = compiled
	f.config.Patterns = patterns
	f.mu.Unlock()

	f.logger.Info("msg", "Filter patterns updated",
		"component", "filter",
		"pattern_count", len(patterns))
	return nil
}
