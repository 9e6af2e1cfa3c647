// FILE: src/internal/filter/filter_test.go
package filter

import (
	"encoding/json"
	"testing"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func event(eventType string) core.Record {
	return core.Record{
		"event_type": eventType,
		"endpoint": map[string]any{
			"Id":         "abc",
			"Attributes": map[string]any{"Audience": []any{"beta", "staff"}},
		},
		"metrics": map[string]any{"scrollDepth": json.Number("75")},
	}
}

func TestNewFilter(t *testing.T) {
	logger := newTestLogger()

	t.Run("SuccessWithDefaults", func(t *testing.T) {
		f, err := NewFilter(config.FilterConfig{Patterns: []string{"test"}}, nil, logger)
		require.NoError(t, err)
		assert.Equal(t, config.FilterTypeInclude, f.config.Type)
		assert.Equal(t, config.FilterLogicOr, f.config.Logic)
		assert.Equal(t, DefaultField, f.config.Field)
	})

	t.Run("ErrorInvalidRegex", func(t *testing.T) {
		f, err := NewFilter(config.FilterConfig{Patterns: []string{"["}}, nil, logger)
		assert.Error(t, err)
		assert.Nil(t, f)
		assert.Contains(t, err.Error(), "invalid regex pattern")
	})

	t.Run("ErrorUnknownTransform", func(t *testing.T) {
		_, err := NewFilter(config.FilterConfig{Field: "event_type|nope"}, nil, logger)
		assert.ErrorContains(t, err, "invalid field")
	})
}

func TestFilter_Apply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name     string
		cfg      config.FilterConfig
		record   core.Record
		expected bool
	}{
		{
			name:     "IncludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"^pageView$", "^_session"}},
			record:   event("pageView"),
			expected: true,
		},
		{
			name:     "IncludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"^pageView$", "^_session"}},
			record:   event("click"),
			expected: false,
		},
		{
			name:     "IncludeAND_MatchAll",
			cfg:      config.FilterConfig{Logic: config.FilterLogicAnd, Patterns: []string{"^_session", "start$"}},
			record:   event("_session.start"),
			expected: true,
		},
		{
			name:     "IncludeAND_MatchOne",
			cfg:      config.FilterConfig{Logic: config.FilterLogicAnd, Patterns: []string{"^_session", "start$"}},
			record:   event("_session.stop"),
			expected: false,
		},
		{
			name:     "ExcludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Patterns: []string{"^_"}},
			record:   event("_session.start"),
			expected: false,
		},
		{
			name:     "ExcludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Patterns: []string{"^_"}},
			record:   event("pageView"),
			expected: true,
		},
		{
			name:     "NoPatterns",
			cfg:      config.FilterConfig{},
			record:   core.Record{},
			expected: true,
		},
		{
			name:     "MissingFieldIsEmptyString",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"^$"}},
			record:   core.Record{"other": "x"},
			expected: true,
		},
		{
			name:     "NestedField",
			cfg:      config.FilterConfig{Field: "endpoint.Id", Patterns: []string{"^abc$"}},
			record:   event("click"),
			expected: true,
		},
		{
			name:     "CollectionFieldAsJSON",
			cfg:      config.FilterConfig{Field: "endpoint.Attributes.Audience", Patterns: []string{`"staff"`}},
			record:   event("click"),
			expected: true,
		},
		{
			name:     "NumberField",
			cfg:      config.FilterConfig{Field: "metrics.scrollDepth", Patterns: []string{"^75$"}},
			record:   event("click"),
			expected: true,
		},
		{
			name:     "TransformedField",
			cfg:      config.FilterConfig{Field: "event_type|upper", Patterns: []string{"^PAGEVIEW$"}},
			record:   event("pageView"),
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFilter(tc.cfg, nil, logger)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, f.Apply(tc.record))
		})
	}
}

func TestFilter_Stats(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{Type: config.FilterTypeExclude, Patterns: []string{"^_"}}, nil, newTestLogger())
	require.NoError(t, err)

	f.Apply(event("_session.start"))
	f.Apply(event("pageView"))
	f.Apply(event("_session.stop"))

	stats := f.GetStats()
	assert.Equal(t, uint64(3), stats["total_processed"])
	assert.Equal(t, uint64(2), stats["total_matched"])
	assert.Equal(t, uint64(2), stats["total_dropped"])
}

func TestFilter_UpdatePatterns(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{Patterns: []string{"^pageView$"}}, nil, newTestLogger())
	require.NoError(t, err)
	assert.False(t, f.Apply(event("click")))

	require.NoError(t, f.UpdatePatterns([]string{"^click$"}))
	assert.True(t, f.Apply(event("click")))

	err = f.UpdatePatterns([]string{"ok", "["})
	assert.Error(t, err)
	// Previous patterns survive a failed update
	assert.True(t, f.Apply(event("click")))
}
