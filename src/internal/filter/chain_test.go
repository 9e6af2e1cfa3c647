// FILE: src/internal/filter/chain_test.go
package filter

import (
	"testing"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChain(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success", func(t *testing.T) {
		configs := []config.FilterConfig{
			{Type: config.FilterTypeInclude, Patterns: []string{"View"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"^_"}},
		}
		chain, err := NewChain(configs, nil, logger)
		require.NoError(t, err)
		assert.Equal(t, 2, chain.Len())
	})

	t.Run("ErrorInvalidRegexInChain", func(t *testing.T) {
		configs := []config.FilterConfig{
			{Patterns: []string{"apple"}},
			{Patterns: []string{"["}},
		}
		chain, err := NewChain(configs, nil, logger)
		assert.Error(t, err)
		assert.Nil(t, chain)
		assert.Contains(t, err.Error(), "filter[1]")
	})
}

func TestChain_Apply(t *testing.T) {
	logger := newTestLogger()
	record := event("pageView")

	t.Run("EmptyChain", func(t *testing.T) {
		chain, err := NewChain(nil, nil, logger)
		require.NoError(t, err)
		assert.True(t, chain.Apply(record))
	})

	t.Run("NilChain", func(t *testing.T) {
		var chain *Chain
		assert.True(t, chain.Apply(record))
		assert.Equal(t, 0, chain.Len())
	})

	t.Run("AllFiltersPass", func(t *testing.T) {
		chain, err := NewChain([]config.FilterConfig{
			{Patterns: []string{"page"}},
			{Field: "endpoint.Id", Patterns: []string{"abc"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"^_"}},
		}, nil, logger)
		require.NoError(t, err)
		assert.True(t, chain.Apply(record))
	})

	t.Run("OneFilterFails", func(t *testing.T) {
		chain, err := NewChain([]config.FilterConfig{
			{Patterns: []string{"page"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"View"}},
		}, nil, logger)
		require.NoError(t, err)
		assert.False(t, chain.Apply(record))
	})
}

func TestChain_Select(t *testing.T) {
	chain, err := NewChain([]config.FilterConfig{
		{Type: config.FilterTypeExclude, Patterns: []string{"^_"}},
	}, nil, newTestLogger())
	require.NoError(t, err)

	records := []core.Record{event("pageView"), event("_session.start"), event("click")}
	kept := chain.Select(records)

	require.Len(t, kept, 2)
	assert.Equal(t, "pageView", kept[0]["event_type"])
	assert.Equal(t, "click", kept[1]["event_type"])

	stats := chain.GetStats()
	assert.Equal(t, uint64(3), stats["total_processed"])
	assert.Equal(t, uint64(2), stats["total_passed"])
	assert.Equal(t, uint64(1), stats["total_dropped"])
}
