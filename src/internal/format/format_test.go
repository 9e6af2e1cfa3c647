// FILE: src/internal/format/format_test.go
package format

import (
	"encoding/json"
	"strings"
	"testing"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewFormatter(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name        string
		formatName  string
		expected    string
		expectError bool
	}{
		{name: "JSONFormatter", formatName: "json", expected: "json"},
		{name: "TextFormatter", formatName: "text", expected: "text"},
		{name: "DefaultToJSON", formatName: "", expected: "json"},
		{name: "UnknownFormatter", formatName: "xml", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			formatter, err := New(tc.formatName, Options{}, logger)
			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, formatter)
			} else {
				require.NoError(t, err)
				require.NotNil(t, formatter)
				assert.Equal(t, tc.expected, formatter.Name())
			}
		})
	}
}

func TestMarshalCompact(t *testing.T) {
	t.Run("NoHTMLEscaping", func(t *testing.T) {
		out, err := MarshalCompact(map[string]any{"url": "https://x/?a=1&b=<2>"})
		require.NoError(t, err)
		assert.Equal(t, `{"url":"https://x/?a=1&b=<2>"}`, string(out))
	})

	t.Run("SortedKeysNoNewline", func(t *testing.T) {
		out, err := MarshalCompact(map[string]any{"b": 1, "a": []any{true, nil}})
		require.NoError(t, err)
		assert.Equal(t, `{"a":[true,null],"b":1}`, string(out))
	})

	t.Run("NumbersPreserved", func(t *testing.T) {
		out, err := MarshalCompact(map[string]any{"sessions": json.Number("1.0")})
		require.NoError(t, err)
		assert.Equal(t, `{"sessions":1.0}`, string(out))
	})
}

func TestFormatEvent(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		out, err := FormatEvent(nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("CommaJoined", func(t *testing.T) {
		out, err := FormatEvent([]core.Record{{"type": "identify"}, {"type": "track"}})
		require.NoError(t, err)
		assert.Equal(t, `{"type":"identify"},{"type":"track"}`, string(out))
	})
}

func TestJSONFormatter_Format(t *testing.T) {
	logger := newTestLogger()
	call := core.Record{"type": "track", "event": "click"}

	t.Run("Compact", func(t *testing.T) {
		output, err := NewJSONFormatter(Options{}, logger).Format(call)
		require.NoError(t, err)
		assert.Equal(t, "{\"event\":\"click\",\"type\":\"track\"}\n", string(output))
	})

	t.Run("Pretty", func(t *testing.T) {
		output, err := NewJSONFormatter(Options{Pretty: true}, logger).Format(call)
		require.NoError(t, err)
		assert.Contains(t, string(output), `  "event": "click"`)
		assert.True(t, strings.HasSuffix(string(output), "}\n"))
	})
}

func TestTextFormatter(t *testing.T) {
	logger := newTestLogger()

	t.Run("InvalidTemplate", func(t *testing.T) {
		_, err := NewTextFormatter(Options{Template: "{{ .type | Nope }}"}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid template")
	})

	t.Run("DefaultTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(Options{}, logger)
		require.NoError(t, err)

		output, err := f.Format(core.Record{
			"type":        "page",
			"anonymousId": "abc",
			"name":        "Home",
		})
		require.NoError(t, err)
		assert.Equal(t, "[PAGE] anon=abc name=\"Home\"\n", string(output))
	})

	t.Run("CustomTemplate", func(t *testing.T) {
		f, err := NewTextFormatter(Options{Template: "{{.type}}:{{ JSON .traits }}"}, logger)
		require.NoError(t, err)

		output, err := f.Format(core.Record{"type": "identify", "traits": map[string]any{"plan": "pro"}})
		require.NoError(t, err)
		assert.Equal(t, "identify:{\"plan\":\"pro\"}\n", string(output))
	})
}
