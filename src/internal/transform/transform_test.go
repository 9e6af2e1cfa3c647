// FILE: src/internal/transform/transform_test.go
package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"segbridge/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) core.Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var rec core.Record
	require.NoError(t, dec.Decode(&rec))
	return rec
}

func TestParseExpr(t *testing.T) {
	testCases := []struct {
		in   string
		path string
		fn   string
	}{
		{"endpoint.Id", "endpoint.Id", ""},
		{"event_timestamp|ms_to_iso8601", "event_timestamp", "ms_to_iso8601"},
		{"|hash_event", "", "hash_event"},
		{"a|b|c", "a", "b|c"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			e := ParseExpr(tc.in)
			assert.Equal(t, tc.path, e.Path)
			assert.Equal(t, tc.fn, e.Func)
			assert.Equal(t, tc.in, e.String())
		})
	}
}

func TestResolver_Fetch(t *testing.T) {
	src := decode(t, `{
		"endpoint": {"Id": "abc", "Attributes": {"DeviceMake": ["Apple"]}, "Nothing": null},
		"event_timestamp": 1643673911400,
		"flag": false,
		"empty": ""
	}`)
	r := NewResolver(nil)

	t.Run("NestedKey", func(t *testing.T) {
		v, ok, err := r.Fetch(src, "endpoint.Id")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", v)
	})

	t.Run("SequenceIndex", func(t *testing.T) {
		v, ok, err := r.Fetch(src, "endpoint.Attributes.DeviceMake.0")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Apple", v)

		_, ok, _ = r.Fetch(src, "endpoint.Attributes.DeviceMake.3")
		assert.False(t, ok)
	})

	t.Run("MissingAndNullAreAbsent", func(t *testing.T) {
		for _, expr := range []string{"endpoint.Missing", "nope.deeper.still", "endpoint.Nothing", "endpoint.Id.more"} {
			v, ok, err := r.Fetch(src, expr)
			require.NoError(t, err)
			assert.False(t, ok, expr)
			assert.Nil(t, v, expr)
		}
	})

	t.Run("FalsyValuesArePresent", func(t *testing.T) {
		v, ok, _ := r.Fetch(src, "flag")
		assert.True(t, ok)
		assert.Equal(t, false, v)

		v, ok, _ = r.Fetch(src, "empty")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("Static", func(t *testing.T) {
		for _, rec := range []core.Record{src, {}, nil} {
			v, ok, err := r.Fetch(rec, "Hello|static")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Hello", v)
		}
	})

	t.Run("TransformApplied", func(t *testing.T) {
		v, ok, err := r.Fetch(src, "event_timestamp|ms_to_iso8601")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2022-02-01T00:05:11+00:00", v)
	})

	t.Run("TransformSkippedWhenAbsent", func(t *testing.T) {
		_, ok, err := r.Fetch(src, "arrival_timestamp|ms_to_iso8601")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EmptyPathIsWholeRecord", func(t *testing.T) {
		a, ok, err := r.Fetch(src, "|hash_event")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Len(t, a, 32)

		b, _, _ := r.Fetch(src, "|hash_event")
		assert.Equal(t, a, b)
	})

	t.Run("UnknownTransform", func(t *testing.T) {
		_, _, err := r.Fetch(src, "endpoint.Id|shout")
		assert.ErrorIs(t, err, ErrUnknownTransform)
	})

	t.Run("Idempotent", func(t *testing.T) {
		a, okA, _ := r.Fetch(src, "endpoint.Attributes")
		b, okB, _ := r.Fetch(src, "endpoint.Attributes")
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	})
}

func TestTransform_Omission(t *testing.T) {
	src := decode(t, `{"a": {"x": 1, "list": [], "obj": {}}}`)

	spec := Spec{
		Path("x", "a.x"),
		Path("missing", "a.nope"),
		Path("emptyList", "a.list"),
		Path("emptyObj", "a.obj"),
		Omit("omitted"),
		Path("blank", ""),
		Nested("nested", Spec{Path("y", "a.nope")}),
		Nested("none", nil),
	}

	out, err := Transform(src, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"x": json.Number("1")}, out)
}

func TestTransform_MergeSequences(t *testing.T) {
	src := decode(t, `{"a": {"x": [1, 2], "y": [3]}}`)

	p, err := Compile(Spec{Merge("a.x"), Merge("a.y")}, nil)
	require.NoError(t, err)

	assert.Equal(t, []any{json.Number("1"), json.Number("2"), json.Number("3")}, p.Eval(src))

	out, err := Transform(src, Spec{Nested("values", Spec{Merge("a.x"), Merge("a.y")})}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"values": []any{json.Number("1"), json.Number("2"), json.Number("3")},
	}, out)
}

func TestTransform_MergeRecords(t *testing.T) {
	src := decode(t, `{
		"attributes": {"title": "T", "shared": "from-attributes"},
		"metrics": {"elapsed": 3, "shared": "from-metrics"},
		"scalar": "text",
		"empty": {}
	}`)

	spec := Spec{
		Path("shared", "attributes.title"),
		Merge("attributes"),
		Merge("metrics"),
		Merge("scalar"),
		Merge("empty"),
		Merge("missing"),
	}

	out, err := Transform(src, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"title":   "T",
		"elapsed": json.Number("3"),
		"shared":  "from-metrics",
	}, out)
}

func TestTransform_MergeSpec(t *testing.T) {
	src := decode(t, `{"a": "1", "b": "2"}`)

	out, err := Transform(src, Spec{
		Path("a", "a"),
		MergeSpec(Spec{Path("b", "b"), Path("c", "nope")}),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"a": "1", "b": "2"}, out)
}

func TestTransform_MixedLevel(t *testing.T) {
	src := decode(t, `{"list": ["p", "q"], "name": "n"}`)

	out, err := Transform(src, Spec{Path("name", "name"), Merge("list")}, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"name": "n", "0": "p", "1": "q"}, out)
}

func TestTransform_SourceNotMutated(t *testing.T) {
	src := decode(t, `{"attributes": {"k": {"deep": "v"}}}`)

	out, err := Transform(src, Spec{Merge("attributes"), Path("copy", "attributes.k")}, nil)
	require.NoError(t, err)

	out["k"].(map[string]any)["deep"] = "changed"
	out["copy"].(map[string]any)["deep"] = "changed too"

	assert.Equal(t, "v", src["attributes"].(map[string]any)["k"].(map[string]any)["deep"])
}

func TestCompile_UnknownTransform(t *testing.T) {
	spec := Spec{
		Nested("context", Spec{
			Path("timestamp", "ts|not_a_function"),
		}),
	}
	_, err := Compile(spec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTransform)
	assert.Contains(t, err.Error(), "context.timestamp")
}

func TestCompile_CustomRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("shout", func(v any) (any, bool) {
		s, ok := v.(string)
		return strings.ToUpper(s) + "!", ok
	}))

	out, err := Transform(core.Record{"w": "hi"}, Spec{Path("w", "w|shout")}, reg)
	require.NoError(t, err)
	assert.Equal(t, "HI!", out["w"])

	_, err = Compile(Spec{Path("w", "w|shout")}, NewRegistry())
	assert.ErrorIs(t, err, ErrUnknownTransform)
}

func TestSpec_Overlay(t *testing.T) {
	base := Spec{
		Path("type", "group|static"),
		Omit("messageId"),
		Path("userId", "endpoint.User.UserId"),
	}
	over := Spec{
		Path("groupId", "attributes.blogId"),
		Path("messageId", "endpoint.RequestId"),
	}

	got := base.Overlay(over)
	require.Len(t, got, 4)
	assert.Equal(t, "type", got[0].Key)
	assert.Equal(t, Path("messageId", "endpoint.RequestId"), got[1])
	assert.Equal(t, "groupId", got[3].Key)

	// base untouched
	assert.Equal(t, NodeOmit, base[1].Kind)
}

func TestSpec_Lookup(t *testing.T) {
	spec := Spec{
		Nested("context", Spec{
			Nested("page", Spec{Path("title", "attributes.title")}),
		}),
	}

	f, ok := spec.Lookup("context", "page", "title")
	require.True(t, ok)
	assert.Equal(t, "attributes.title", f.Expr)

	_, ok = spec.Lookup("context", "page", "title", "deeper")
	assert.False(t, ok)
	_, ok = spec.Lookup()
	assert.False(t, ok)
}
