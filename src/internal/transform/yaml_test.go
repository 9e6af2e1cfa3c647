// FILE: src/internal/transform/yaml_test.go
package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSpec(t *testing.T) {
	doc := `
type: page|static
anonymousId: endpoint.Id
ip: ""
library: ~
context:
  locale: endpoint.Demographic.Locale
  keywords: []
traits:
  sessions: endpoint.Metrics.sessions
  0: endpoint.Attributes
properties:
  - attributes
  - metrics
`
	spec, err := ParseSpec([]byte(doc))
	require.NoError(t, err)
	require.Len(t, spec, 7)

	assert.Equal(t, Path("type", "page|static"), spec[0])
	assert.Equal(t, Path("anonymousId", "endpoint.Id"), spec[1])
	assert.Equal(t, NodeOmit, spec[2].Kind)
	assert.Equal(t, NodeOmit, spec[3].Kind)

	ctx := spec[4]
	assert.Equal(t, NodeNested, ctx.Kind)
	require.Len(t, ctx.Spec, 2)
	assert.Equal(t, NodeOmit, ctx.Spec[1].Kind)

	traits := spec[5]
	require.Len(t, traits.Spec, 2)
	assert.Equal(t, Merge("endpoint.Attributes"), traits.Spec[1])

	props := spec[6]
	assert.Equal(t, Spec{Merge("attributes"), Merge("metrics")}, props.Spec)
}

func TestParseSpec_Errors(t *testing.T) {
	_, err := ParseSpec([]byte("just a string"))
	assert.Error(t, err)

	_, err = ParseSpec([]byte("a: [b: c"))
	assert.Error(t, err)
}

func TestSpec_YAMLRoundTrip(t *testing.T) {
	spec := Spec{
		Path("type", "track|static"),
		Omit("ip"),
		Nested("properties", Spec{Merge("attributes"), Merge("metrics")}),
		Path("event", "event_type"),
	}

	data, err := yaml.Marshal(spec)
	require.NoError(t, err)

	// Key order survives encoding
	assert.Regexp(t, `(?s)type:.*ip:.*properties:.*event:`, string(data))

	back, err := ParseSpec(data)
	require.NoError(t, err)
	assert.Equal(t, spec, back)
}
