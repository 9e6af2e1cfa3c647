// FILE: src/internal/service/service_test.go
package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"segbridge/src/internal/batch"
	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/pipeline"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Segment.WriteKey = "wk"
	return cfg
}

func pageView(id string) core.Record {
	return core.Record{
		"event_type": "pageView",
		"endpoint":   map[string]any{"Id": id, "RequestId": "req-" + id},
		"attributes": map[string]any{"title": "T", "blogId": "42", "blog": "News"},
	}
}

func TestNewComponents_DryRun(t *testing.T) {
	dir := t.TempDir()
	mappingPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(mappingPath, []byte(`groups:
  - groupId: attributes.blogId
    traits:
      name: attributes.blog
`), 0600))

	cfg := config.Defaults()
	cfg.Mapping.File = mappingPath
	cfg.Filters = []config.FilterConfig{{Type: config.FilterTypeExclude, Patterns: []string{"^_session"}}}

	c, err := NewComponents(cfg, true, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, c.Dispatcher)
	assert.Equal(t, 1, c.Builder.GroupCount())
	assert.Equal(t, 1, c.Filters.Len())

	res := c.Pipeline.Run(context.Background(), []core.Record{
		pageView("a"),
		{"event_type": "_session.start", "endpoint": map[string]any{"Id": "b"}},
	})
	assert.Equal(t, 1, res.Filtered)
	// identify + page + group
	assert.Equal(t, 3, res.Calls)
	assert.Equal(t, 1, res.Succeeded)

	stats := c.GetStats()
	assert.Contains(t, stats, "pipeline")
	assert.NotContains(t, stats, "dispatcher")
	assert.Equal(t, uint64(1), stats["requests"].(map[string]any)["request_success"])
}

func TestNewComponents_Errors(t *testing.T) {
	cfg := config.Defaults()
	_, err := NewComponents(cfg, false, newTestLogger())
	assert.Error(t, err, "write key required when sending")

	cfg = testConfig()
	cfg.Mapping.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewComponents(cfg, false, newTestLogger())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Filters = []config.FilterConfig{{Type: config.FilterTypeInclude, Patterns: []string{"("}}}
	_, err = NewComponents(cfg, false, newTestLogger())
	assert.Error(t, err)
}

type panicBuilder struct{}

func (panicBuilder) BuildEvents([]core.Record) [][]core.Record {
	panic("boom")
}

func TestRun_RecoversPanic(t *testing.T) {
	logger := newTestLogger()
	packer, err := batch.NewPacker(0, logger)
	require.NoError(t, err)

	c := &Components{Pipeline: pipeline.New(panicBuilder{}, packer, discardSender{}, nil, logger)}
	svc := New(context.Background(), c, logger)

	res := svc.Run(context.Background(), []core.Record{pageView("a")})
	assert.Equal(t, 1, res.Events)
	assert.Equal(t, 1, res.Failed)
}

func TestAddSourcesFromConfig_NoneEnabled(t *testing.T) {
	cfg := testConfig()
	c, err := NewComponents(cfg, true, newTestLogger())
	require.NoError(t, err)

	svc := New(context.Background(), c, newTestLogger())
	assert.Error(t, svc.AddSourcesFromConfig(cfg))
}

func TestService_HTTPIngestToCollector(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	cfg := testConfig()
	cfg.Segment.Endpoint = collector.URL
	cfg.HTTPSource.Enabled = true
	cfg.HTTPSource.Host = "127.0.0.1"
	cfg.HTTPSource.Port = 0

	logger := newTestLogger()
	c, err := NewComponents(cfg, false, logger)
	require.NoError(t, err)

	svc := New(context.Background(), c, logger)
	require.NoError(t, svc.AddSourcesFromConfig(cfg))
	require.Error(t, svc.AddSource("http", nil))
	require.NoError(t, svc.Start())
	svc.StartStatusReporter(10 * time.Millisecond)

	svc.mu.RLock()
	addr := svc.sources["http"].(interface{ Addr() string }).Addr()
	svc.mu.RUnlock()

	body := `{"event_type":"pageView","endpoint":{"Id":"a","RequestId":"r1"},"attributes":{"title":"Home"}}` + "\n"
	resp, err := http.Post("http://"+addr+"/ingest", "application/x-ndjson", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, int32(1), hits.Load())
	sent := lastBody.Load().(string)
	assert.True(t, strings.HasPrefix(sent, `{"batch":[`))
	assert.Contains(t, sent, `"type":"identify"`)
	assert.Contains(t, sent, `"messageId":"r1"`)

	stats := svc.GetGlobalStats()
	assert.Equal(t, 1, stats["total_sources"])
	assert.Contains(t, stats, "dispatcher")

	svc.Shutdown()
}
