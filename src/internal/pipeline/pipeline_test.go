// FILE: src/internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"segbridge/src/internal/batch"
	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/dispatch"
	"segbridge/src/internal/filter"
	"segbridge/src/internal/segment"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// fakeSender answers each batch with the next scripted kind, success when
// the script runs out.
type fakeSender struct {
	mu      sync.Mutex
	script  []core.OutcomeKind
	batches []string
}

func (f *fakeSender) Send(_ context.Context, batches []string) []core.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batches...)

	out := make([]core.Outcome, len(batches))
	for i, b := range batches {
		kind := core.OutcomeSuccess
		if len(f.script) > 0 {
			kind, f.script = f.script[0], f.script[1:]
		}
		switch kind {
		case core.OutcomeSuccess:
			out[i] = dispatch.Classify(i, b, 200, "")
		case core.OutcomeApplicationError:
			out[i] = dispatch.Classify(i, b, 400, "")
		default:
			out[i] = dispatch.TransportError(i, b, errors.New("connection reset"))
		}
	}
	return out
}

type hookRecorder struct {
	mu    sync.Mutex
	hooks []string
}

func (h *hookRecorder) add(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, s)
}

func (h *hookRecorder) BeforeFormat(events []core.Record) {
	h.add(fmt.Sprintf("before_format:%d", len(events)))
}
func (h *hookRecorder) AfterFormat(calls [][]core.Record) {
	h.add(fmt.Sprintf("after_format:%d", len(calls)))
}
func (h *hookRecorder) BeforeSend(batches []string) {
	h.add(fmt.Sprintf("before_send:%d", len(batches)))
}
func (h *hookRecorder) AfterSend(outcomes []core.Outcome) {
	h.add(fmt.Sprintf("after_send:%d", len(outcomes)))
}
func (h *hookRecorder) OnOutcome(o core.Outcome) {
	h.add("outcome:" + o.Kind.String())
}

func pageView(id string) core.Record {
	return core.Record{
		"event_type":      "pageView",
		"event_timestamp": json.Number("1643673987555"),
		"endpoint":        map[string]any{"Id": id, "RequestId": "req-" + id},
		"attributes":      map[string]any{"title": "Page " + id, "url": "https://x/" + id},
	}
}

func newPipeline(t *testing.T, maxPayload int, sender Sender, observer core.Observer) *Pipeline {
	t.Helper()
	logger := newTestLogger()
	builder, err := segment.NewBuilder(nil, segment.Options{}, logger)
	require.NoError(t, err)
	packer, err := batch.NewPacker(maxPayload, logger)
	require.NoError(t, err)
	return New(builder, packer, sender, observer, logger)
}

func TestRun_Basic(t *testing.T) {
	sender := &fakeSender{}
	hooks := &hookRecorder{}
	p := newPipeline(t, 0, sender, hooks)

	res := p.Run(context.Background(), []core.Record{pageView("a"), pageView("b"), pageView("c")})

	_, err := uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Events)
	assert.Equal(t, 0, res.Filtered)
	// identify + page per event
	assert.Equal(t, 6, res.Calls)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Outcomes, 1)

	assert.Equal(t, []string{
		"before_format:3",
		"after_format:3",
		"before_send:1",
		"after_send:1",
	}, hooks.hooks)

	require.Len(t, sender.batches, 1)
	assert.True(t, strings.HasPrefix(sender.batches[0], `{"batch":[{`))
	assert.True(t, strings.HasSuffix(sender.batches[0], `}]}`))
}

func TestRun_Empty(t *testing.T) {
	sender := &fakeSender{}
	hooks := &hookRecorder{}
	p := newPipeline(t, 0, sender, hooks)

	res := p.Run(context.Background(), nil)

	assert.Equal(t, 0, res.Batches)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, sender.batches)
	assert.Equal(t, []string{"before_format:0", "after_format:0"}, hooks.hooks)
	assert.Equal(t, uint64(1), p.Stats.Runs())
}

func TestRun_Filters(t *testing.T) {
	sender := &fakeSender{}
	p := newPipeline(t, 0, sender, nil)

	chain, err := filter.NewChain([]config.FilterConfig{
		{Type: config.FilterTypeExclude, Field: "endpoint.Id", Patterns: []string{"^b$"}},
	}, nil, newTestLogger())
	require.NoError(t, err)
	p.WithFilters(chain)

	res := p.Run(context.Background(), []core.Record{pageView("a"), pageView("b")})
	assert.Equal(t, 2, res.Events)
	assert.Equal(t, 1, res.Filtered)
	assert.Equal(t, 2, res.Calls)
	require.Len(t, sender.batches, 1)
	assert.NotContains(t, sender.batches[0], `"anonymousId":"b"`)

	calls := p.Build([]core.Record{pageView("a"), pageView("b")})
	assert.Len(t, calls, 1)
}

func TestRun_FailuresCounted(t *testing.T) {
	sender := &fakeSender{script: []core.OutcomeKind{
		core.OutcomeSuccess,
		core.OutcomeApplicationError,
		core.OutcomeTransportError,
	}}
	// Each event's calls take a batch of their own
	p := newPipeline(t, 400, sender, nil)

	res := p.Run(context.Background(), []core.Record{pageView("a"), pageView("b"), pageView("c")})

	require.Equal(t, 3, res.Batches)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, core.OutcomeApplicationError, res.Outcomes[1].Kind)
	assert.Equal(t, core.OutcomeTransportError, res.Outcomes[2].Kind)

	stats := p.GetStats()
	assert.Equal(t, uint64(1), stats["batches_ok"])
	assert.Equal(t, uint64(2), stats["batches_failed"])
	assert.Equal(t, uint64(3), stats["total_batches"])
}

func TestRunNDJSON(t *testing.T) {
	sender := &fakeSender{}
	p := newPipeline(t, 0, sender, nil)

	input := `{"event_type":"pageView","endpoint":{"Id":"a"},"attributes":{"title":"T"}}
not json

{"event_type":"click","endpoint":{"Id":"b"}}
`
	res, err := p.RunNDJSON(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Events)
	assert.Equal(t, 4, res.Calls)
	assert.Equal(t, 1, res.Succeeded)

	decoder := p.GetStats()["decoder"].(map[string]any)
	assert.Equal(t, uint64(1), decoder["malformed_lines"])
}

func TestRun_EndToEndWithCollector(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		if strings.Contains(string(body), `"anonymousId":"bad"`) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := newTestLogger()
	stats := &StatsObserver{}
	hooks := &hookRecorder{}
	observer := MultiObserver{stats, hooks}

	sender, err := dispatch.New(dispatch.Options{
		WriteKey: "wk",
		Endpoint: srv.URL,
		Timeout:  2 * time.Second,
	}, observer, logger)
	require.NoError(t, err)

	p := newPipeline(t, 400, sender, observer)
	res := p.Run(context.Background(), []core.Record{pageView("a"), pageView("bad"), pageView("c")})

	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, dispatch.ReasonRejected, res.Outcomes[1].Reason)

	mu.Lock()
	require.Len(t, bodies, 3)
	for _, b := range bodies {
		var env struct {
			Batch []map[string]any `json:"batch"`
		}
		require.NoError(t, json.Unmarshal([]byte(b), &env))
		require.Len(t, env.Batch, 2)
		assert.Equal(t, "identify", env.Batch[0]["type"])
		assert.Equal(t, "page", env.Batch[1]["type"])
		assert.LessOrEqual(t, len(b), 400)
	}
	mu.Unlock()

	s := stats.GetStats()
	assert.Equal(t, uint64(2), s["request_success"])
	assert.Equal(t, uint64(1), s["application_errors"])

	outcomeHooks := 0
	for _, h := range hooks.hooks {
		if strings.HasPrefix(h, "outcome:") {
			outcomeHooks++
		}
	}
	assert.Equal(t, 3, outcomeHooks)
}
