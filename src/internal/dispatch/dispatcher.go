// FILE: src/internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	ltls "segbridge/src/internal/tls"
	"segbridge/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Outcome reasons for ApplicationError.
const (
	ReasonRejected   = "payload too large or malformed"
	ReasonUnexpected = "unexpected status"
)

// Options configures a Dispatcher.
type Options struct {
	WriteKey string
	Endpoint string

	// Per-request timeout, further bounded by the context deadline
	Timeout time.Duration

	// Maximum in-flight requests per Send, 0 = as many as the pool holds
	MaxConcurrency int

	// Connection pool size, 0 = fasthttp default
	MaxConnsPerHost int

	// Outbound request rate, 0 = unlimited
	RequestsPerSecond float64
	Burst             int

	TLS *config.TLSClientConfig
}

// OptionsFromConfig converts the [segment] config section.
func OptionsFromConfig(cfg *config.SegmentConfig) Options {
	return Options{
		WriteKey:          cfg.WriteKey,
		Endpoint:          cfg.Endpoint,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxConcurrency:    int(cfg.MaxConcurrency),
		MaxConnsPerHost:   int(cfg.MaxConnsPerHost),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             int(cfg.Burst),
		TLS:               cfg.TLS,
	}
}

// Dispatcher posts batch payloads to the collector and classifies each
// response. It never retries.
type Dispatcher struct {
	opts          Options
	authorization string

	client     *fasthttp.Client
	tlsManager *ltls.ClientManager
	limiter    *rate.Limiter

	// Effective per-Send in-flight limit
	inFlight int

	observer core.Observer
	logger   *log.Logger

	// Statistics
	totalRequests   atomic.Uint64
	succeeded       atomic.Uint64
	appErrors       atomic.Uint64
	transportErrors atomic.Uint64
	bytesSent       atomic.Uint64
	activeRequests  atomic.Int64
	lastSend        atomic.Value // time.Time
}

// New creates a dispatcher. A nil observer is replaced by core.NopObserver.
func New(opts Options, observer core.Observer, logger *log.Logger) (*Dispatcher, error) {
	if opts.WriteKey == "" {
		return nil, fmt.Errorf("segment write key is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = core.DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if observer == nil {
		observer = core.NopObserver{}
	}

	d := &Dispatcher{
		opts:          opts,
		authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte(opts.WriteKey+":")),
		observer:      observer,
		logger:        logger,
	}
	d.lastSend.Store(time.Time{})

	poolSize := opts.MaxConnsPerHost
	if poolSize <= 0 {
		poolSize = fasthttp.DefaultMaxConnsPerHost
	}
	d.inFlight = poolSize
	if opts.MaxConcurrency > 0 && opts.MaxConcurrency < poolSize {
		d.inFlight = opts.MaxConcurrency
	}

	// Waiting for a pooled connection is bounded by the request timeout,
	// so an exhausted pool never surfaces as ErrNoFreeConns
	d.client = &fasthttp.Client{
		MaxConnsPerHost:               poolSize,
		MaxConnWaitTimeout:            opts.Timeout,
		MaxIdleConnDuration:           10 * time.Second,
		ReadTimeout:                   opts.Timeout,
		WriteTimeout:                  opts.Timeout,
		DisableHeaderNamesNormalizing: true,
	}

	if opts.TLS != nil && opts.TLS.Enabled {
		tlsManager, err := ltls.NewClientManager(opts.TLS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS client manager: %w", err)
		}
		d.tlsManager = tlsManager
		d.client.TLSConfig = tlsManager.GetConfig()
	}

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	logger.Info("msg", "Dispatcher initialized",
		"component", "dispatcher",
		"endpoint", opts.Endpoint,
		"timeout", opts.Timeout,
		"max_concurrency", opts.MaxConcurrency,
		"max_conns_per_host", poolSize,
		"requests_per_second", opts.RequestsPerSecond)

	return d, nil
}

// NewFromConfig creates a dispatcher from the [segment] config section.
func NewFromConfig(cfg *config.SegmentConfig, observer core.Observer, logger *log.Logger) (*Dispatcher, error) {
	return New(OptionsFromConfig(cfg), observer, logger)
}

// Send posts every batch concurrently and waits for all of them. The result
// holds one outcome per batch, in input order. A failed batch never aborts
// its siblings. Batches beyond the connection pool wait for a free slot.
func (d *Dispatcher) Send(ctx context.Context, batches []string) []core.Outcome {
	outcomes := make([]core.Outcome, len(batches))
	if len(batches) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(d.inFlight)

	for i, batch := range batches {
		g.Go(func() error {
			outcome := d.sendOne(ctx, i, batch)
			outcomes[i] = outcome
			d.record(outcome)
			d.observer.OnOutcome(outcome)
			return nil
		})
	}
	_ = g.Wait()

	d.lastSend.Store(time.Now())
	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, index int, batch string) core.Outcome {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return TransportError(index, batch, fmt.Errorf("rate limiter: %w", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return TransportError(index, batch, err)
	}

	d.activeRequests.Add(1)
	defer d.activeRequests.Add(-1)
	d.totalRequests.Add(1)

	deadline := time.Now().Add(d.opts.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(d.opts.Endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", d.authorization)
	req.Header.Set("User-Agent", version.UserAgent())
	req.SetBodyString(batch)

	err := d.client.DoDeadline(req, resp, deadline)

	// Capture response before releasing
	statusCode := resp.StatusCode()
	body := string(resp.Body())

	fasthttp.ReleaseRequest(req)
	fasthttp.ReleaseResponse(resp)

	if err != nil {
		return TransportError(index, batch, fmt.Errorf("request failed: %w", err))
	}

	d.bytesSent.Add(uint64(len(batch)))
	return Classify(index, batch, statusCode, body)
}

func (d *Dispatcher) record(o core.Outcome) {
	switch o.Kind {
	case core.OutcomeSuccess:
		d.succeeded.Add(1)
		d.logger.Debug("msg", "Batch delivered",
			"component", "dispatcher",
			"batch_index", o.Index,
			"bytes", len(o.Batch))
	case core.OutcomeApplicationError:
		d.appErrors.Add(1)
	case core.OutcomeTransportError:
		d.transportErrors.Add(1)
	}
}

// Classify maps a collector response to an outcome. Only 200 is success.
func Classify(index int, batch string, statusCode int, body string) core.Outcome {
	o := core.Outcome{
		Index:      index,
		Batch:      batch,
		StatusCode: statusCode,
		Body:       body,
	}
	switch statusCode {
	case fasthttp.StatusOK:
		o.Kind = core.OutcomeSuccess
	case fasthttp.StatusBadRequest:
		o.Kind = core.OutcomeApplicationError
		o.Reason = ReasonRejected
	default:
		o.Kind = core.OutcomeApplicationError
		o.Reason = ReasonUnexpected
	}
	return o
}

// TransportError builds the outcome for a request that got no response.
func TransportError(index int, batch string, err error) core.Outcome {
	return core.Outcome{
		Kind:  core.OutcomeTransportError,
		Index: index,
		Batch: batch,
		Err:   err,
	}
}

// GetStats returns dispatcher statistics.
func (d *Dispatcher) GetStats() map[string]any {
	lastSend, _ := d.lastSend.Load().(time.Time)

	var tlsStats map[string]any
	if d.tlsManager != nil {
		tlsStats = d.tlsManager.GetStats()
	}

	return map[string]any{
		"endpoint":         d.opts.Endpoint,
		"total_requests":   d.totalRequests.Load(),
		"succeeded":        d.succeeded.Load(),
		"app_errors":       d.appErrors.Load(),
		"transport_errors": d.transportErrors.Load(),
		"bytes_sent":       d.bytesSent.Load(),
		"active_requests":  d.activeRequests.Load(),
		"max_in_flight":    d.inFlight,
		"last_send":        lastSend,
		"tls":              tlsStats,
	}
}
