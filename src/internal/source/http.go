// FILE: src/internal/source/http.go
package source

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"segbridge/src/internal/auth"
	"segbridge/src/internal/config"
	"segbridge/src/internal/format"
	ltls "segbridge/src/internal/tls"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// HTTPSource receives NDJSON event batches via HTTP POST and runs each
// request body through the pipeline.
type HTTPSource struct {
	host       string
	port       int64
	ingestPath string
	server     *fasthttp.Server
	listener   net.Listener
	run        RunFunc
	decoder    *format.Decoder

	authenticator *auth.Authenticator
	tlsManager    *ltls.ServerManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger

	// Statistics
	totalEvents     atomic.Uint64
	invalidRequests atomic.Uint64
	authFailures    atomic.Uint64
	runs            atomic.Uint64
	startTime       time.Time
	lastEventTime   atomic.Value // time.Time
}

// NewHTTPSource creates an ingest server. authCfg may be nil.
func NewHTTPSource(cfg config.HTTPSourceConfig, authCfg *config.AuthConfig, run RunFunc, logger *log.Logger) (*HTTPSource, error) {
	if run == nil {
		return nil, fmt.Errorf("http source requires a run function")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("http source requires valid port, got %d", cfg.Port)
	}

	ingestPath := cfg.IngestPath
	if ingestPath == "" {
		ingestPath = "/ingest"
	}

	authenticator, err := auth.New(authCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("http source auth: %w", err)
	}

	tlsManager, err := ltls.NewServerManager(cfg.TLS, logger)
	if err != nil {
		authenticator.Close()
		return nil, fmt.Errorf("http source tls: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &HTTPSource{
		host:          cfg.Host,
		port:          cfg.Port,
		ingestPath:    ingestPath,
		run:           run,
		decoder:       format.NewDecoder(0, logger),
		authenticator: authenticator,
		tlsManager:    tlsManager,
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
		logger:        logger,
	}
	h.lastEventTime.Store(time.Time{})

	h.server = &fasthttp.Server{
		Name:               "segbridge",
		Handler:            h.requestHandler,
		MaxRequestBodySize: int(cfg.MaxRequestBodySize),
		ReadTimeout:        time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout:       time.Duration(cfg.WriteTimeout) * time.Millisecond,
		CloseOnShutdown:    true,
		Logger:             fasthttpLogger{logger},
	}

	return h, nil
}

func (h *HTTPSource) Start() error {
	addr := net.JoinHostPort(h.host, strconv.FormatInt(h.port, 10))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http source listen on %s: %w", addr, err)
	}
	if h.tlsManager != nil {
		ln = tls.NewListener(ln, h.tlsManager.GetConfig())
	}
	h.listener = ln

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.server.Serve(ln); err != nil {
			h.logger.Error("msg", "HTTP source server failed",
				"component", "http_source",
				"addr", ln.Addr().String(),
				"error", err)
		}
	}()

	h.logger.Info("msg", "HTTP source started",
		"component", "http_source",
		"addr", ln.Addr().String(),
		"ingest_path", h.ingestPath,
		"tls", h.tlsManager != nil,
		"auth", h.authenticator.Type())
	return nil
}

// Addr returns the bound listener address, empty before Start.
func (h *HTTPSource) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPSource) Stop() {
	h.logger.Info("msg", "Stopping HTTP source", "component", "http_source")
	h.cancel()

	if h.listener != nil {
		if err := h.server.Shutdown(); err != nil {
			h.logger.Error("msg", "Error shutting down HTTP source server",
				"component", "http_source",
				"error", err)
		}
	}
	h.wg.Wait()
	h.authenticator.Close()

	h.logger.Info("msg", "HTTP source stopped", "component", "http_source")
}

func (h *HTTPSource) GetStats() SourceStats {
	lastEvent, _ := h.lastEventTime.Load().(time.Time)

	var tlsStats map[string]any
	if h.tlsManager != nil {
		tlsStats = h.tlsManager.GetStats()
	}

	return SourceStats{
		Type:          "http",
		TotalEvents:   h.totalEvents.Load(),
		InvalidLines:  h.decoder.GetStats()["malformed_lines"].(uint64),
		Runs:          h.runs.Load(),
		StartTime:     h.startTime,
		LastEventTime: lastEvent,
		Details: map[string]any{
			"addr":             h.Addr(),
			"ingest_path":      h.ingestPath,
			"invalid_requests": h.invalidRequests.Load(),
			"auth_failures":    h.authFailures.Load(),
			"auth":             h.authenticator.GetStats(),
			"tls":              tlsStats,
			"decoder":          h.decoder.GetStats(),
		},
	}
}

func (h *HTTPSource) requestHandler(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != h.ingestPath {
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]string{
			"error": "Not Found",
			"hint":  fmt.Sprintf("POST events to %s", h.ingestPath),
		})
		return
	}

	if !ctx.IsPost() {
		ctx.Response.Header.Set("Allow", fasthttp.MethodPost)
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, map[string]string{
			"error": "Method Not Allowed",
		})
		return
	}

	authHeader := string(ctx.Request.Header.Peek("Authorization"))
	if _, err := h.authenticator.AuthenticateHTTP(authHeader, ctx.RemoteAddr().String()); err != nil {
		h.authFailures.Add(1)
		h.logger.Warn("msg", "Ingest request rejected",
			"component", "http_source",
			"remote_addr", ctx.RemoteAddr().String(),
			"error", err)

		if errors.Is(err, auth.ErrRateLimited) {
			ctx.Response.Header.Set("Retry-After", "60")
			writeJSON(ctx, fasthttp.StatusTooManyRequests, map[string]string{"error": "Too Many Requests"})
			return
		}
		if h.authenticator.Type() == "basic" {
			ctx.Response.Header.Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", h.authenticator.Realm()))
		} else {
			ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(ctx, fasthttp.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	body := ctx.PostBody()
	if len(bytes.TrimSpace(body)) == 0 {
		h.invalidRequests.Add(1)
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{"error": "Empty request body"})
		return
	}

	events, err := h.decoder.Decode(bytes.NewReader(body))
	if err != nil {
		h.invalidRequests.Add(1)
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}
	if len(events) == 0 {
		h.invalidRequests.Add(1)
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{"error": "No valid events found"})
		return
	}

	h.totalEvents.Add(uint64(len(events)))
	h.lastEventTime.Store(time.Now())
	h.runs.Add(1)

	res := h.run(h.ctx, events)
	writeJSON(ctx, fasthttp.StatusAccepted, res)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(v)
}

// fasthttpLogger routes server errors into the structured logger.
type fasthttpLogger struct {
	logger *log.Logger
}

func (l fasthttpLogger) Printf(format string, args ...any) {
	l.logger.Debug("msg", fmt.Sprintf(format, args...), "component", "http_source")
}
