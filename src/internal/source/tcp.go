// FILE: src/internal/source/tcp.go
package source

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	defaultFlushRecords  = 1000
	defaultFlushInterval = time.Second
)

// TCPSource receives NDJSON events over plain TCP connections. Events from
// all connections are pooled and run when FlushRecords are pending or the
// flush interval elapses.
type TCPSource struct {
	host          string
	port          int64
	flushRecords  int
	flushInterval time.Duration
	maxLineBytes  int
	run           RunFunc
	decoder       *format.Decoder
	server        *tcpSourceServer

	engine   *gnet.Engine
	engineMu sync.Mutex
	booted   chan struct{}

	pending   []core.Record
	pendingMu sync.Mutex
	flushCh   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger

	// Statistics
	totalEvents    atomic.Uint64
	oversizedConns atomic.Uint64
	activeConns    atomic.Int64
	runs           atomic.Uint64
	startTime      time.Time
	lastEventTime  atomic.Value // time.Time
}

// NewTCPSource creates a TCP ingest source.
func NewTCPSource(cfg config.TCPSourceConfig, run RunFunc, logger *log.Logger) (*TCPSource, error) {
	if run == nil {
		return nil, fmt.Errorf("tcp source requires a run function")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("tcp source requires valid port, got %d", cfg.Port)
	}

	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}

	flushRecords := int(cfg.FlushRecords)
	if flushRecords <= 0 {
		flushRecords = defaultFlushRecords
	}
	flushInterval := time.Duration(cfg.FlushIntervalMs) * time.Millisecond
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	maxLineBytes := int(cfg.MaxLineBytes)
	if maxLineBytes <= 0 {
		maxLineBytes = format.DefaultMaxLineBytes
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &TCPSource{
		host:          host,
		port:          cfg.Port,
		flushRecords:  flushRecords,
		flushInterval: flushInterval,
		maxLineBytes:  maxLineBytes,
		run:           run,
		decoder:       format.NewDecoder(maxLineBytes, logger),
		booted:        make(chan struct{}),
		flushCh:       make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
		logger:        logger,
	}
	t.lastEventTime.Store(time.Time{})
	return t, nil
}

func (t *TCPSource) Start() error {
	t.server = &tcpSourceServer{
		source:  t,
		clients: make(map[gnet.Conn]*tcpClient),
	}

	addr := fmt.Sprintf("tcp://%s:%d", t.host, t.port)
	gnetLogger := compat.NewGnetAdapter(t.logger)

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := gnet.Run(t.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP source server failed",
				"component", "tcp_source",
				"port", t.port,
				"error", err)
		}
		errChan <- err
	}()

	select {
	case err := <-errChan:
		t.cancel()
		t.wg.Wait()
		if err == nil {
			err = fmt.Errorf("tcp source exited during startup")
		}
		return err
	case <-t.booted:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("tcp source did not start within 5s")
	}

	t.wg.Add(1)
	go t.flushLoop()

	t.logger.Info("msg", "TCP source started",
		"component", "tcp_source",
		"addr", addr,
		"flush_records", t.flushRecords,
		"flush_interval", t.flushInterval)
	return nil
}

// Stop closes all connections and runs any pending events.
func (t *TCPSource) Stop() {
	t.logger.Info("msg", "Stopping TCP source", "component", "tcp_source")

	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := engine.Stop(ctx); err != nil {
			t.logger.Warn("msg", "Error stopping TCP engine",
				"component", "tcp_source",
				"error", err)
		}
	}

	// Flush loop drains on cancel
	t.cancel()
	t.wg.Wait()

	t.logger.Info("msg", "TCP source stopped", "component", "tcp_source")
}

func (t *TCPSource) GetStats() SourceStats {
	lastEvent, _ := t.lastEventTime.Load().(time.Time)

	t.pendingMu.Lock()
	pending := len(t.pending)
	t.pendingMu.Unlock()

	return SourceStats{
		Type:          "tcp",
		TotalEvents:   t.totalEvents.Load(),
		InvalidLines:  t.decoder.GetStats()["malformed_lines"].(uint64),
		Runs:          t.runs.Load(),
		StartTime:     t.startTime,
		LastEventTime: lastEvent,
		Details: map[string]any{
			"port":               t.port,
			"active_connections": t.activeConns.Load(),
			"pending_events":     pending,
			"oversized_conns":    t.oversizedConns.Load(),
			"decoder":            t.decoder.GetStats(),
		},
	}
}

func (t *TCPSource) enqueue(events []core.Record) {
	if len(events) == 0 {
		return
	}
	t.totalEvents.Add(uint64(len(events)))
	t.lastEventTime.Store(time.Now())

	t.pendingMu.Lock()
	t.pending = append(t.pending, events...)
	full := len(t.pending) >= t.flushRecords
	t.pendingMu.Unlock()

	if full {
		select {
		case t.flushCh <- struct{}{}:
		default:
		}
	}
}

func (t *TCPSource) flushLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			// Final drain must not inherit the cancelled context
			t.flush(context.WithoutCancel(t.ctx))
			return
		case <-ticker.C:
			t.flush(t.ctx)
		case <-t.flushCh:
			t.flush(t.ctx)
		}
	}
}

func (t *TCPSource) flush(ctx context.Context) {
	t.pendingMu.Lock()
	events := t.pending
	t.pending = nil
	t.pendingMu.Unlock()

	if len(events) == 0 {
		return
	}

	t.runs.Add(1)
	res := t.run(ctx, events)
	t.logger.Debug("msg", "TCP events flushed",
		"component", "tcp_source",
		"run_id", res.RunID,
		"events", len(events),
		"batches", res.Batches)
}

// Represents a connected TCP client
type tcpClient struct {
	buffer bytes.Buffer
}

// Handles gnet events
type tcpSourceServer struct {
	gnet.BuiltinEventEngine
	source  *TCPSource
	clients map[gnet.Conn]*tcpClient
	mu      sync.RWMutex
}

func (s *tcpSourceServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.source.engineMu.Lock()
	s.source.engine = &eng
	s.source.engineMu.Unlock()
	close(s.source.booted)

	s.source.logger.Debug("msg", "TCP source server booted",
		"component", "tcp_source",
		"port", s.source.port)
	return gnet.None
}

func (s *tcpSourceServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	s.mu.Lock()
	s.clients[c] = &tcpClient{}
	s.mu.Unlock()

	newCount := s.source.activeConns.Add(1)
	s.source.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount)
	return nil, gnet.None
}

func (s *tcpSourceServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	client := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	// A final line without a trailing newline still counts
	if client != nil && client.buffer.Len() > 0 {
		if rec, ok := s.source.decoder.DecodeLine(client.buffer.Bytes()); ok {
			s.source.enqueue([]core.Record{rec})
		}
	}

	newCount := s.source.activeConns.Add(-1)
	s.source.logger.Debug("msg", "TCP connection closed",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *tcpSourceServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	client, exists := s.clients[c]
	s.mu.RUnlock()

	if !exists {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		s.source.logger.Error("msg", "Error reading from connection",
			"component", "tcp_source",
			"error", err)
		return gnet.Close
	}
	client.buffer.Write(data)

	var events []core.Record
	for {
		idx := bytes.IndexByte(client.buffer.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := client.buffer.Next(idx + 1)
		if rec, ok := s.source.decoder.DecodeLine(line); ok {
			events = append(events, rec)
		}
	}
	s.source.enqueue(events)

	if client.buffer.Len() > s.source.maxLineBytes {
		s.source.oversizedConns.Add(1)
		s.source.logger.Warn("msg", "Line too long without newline, closing connection",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", client.buffer.Len(),
			"limit", s.source.maxLineBytes)
		client.buffer.Reset()
		return gnet.Close
	}

	return gnet.None
}
