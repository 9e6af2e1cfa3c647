// FILE: src/internal/service/service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"segbridge/src/internal/config"
	"segbridge/src/internal/core"
	"segbridge/src/internal/pipeline"
	"segbridge/src/internal/source"

	"github.com/lixenwraith/log"
)

// Service runs network sources into one pipeline.
type Service struct {
	components *Components
	sources    map[string]source.Source
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	startTime  time.Time
	logger     *log.Logger
}

// New creates a service around assembled components.
func New(ctx context.Context, components *Components, logger *log.Logger) *Service {
	serviceCtx, cancel := context.WithCancel(ctx)
	return &Service{
		components: components,
		sources:    make(map[string]source.Source),
		ctx:        serviceCtx,
		cancel:     cancel,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// Run hands events to the pipeline, recovering from panics so one bad batch
// cannot take down a source.
func (s *Service) Run(ctx context.Context, events []core.Record) (res pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("msg", "Panic in pipeline run",
				"component", "service",
				"panic", r,
				"events", len(events))
			res = pipeline.Result{Events: len(events), Failed: 1}
		}
	}()
	return s.components.Pipeline.Run(ctx, events)
}

// AddSource registers a source under name. Sources start with Start.
func (s *Service) AddSource(name string, src source.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[name]; exists {
		return fmt.Errorf("source '%s' already exists", name)
	}
	s.sources[name] = src
	return nil
}

// AddSourcesFromConfig creates the enabled HTTP and TCP sources.
func (s *Service) AddSourcesFromConfig(cfg *config.Config) error {
	if cfg.HTTPSource.Enabled {
		src, err := source.NewHTTPSource(cfg.HTTPSource, cfg.Auth, s.Run, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create http source: %w", err)
		}
		if err := s.AddSource("http", src); err != nil {
			return err
		}
	}

	if cfg.TCPSource.Enabled {
		src, err := source.NewTCPSource(cfg.TCPSource, s.Run, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create tcp source: %w", err)
		}
		if err := s.AddSource("tcp", src); err != nil {
			return err
		}
	}

	s.mu.RLock()
	count := len(s.sources)
	s.mu.RUnlock()
	if count == 0 {
		return fmt.Errorf("no sources enabled; set http_source.enabled or tcp_source.enabled")
	}
	return nil
}

// Start starts every source. If one fails, those already started are stopped.
func (s *Service) Start() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	started := make([]source.Source, 0, len(s.sources))
	for name, src := range s.sources {
		if err := src.Start(); err != nil {
			for _, st := range started {
				st.Stop()
			}
			return fmt.Errorf("failed to start source '%s': %w", name, err)
		}
		started = append(started, src)
		s.logger.Info("msg", "Source started",
			"component", "service",
			"source", name)
	}
	return nil
}

// StartStatusReporter logs stats every interval until shutdown.
func (s *Service) StartStatusReporter(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.logStatus()
			}
		}
	}()
}

func (s *Service) logStatus() {
	stats := s.components.Pipeline.Stats
	fields := []any{
		"msg", "Status report",
		"component", "status_reporter",
		"uptime", time.Since(s.startTime).Round(time.Second),
		"runs", stats.Runs(),
		"batches_ok", stats.Succeeded(),
		"batches_failed", stats.Failed(),
	}

	s.mu.RLock()
	for name, src := range s.sources {
		st := src.GetStats()
		fields = append(fields, name+"_events", st.TotalEvents, name+"_runs", st.Runs)
	}
	s.mu.RUnlock()

	s.logger.Debug(fields...)
}

// Shutdown stops all sources concurrently, letting them flush.
func (s *Service) Shutdown() {
	s.logger.Info("msg", "Service shutdown initiated", "component", "service")

	s.mu.RLock()
	sources := make([]source.Source, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, src)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			src.Stop()
		}(src)
	}
	wg.Wait()

	s.cancel()
	s.wg.Wait()

	s.logger.Info("msg", "Service shutdown complete", "component", "service")
}

// GetGlobalStats returns pipeline, component and per-source statistics.
func (s *Service) GetGlobalStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make(map[string]any, len(s.sources))
	for name, src := range s.sources {
		sources[name] = src.GetStats()
	}

	stats := s.components.GetStats()
	stats["sources"] = sources
	stats["total_sources"] = len(s.sources)
	stats["uptime_seconds"] = int(time.Since(s.startTime).Seconds())
	return stats
}
