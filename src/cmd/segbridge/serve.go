// FILE: src/cmd/segbridge/serve.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"segbridge/src/internal/service"
)

// serveCommand accepts events over HTTP and TCP until signalled.
type serveCommand struct{}

func newServeCommand() *serveCommand {
	return &serveCommand{}
}

func (c *serveCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common := addCommonFlags(fs)
	statusInterval := fs.Duration("status-interval", 30*time.Second, "Status report interval, 0 disables")
	fs.Usage = func() { Error("%s", c.Help()) }

	configArgs, rest := splitConfigArgs(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, err := loadConfig(common, configArgs)
	if err != nil {
		return err
	}

	if err := initializeLogger(cfg); err != nil {
		return err
	}
	defer shutdownLogger()

	components, err := service.NewComponents(cfg, false, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := service.New(ctx, components, logger)
	if err := svc.AddSourcesFromConfig(cfg); err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return err
	}

	if os.Getenv("SEGBRIDGE_DISABLE_STATUS_REPORTER") != "1" {
		svc.StartStatusReporter(*statusInterval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
		"signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		shutdownLogger()
		os.Exit(1)
	}
	return nil
}

func (c *serveCommand) Description() string {
	return "Accept events over HTTP and TCP and deliver them continuously"
}

func (c *serveCommand) Help() string {
	return `Serve Command - Run the ingest sources until interrupted

Usage:
  segbridge serve [options]

Starts the sources enabled in configuration:
  http_source  POST NDJSON to ingest_path; each request is one run and the
               response carries the run summary
  tcp_source   Newline-delimited JSON; events from all connections are
               pooled and flushed by count or interval

Options:
  -c, --config <path>          Config file path
  -q, --quiet                  Suppress all console output
      --status-interval <dur>  Status report interval (default 30s, 0 disables)
      --log-level, --log-output, --<section.key>=<value>

Environment:
  SEGBRIDGE_DISABLE_STATUS_REPORTER=1  Disable periodic status reports

Examples:
  segbridge serve -c /etc/segbridge.toml
  segbridge serve --http_source.enabled=true --segment.write_key=abc
`
}
