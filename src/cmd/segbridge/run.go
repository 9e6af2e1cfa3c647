// FILE: src/cmd/segbridge/run.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"segbridge/src/internal/config"
	"segbridge/src/internal/format"
	"segbridge/src/internal/pipeline"
	"segbridge/src/internal/service"
)

// runCommand sends one NDJSON export and exits.
type runCommand struct {
	stdin io.Reader
}

func newRunCommand() *runCommand {
	return &runCommand{stdin: os.Stdin}
}

func (c *runCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	common := addCommonFlags(fs)
	var (
		dryRun     = fs.Bool("dry-run", false, "Print the calls instead of sending them")
		formatName = fs.String("format", "", "Dry-run output format: json, text (overrides config)")
		pretty     = fs.Bool("pretty", false, "Indent JSON dry-run output")
		template   = fs.String("template", "", "text/template for the text format (overrides config)")
	)
	fs.Usage = func() { Error("%s", c.Help()) }

	configArgs, rest := splitConfigArgs(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("run takes at most one input file, got %d", fs.NArg())
	}
	input := "-"
	if fs.NArg() == 1 {
		input = fs.Arg(0)
	}

	cfg, err := loadConfig(common, configArgs)
	if err != nil {
		return err
	}
	if *formatName != "" {
		cfg.Output.Format = *formatName
	}
	if *pretty {
		cfg.Output.Pretty = true
	}
	if *template != "" {
		cfg.Output.Template = *template
	}
	// Results and dry-run calls own stdout
	cfg.Logging.ReserveStdout()

	if err := initializeLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger()

	r, closeInput, err := c.openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()

	components, err := service.NewComponents(cfg, *dryRun, logger)
	if err != nil {
		return err
	}

	if *dryRun {
		return printCalls(cfg, components, r, output)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := components.Pipeline.RunNDJSON(ctx, r)
	if err != nil {
		logger.Error("msg", "Input read failed", "component", "run", "error", err)
	}
	if printErr := printResult(res, output); printErr != nil {
		return printErr
	}
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d batches failed", res.Failed, res.Batches)
	}
	return nil
}

func (c *runCommand) openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return c.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// printCalls renders every call the input produces, in send order.
func printCalls(cfg *config.Config, components *service.Components, r io.Reader, w io.Writer) error {
	formatter, err := format.New(cfg.Output.Format, format.Options{
		Pretty:   cfg.Output.Pretty,
		Template: cfg.Output.Template,
	}, logger)
	if err != nil {
		return err
	}

	events, err := format.NewDecoder(0, logger).Decode(r)
	if err != nil {
		return err
	}

	for _, calls := range components.Pipeline.Build(events) {
		for _, call := range calls {
			data, err := formatter.Format(call)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
	}
	return nil
}

func printResult(res pipeline.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (c *runCommand) Description() string {
	return "Send an NDJSON event export to the collector"
}

func (c *runCommand) Help() string {
	return `Run Command - Send an NDJSON event export to the collector

Usage:
  segbridge run [options] [file|-]

Reads one JSON event per line from file, or stdin when omitted or "-",
builds identify, group, page and track calls, packs them into batches and
sends every batch concurrently. Prints a JSON run summary and exits non-zero
when any batch failed.

Options:
  -c, --config <path>    Config file path
  -q, --quiet            Suppress all console output
      --dry-run          Print the calls instead of sending them
      --format <name>    Dry-run output: json (default) or text
      --pretty           Indent JSON dry-run output
      --template <tmpl>  text/template for the text format
      --log-level, --log-output, --<section.key>=<value>

Examples:
  segbridge run --segment.write_key=abc export.ndjson
  gunzip -c export.ndjson.gz | segbridge run -c prod.toml
  segbridge run --dry-run --format text --template '{{.type}} {{.messageId}}' export.ndjson
`
}
