// FILE: src/cmd/segbridge/config_cmd.go
package main

import (
	"flag"
	"fmt"
	"os"
)

// configCommand writes the effective configuration to a file.
type configCommand struct{}

func newConfigCommand() *configCommand {
	return &configCommand{}
}

func (c *configCommand) Execute(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	common := addCommonFlags(fs)
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Usage = func() { Error("%s", c.Help()) }

	configArgs, rest := splitConfigArgs(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("config requires exactly one output path")
	}
	path := fs.Arg(0)

	if !*force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s exists, use --force to overwrite", path)
		}
	}

	cfg, err := loadConfig(common, configArgs)
	if err != nil {
		return err
	}
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	Print("Configuration written to %s\n", path)
	return nil
}

func (c *configCommand) Description() string {
	return "Write the effective configuration to a TOML file"
}

func (c *configCommand) Help() string {
	return `Config Command - Write the effective configuration to a TOML file

Usage:
  segbridge config [options] <output.toml>

Merges defaults, the config file, SEGBRIDGE_* environment variables and
--<section.key>=<value> overrides, validates the result and writes it out.
Useful as a starting point for a new deployment.

Options:
  -c, --config <path>   Config file to start from
      --force           Overwrite an existing file

Examples:
  segbridge config segbridge.toml
  segbridge config --segment.write_key=abc --http_source.enabled=true prod.toml
`
}
