// FILE: src/cmd/segbridge/commands/help.go
package commands

import (
	"fmt"
	"sort"
	"strings"
)

// generalHelpTemplate is the default help message shown when no specific command is requested.
const generalHelpTemplate = `segbridge: deliver analytics events to a Segment-compatible batch collector.

Usage:
  segbridge <command> [options]

Commands:
%s

Common Options (run, serve, config):
  -c, --config <path>      Path to configuration file (default: ~/.config/segbridge.toml)
  -q, --quiet              Suppress all console output, including errors
      --log-level <level>  debug, info, warn, error (overrides config)
      --log-output <mode>  file, stdout, stderr, both, none (overrides config)
      --<section.key>=<v>  Override any configuration key, e.g. --segment.write_key=abc

For command-specific help:
  segbridge help <command>
  segbridge <command> --help

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - CLI flags override all other settings
  - Environment variables (SEGBRIDGE_SECTION_KEY) override file settings
  - TOML configuration file is the primary method

Examples:
  # Send an export file
  segbridge run --segment.write_key=abc events.ndjson

  # Preview the calls an export would produce
  segbridge run --dry-run --pretty events.ndjson

  # Accept events over HTTP and TCP
  segbridge serve -c /etc/segbridge.toml
`

// HelpCommand handles the display of general or command-specific help messages.
type HelpCommand struct {
	router *CommandRouter
}

// NewHelpCommand creates a new help command handler.
func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

// Execute displays the appropriate help message based on the provided arguments.
func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Fprint(c.router.output, handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Fprintf(c.router.output, generalHelpTemplate, c.formatCommandList())
	return nil
}

// Description returns a brief one-line description of the command.
func (c *HelpCommand) Description() string {
	return "Display help information"
}

// Help returns the detailed help text for the 'help' command itself.
func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  segbridge help              Show general help
  segbridge help <command>    Show help for a specific command
`
}

// formatCommandList creates a formatted and aligned list of all available commands.
func (c *HelpCommand) formatCommandList() string {
	commands := c.router.GetCommands()

	names := make([]string, 0, len(commands))
	maxLen := 0
	for name := range commands {
		names = append(names, name)
		if len(name) > maxLen {
			maxLen = len(name)
		}
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		handler := commands[name]
		padding := strings.Repeat(" ", maxLen-len(name)+2)
		lines = append(lines, fmt.Sprintf("  %s%s%s", name, padding, handler.Description()))
	}

	return strings.Join(lines, "\n")
}
