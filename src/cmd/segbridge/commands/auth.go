// FILE: src/cmd/segbridge/commands/auth.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"segbridge/src/internal/auth"
	"segbridge/src/internal/core"

	"golang.org/x/term"
)

type AuthCommand struct {
	output io.Writer
	errOut io.Writer

	// Reads a password without echo; replaced in tests
	readPassword func(prompt string) (string, error)
}

func NewAuthCommand() *AuthCommand {
	ac := &AuthCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
	ac.readPassword = ac.promptPassword
	return ac
}

func (ac *AuthCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("auth", flag.ContinueOnError)
	cmd.SetOutput(ac.errOut)

	var (
		username     = cmd.String("u", "", "Username")
		usernameLong = cmd.String("user", "", "Username")
		password     = cmd.String("p", "", "Password (will prompt if not provided)")
		passwordLong = cmd.String("password", "", "Password (will prompt if not provided)")

		genToken     = cmd.Bool("k", false, "Generate random bearer token")
		genTokenLong = cmd.Bool("token", false, "Generate random bearer token")
		tokenLen     = cmd.Int("l", core.DefaultTokenLength, "Token length in bytes")
		tokenLenLong = cmd.Int("length", core.DefaultTokenLength, "Token length in bytes")
	)

	cmd.Usage = func() {
		fmt.Fprint(ac.errOut, ac.Help())
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}

	if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	finalUsername := coalesceString(*username, *usernameLong)
	finalPassword := coalesceString(*password, *passwordLong)
	finalGenToken := coalesceBool(*genToken, *genTokenLong)
	finalTokenLen := coalesceInt(*tokenLen, *tokenLenLong, core.DefaultTokenLength)

	if finalGenToken {
		return ac.generateToken(finalTokenLen)
	}

	if finalUsername == "" {
		cmd.Usage()
		return fmt.Errorf("username required for basic auth generation")
	}

	return ac.generateBasicAuth(finalUsername, finalPassword)
}

func (ac *AuthCommand) Description() string {
	return "Generate ingest credentials (bcrypt password hashes, bearer tokens)"
}

func (ac *AuthCommand) Help() string {
	return `Auth Command - Generate credentials for the HTTP ingest source

Usage:
  segbridge auth [options]

Options:
  -u, --user <name>        Username for a basic auth entry
  -p, --password <pass>    Password (will prompt if not provided)
  -k, --token              Generate a random bearer token
  -l, --length <bytes>     Token length in bytes (default: 32)

Examples:
  # Generate a bcrypt hash for a basic auth user
  segbridge auth -u ingest

  # Generate a 64-byte bearer token
  segbridge auth --token --length=64

Output:
  Configuration snippets ready to paste into segbridge.toml, and the
  line format used by basic.users_file.

Security Notes:
  - Basic auth and bearer tokens should only be used with http_source.tls
  - Store credentials securely and never commit them to version control
`
}

func (ac *AuthCommand) generateBasicAuth(username, password string) error {
	if password == "" {
		pass1, err := ac.readPassword("Enter password: ")
		if err != nil {
			return err
		}
		pass2, err := ac.readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if pass1 != pass2 {
			return fmt.Errorf("passwords don't match")
		}
		password = pass1
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintln(ac.output, "\n# Basic Auth Configuration (HTTP ingest source)")
	fmt.Fprintln(ac.output, "# Add to segbridge.toml:")
	fmt.Fprintln(ac.output, "")
	fmt.Fprintln(ac.output, "[auth]")
	fmt.Fprintln(ac.output, `type = "basic"`)
	fmt.Fprintln(ac.output, "")
	fmt.Fprintln(ac.output, "[[auth.basic.users]]")
	fmt.Fprintf(ac.output, "username = %q\n", username)
	fmt.Fprintf(ac.output, "password_hash = %q\n\n", hash)

	fmt.Fprintln(ac.output, "# For basic.users_file:")
	fmt.Fprintf(ac.output, "%s:%s\n", username, hash)

	return nil
}

func (ac *AuthCommand) generateToken(length int) error {
	if length < auth.MinTokenBytes {
		fmt.Fprintf(ac.errOut, "Warning: tokens < %d bytes are cryptographically weak\n", auth.MinTokenBytes)
	}

	token, err := auth.GenerateToken(length)
	if err != nil {
		return err
	}

	fmt.Fprintln(ac.output, "\n# Bearer Token Configuration")
	fmt.Fprintln(ac.output, "# Add to segbridge.toml:")
	fmt.Fprintln(ac.output, "")
	fmt.Fprintln(ac.output, "[auth]")
	fmt.Fprintln(ac.output, `type = "bearer"`)
	fmt.Fprintln(ac.output, "")
	fmt.Fprintln(ac.output, "[auth.bearer]")
	fmt.Fprintf(ac.output, "tokens = [%q]\n", token)

	return nil
}

func (ac *AuthCommand) promptPassword(prompt string) (string, error) {
	fmt.Fprint(ac.errOut, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(ac.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
