package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Process exit codes. Stdout text is the same regardless of exit code.
const (
	exitOK         = 0
	exitVulnerable = 1
	exitError      = 2
	exitUsage      = 3
)

// exitCodeError carries a non-zero exit code out of a command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "registry-inspector [location value-name expected-value]",
		Short: "Check a registry value against an expected value",
		Long: `Registry Inspector reads one value from the host configuration store and
reports SECURE when it matches the expected value, VULNERABLE otherwise.

With no arguments it checks that User Account Control is enabled
(HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System\EnableLUA = 1).

Flags must come before the positional arguments; everything after the
location is taken literally, so an expected value such as -1 needs no
quoting. Use -- before a location that starts with "-" or is named like a
subcommand:

  registry-inspector -- version Mode on`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("accepts 0 or 3 arg(s), received %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfgFile, args, stdout, stderr)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is registry-inspector.yaml in the config dir or .)")

	flags := rootCmd.Flags()
	flags.SetInterspersed(false)
	flags.StringP("format", "f", "plain", "output format: plain, structured or json")
	flags.String("store", "auto", "store backend: auto, registry or file")
	flags.String("store-file", "", "YAML store snapshot used by the file backend")
	flags.String("log-level", "error", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("audit-log", "", "append a hash-chained audit entry for the check to this file")
	flags.Bool("fail-on-vulnerable", false, "exit with status 1 when the check is VULNERABLE")

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(newVersionCmd(stdout))
	rootCmd.AddCommand(newVerifyAuditCmd(&cfgFile, stdout))

	return rootCmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "Registry Inspector %s\n", version)
			fmt.Fprintf(stdout, "Commit: %s\n", commit)
			fmt.Fprintf(stdout, "Built: %s\n", buildDate)
		},
	}
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	fmt.Fprintln(stderr, "Error:", err)
	return exitUsage
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
