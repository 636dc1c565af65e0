package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nara.lk/portal/internal/cli"
)

// Version is overridden at build time with -ldflags "-X nara.lk/portal/internal/app.Version=...".
var Version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks failures caused by bad invocation. They exit with code 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// globalFlags are shared by every command.
type globalFlags struct {
	env     *cli.EnvLoader
	timeout time.Duration
	audit   bool
}

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	root := newRootCommand()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "portal",
		Short: "NARA portal translation service",
		Long: `portal translates research, news and book content between English, Sinhala and Tamil.

Examples:
  portal serve                                  # Start the HTTP API
  portal translate text "Fish stocks" --lang si # Translate one string
  portal translate document book.txt --lang ta  # Translate a long document
  portal translate bulk items.json --lang si,ta # Enrich a bulk upload payload`,
		Version:       Version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usageErrorf("a command is required")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags.env = cli.AddEnvFlag(root.PersistentFlags(), ".env", "Path to the .env file")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "Command timeout")
	root.PersistentFlags().BoolVar(&flags.audit, "audit", false, "Attach a quality report to every translation")

	root.AddCommand(
		newServeCommand(flags),
		newTranslateCommand(flags),
		newValidateCommand(),
		newLanguagesCommand(),
		newHealthCommand(flags),
		newVersionCommand(),
	)
	return root
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
