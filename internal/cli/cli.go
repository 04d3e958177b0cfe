// Package cli is the trackc command line: flag parsing, logger setup and
// the compile, check and inspect commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"mini-track/internal/compiler"

	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes beyond the usual 0/1.
const (
	ExitUsage    = 2
	ExitGate     = 3
	ExitNotFound = 4
)

// Config is everything the flags select.
type Config struct {
	TrackPath   string
	ModulesPath string
	ProfilePath string
	OutputDir   string
	LogFormat   string
	LogLevel    string
	Workers     int
	NoReverse   bool
}

// validate normalises the logging flags, rejecting unknown values.
func (c *Config) validate() error {
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if c.Workers < 0 {
		return &ExitError{Code: ExitUsage, Message: "invalid workers: must not be negative"}
	}
	return nil
}

// NewRootCommand builds the command tree. Logs and command output both go
// to outW.
func NewRootCommand(outW io.Writer) *cobra.Command {
	cfg := &Config{}
	root := &cobra.Command{
		Use:           "trackc",
		Short:         "compile racing track grids into game-ready files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVarP(&cfg.ModulesPath, "modules", "m", "modules", "Module library root (holds modules/ and textures/).")
	pf.StringVarP(&cfg.ProfilePath, "profile", "p", "", "HCL export profile. Built-in defaults when empty.")
	pf.IntVar(&cfg.Workers, "workers", 0, "Geometry workers. 0 keeps the profile's value.")

	root.AddCommand(
		compileCmd(cfg, outW),
		checkCmd(cfg, outW),
		inspectCmd(cfg),
	)
	return root
}

// addTrackFlag lets a command take the track as --track or as its one
// positional argument.
func addTrackFlag(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVarP(&cfg.TrackPath, "track", "t", "", "Track grid file.")
	cmd.Args = cobra.MaximumNArgs(1)
}

func trackArg(cfg *Config, args []string) error {
	if cfg.TrackPath == "" && len(args) > 0 {
		cfg.TrackPath = args[0]
	}
	if cfg.TrackPath == "" {
		return &ExitError{Code: ExitUsage, Message: "no track given: pass --track or a path"}
	}
	return nil
}

// Run parses args and executes the selected command.
func Run(ctx context.Context, outW io.Writer, args []string) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	slog.Debug("CLI parser started.", "args", args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var gate *compiler.ContinuityError
	if errors.As(err, &gate) {
		return &ExitError{Code: ExitGate, Message: err.Error()}
	}
	if errors.Is(err, compiler.ErrNoStartModule) || errors.Is(err, compiler.ErrMultipleStartModules) {
		return &ExitError{Code: ExitGate, Message: err.Error()}
	}
	if isUsageError(err) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return fmt.Errorf("trackc: %w", err)
}

// isUsageError spots cobra's flag and argument errors, which carry no type.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts ", "flag needs an argument", "requires "} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
