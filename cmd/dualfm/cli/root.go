// Package cli implements the dualfm command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dualfm/internal/archive"
	"dualfm/internal/config"
	"dualfm/internal/operations"
	"dualfm/pkg/fileops"
)

// Build information set via ldflags.
var version = "dev"

// Global flags.
var (
	configPath   string
	progressMode string
)

var rootCmd = &cobra.Command{
	Use:   "dualfm",
	Short: "Secure file operations for the dualfm file manager",
	Long: `Dualfm performs the file operations behind the dualfm file manager:
validated copy, move, and delete, atomic writes that never leave partial
files behind, and archive packing and unpacking with traversal and
archive-bomb protection.

Every path is validated before it is touched, large transfers report
progress and can be interrupted with Ctrl-C, and a failed item never
stops the rest of a batch.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&progressMode, "progress", "auto", "Progress display: auto, tty, or plain")
}

// Execute runs the root command and prints any resulting error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// loadConfig returns the effective configuration: the --config file when
// given, the standard location when present, the built-in defaults on a
// first run.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	if config.IsFirstRun() {
		cfg := config.DefaultConfig()
		return &cfg, nil
	}
	return config.Load()
}

// newOrchestrator builds the operation orchestrator every command runs
// through, configured from the effective config file.
func newOrchestrator() (*operations.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return operations.New(&operations.Options{
		Security:  cfg.SecurityConfig(),
		ChunkSize: cfg.ChunkSize,
	}), nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts sentinel errors into user-facing messages. The
// sentinel texts already name the condition, so most cases only add the
// actionable hint.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, fileops.ErrCancelled), errors.Is(err, context.Canceled):
		return "Operation cancelled"
	case errors.Is(err, fileops.ErrPathTraversal),
		errors.Is(err, fileops.ErrAbsolutePath),
		errors.Is(err, fileops.ErrUnsafeSymlink),
		errors.Is(err, fileops.ErrSymlinkRace):
		return fmt.Sprintf("Error: %v (security violation)", err)
	case errors.Is(err, fileops.ErrAlreadyExists):
		return fmt.Sprintf("Error: %v (use --overwrite to replace)", err)
	case errors.Is(err, archive.ErrUnsupportedFormat):
		return fmt.Sprintf("Error: %v (supported: .zip, .tar, .tar.gz, .tar.bz2, .tar.xz, .tar.zst)", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
