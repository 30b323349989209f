// Package cmd implements the usmgemm command line.
package cmd

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "usmgemm",
		Short: "Dense float32 matrix products on shared host/device memory",
		Long: `usmgemm allocates A, B and C in memory visible to both the host and the
compute workers, runs C = A * B as one work item per output element, and
verifies the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newRunCmd(), newDevicesCmd())
	return root
}

// Execute runs the root command. A failure is logged to stderr with the
// operation that failed, and returned so main can exit non-zero.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log := newLogger(rootCmd.ErrOrStderr())
		log.Error().Err(err).Msg("usmgemm failed")
	}
	return err
}

func newLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}
