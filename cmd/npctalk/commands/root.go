package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "npctalk",
	Short: "Talk to virtual people from the terminal",
	Long: `npctalk - drive speech capture and character dialogue without the desktop shell.

Configuration comes from environment variables:
  DEEPGRAM_API_KEY        transcription credentials
  NPCTALK_ROSTER_FILE     people that can be approached (default ~/.config/npctalk/roster.yaml)
  NPCTALK_RULES_FILE      transcript substitution rules
  NPCTALK_DIALOGUE_URL    conversation service websocket
  NPCTALK_TELEMETRY_URL   session summary endpoint

Examples:
  npctalk roster
  npctalk run --log-level debug`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", value)
	}
}
