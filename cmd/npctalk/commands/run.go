package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"npctalk/internal/bootstrap"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive console driving the capture session from stdin",
	Long: `Reads one command per line:

  approach <id>   bring a roster entry into range
  leave           move out of range
  talk            start listening to the person in range
  watch [source]  touch the pause trigger
  pause | resume  show or hide the pause surface
  status          print the current status
  quit            upload the session summary and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		sink := newConsoleSink(cmd.OutOrStdout())
		services, err := bootstrap.Build(sink, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runConsole(ctx, services, cmd.InOrStdin(), sink)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

type command struct {
	name string
	arg  string
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	cmd := command{name: strings.ToLower(fields[0])}
	switch cmd.name {
	case "approach":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: approach <id>")
		}
		cmd.arg = fields[1]
	case "watch":
		if len(fields) > 2 {
			return command{}, fmt.Errorf("usage: watch [source]")
		}
		if len(fields) == 2 {
			cmd.arg = fields[1]
		}
	case "leave", "talk", "pause", "resume", "status", "quit", "exit":
		if len(fields) != 1 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.name)
		}
	default:
		return command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return cmd, nil
}

// runConsole ticks the frame loop while applying commands from in. It returns
// after quit, end of input or ctx cancellation, once the summary is uploaded.
func runConsole(ctx context.Context, services *bootstrap.Services, in io.Reader, sink *consoleSink) error {
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		services.Run(runCtx)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-runCtx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := execute(services, line, sink); quit {
				break loop
			}
		}
	}

	cancel()
	wg.Wait()
	return services.Shutdown(shutdownTimeout)
}

func execute(services *bootstrap.Services, line string, sink *consoleSink) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		sink.println(sink.styles.err.Render("error") + " " + err.Error())
		return false
	}

	switch cmd.name {
	case "":
	case "approach":
		target, err := services.Approach(cmd.arg)
		if err != nil {
			sink.println(sink.styles.err.Render("error") + " " + err.Error())
			return false
		}
		sink.println(sink.styles.label.Render("facing") + " " + target.DisplayName)
	case "leave":
		services.Presence.Leave()
	case "talk":
		if err := services.Presence.Talk(); err != nil {
			sink.println(sink.styles.err.Render("error") + " nobody is in range")
		}
	case "watch":
		source := cmd.arg
		if source == "" {
			source = services.Config.Session.TriggerSource
		}
		services.Gates.Pause.Trigger(source)
	case "pause":
		services.Gates.Pause.Pause()
	case "resume":
		services.Gates.Pause.Resume()
	case "status":
		status := services.Loop.Status()
		sink.println(sink.styles.label.Render("status") + " " + status.Message + " " + sink.styles.dim.Render(describe(status)))
	case "quit", "exit":
		return true
	}
	return false
}
