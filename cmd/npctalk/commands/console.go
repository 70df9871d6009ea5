package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"npctalk/internal/domain"
)

type styles struct {
	label lipgloss.Style
	dim   lipgloss.Style
	reply lipgloss.Style
	err   lipgloss.Style
}

func newStyles() styles {
	return styles{
		label: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		reply: lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff")),
		err:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff7b72")),
	}
}

// consoleSink prints session events as lines on out.
type consoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, styles: newStyles()}
}

func (c *consoleSink) StatusChanged(status domain.Status) {
	c.println(c.styles.label.Render("status") + " " + status.Message + " " + c.styles.dim.Render(describe(status)))
}

func (c *consoleSink) PauseChanged(paused bool) {
	if paused {
		c.println(c.styles.label.Render("paused") + " touch the watch to resume")
		return
	}
	c.println(c.styles.label.Render("resumed"))
}

func (c *consoleSink) DialogueDispatched(req domain.DialogueRequest) {
	c.println(c.styles.label.Render("you") + " " + req.UserInput + " " + c.styles.dim.Render("-> "+req.Persona))
}

func (c *consoleSink) DialogueReply(text string) {
	c.println(c.styles.reply.Render("them") + " " + text)
}

func (c *consoleSink) SessionError(code domain.ErrorCode, detail string) {
	c.println(c.styles.err.Render("error["+string(code)+"]") + " " + detail)
}

func (c *consoleSink) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func describe(status domain.Status) string {
	parts := []string{string(status.State)}
	if !status.PermissionGranted {
		parts = append(parts, "no-mic")
	}
	if status.PersonActive {
		parts = append(parts, "in-range")
	}
	if status.Target != "" {
		parts = append(parts, "target="+status.Target)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
