package audio

import (
	"os/exec"
	"strings"
)

// CommandProbe treats the capture device as authorized once the recorder
// command can be resolved. Desktop hosts have no runtime permission prompt,
// so a missing recorder is the only thing that keeps the gate closed.
type CommandProbe struct {
	command  string
	lookPath func(string) (string, error)
}

func NewCommandProbe(command string) *CommandProbe {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	return &CommandProbe{command: command, lookPath: exec.LookPath}
}

func (p *CommandProbe) Authorized() bool {
	_, err := p.lookPath(p.command)
	return err == nil
}
