package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRosterParsesTargets(t *testing.T) {
	t.Parallel()

	path := writeRoster(t, `
targets:
  - id: barista
    displayName: Sam
    sessionId: s-1
    persona: barista
    voiceName: en-IE-EmilyNeural
    hasTicket: true
  - id: guard
    persona: security
    voiceName: en-GB-RyanNeural
`)

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := strings.Join(roster.IDs(), ","); got != "barista,guard" {
		t.Fatalf("unexpected ids: %s", got)
	}

	barista, ok := roster.Find("barista")
	if !ok {
		t.Fatalf("expected barista")
	}
	if barista.DisplayName != "Sam" || barista.SessionID != "s-1" || barista.Persona != "barista" ||
		barista.VoiceName != "en-IE-EmilyNeural" || !barista.HasTicket {
		t.Fatalf("unexpected barista: %+v", barista)
	}

	guard, _ := roster.Find("guard")
	if guard.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if guard.DisplayName != "guard" {
		t.Fatalf("expected display name to default to id, got %q", guard.DisplayName)
	}

	if _, ok := roster.Find("nobody"); ok {
		t.Fatalf("did not expect unknown target")
	}
}

func TestLoadRosterMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	roster, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster.Targets) != 0 {
		t.Fatalf("expected empty roster, got %+v", roster)
	}
}

func TestLoadRosterRejectsInvalidTargets(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing id":   "targets:\n  - persona: x\n",
		"duplicate id": "targets:\n  - id: a\n  - id: a\n",
		"bad yaml":     "targets: [\n",
	}
	for name, contents := range cases {
		name := name
		contents := contents
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadRoster(writeRoster(t, contents)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func writeRoster(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}
