package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEngineLiteralAndRegexRules(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, `
# persona names the recognizer trips over
bar tender => bartender
s/\bum+\b//g
s/(\w+) please$/please $1/
`)

	got, err := engine.Apply("Um can I get a drink from the Bar Tender now please")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got != "can I get a drink from the bartender please now" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestEngineIteratesUntilStable(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, "aa => a\n")
	got, err := engine.Apply("aaaa")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got != "a" {
		t.Fatalf("expected fixpoint output, got %q", got)
	}
}

func TestEngineLoopLimitStopsRunawayRules(t *testing.T) {
	t.Parallel()

	path := writeRules(t, "a => aa\n")
	engine, err := NewEngine(path, 3)
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	got, err := engine.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got != strings.Repeat("a", 8) {
		t.Fatalf("expected three doublings, got %q", got)
	}
}

func TestEngineLiteralRuleStartingWithS(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, "s.o.s => SOS\nsandwich => sub\n")
	got, err := engine.Apply("send an s.o.s for a sandwich")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got != "send an SOS for a sub" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestEngineLiteralReplacementIsNotExpanded(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, "ten dollars => $10\n")
	got, _ := engine.Apply("that costs ten dollars")
	if got != "that costs $10" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestRegexRuleWithoutGlobalReplacesFirstMatchOnly(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, "s/ticket/pass/\n")
	got, _ := engine.Apply("ticket ticket")
	// The engine loops until stable, so a non-global rule still reaches
	// every match; each pass only rewrites the first one.
	if got != "pass pass" {
		t.Fatalf("unexpected output: %q", got)
	}

	r, err := parseRegexRule("s/ticket/pass/")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if once := r.apply("ticket ticket"); once != "pass ticket" {
		t.Fatalf("expected single replacement, got %q", once)
	}
}

func TestParseRegexRuleEscapedDelimiter(t *testing.T) {
	t.Parallel()

	r, err := parseRegexRule(`s/and\/or/or/g`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := r.apply("tea and/or coffee"); got != "tea or coffee" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestParseRegexRuleUnsupportedFlag(t *testing.T) {
	t.Parallel()

	if _, err := parseRegexRule("s/a/b/x"); err == nil {
		t.Fatalf("expected unsupported flag error")
	}
}

func TestParseRulesUnsupportedLine(t *testing.T) {
	t.Parallel()

	_, err := parse("fine => ok\nnot a rule\n")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestNewEngineMissingFileIsPassthrough(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(filepath.Join(t.TempDir(), "missing.rules"), 0)
	if err != nil {
		t.Fatalf("expected missing file to be tolerated: %v", err)
	}
	got, _ := engine.Apply("  hello   there ")
	if got != "hello there" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func newTestEngine(t *testing.T, contents string) *Engine {
	t.Helper()
	engine, err := NewEngine(writeRules(t, contents), 0)
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	return engine
}

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}
