// Package rules normalizes recognized speech before it is sent to a persona,
// e.g. fixing names the recognizer habitually mishears.
//
// A rules file holds one rule per line:
//
//	bar tender => bartender
//	s/\bum+\b//g
//
// Blank lines and lines starting with # are ignored. Literal rules match case
// insensitively. Regex rules take the flags i, g, m and s and are always case
// insensitive.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultLoopLimit = 30

type rule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r rule) apply(input string) string {
	if r.global {
		return r.re.ReplaceAllString(input, r.replacement)
	}
	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:]
}

// Engine applies substitutions until the text stops changing.
type Engine struct {
	rules     []rule
	loopLimit int
}

// NewEngine loads rules from path. An empty path or a missing file yields an
// engine that returns text unchanged.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = defaultLoopLimit
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{loopLimit: loopLimit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Engine{loopLimit: loopLimit}, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	rules, err := parse(string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return &Engine{rules: rules, loopLimit: loopLimit}, nil
}

// Apply rewrites text. The loop limit stops rule sets that never settle.
func (e *Engine) Apply(text string) (string, error) {
	result := strings.TrimSpace(text)
	for i := 0; i < e.loopLimit && len(e.rules) > 0; i++ {
		before := result
		for _, r := range e.rules {
			result = r.apply(result)
		}
		if result == before {
			break
		}
	}
	return strings.Join(strings.Fields(result), " "), nil
}

// parse compiles the contents of a rules file.
func parse(contents string) ([]rule, error) {
	var out []rule
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			r   rule
			err error
		)
		switch {
		case isRegexRule(line):
			r, err = parseRegexRule(line)
			if err != nil && strings.Contains(line, "=>") {
				r, err = parseLiteralRule(line)
			}
		case strings.Contains(line, "=>"):
			r, err = parseLiteralRule(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseLiteralRule(line string) (rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	if from == "" {
		return rule{}, errors.New("literal rule source cannot be empty")
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return rule{}, fmt.Errorf("invalid literal source: %w", err)
	}
	replacement := strings.ReplaceAll(strings.TrimSpace(to), "$", "$$")
	return rule{re: re, replacement: replacement, global: true}, nil
}

func isRegexRule(line string) bool {
	return len(line) > 2 && line[0] == 's' && isDelimiter(line[1])
}

func isDelimiter(c byte) bool {
	alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	return !alnum && c != ' ' && c != '\t' && c != '\\'
}

func parseRegexRule(line string) (rule, error) {
	delim := line[1]
	pattern, rest, err := splitDelimited(line[2:], delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, flags, err := splitDelimited(rest, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex replacement: %w", err)
	}

	prefix := "i"
	global := false
	for _, flag := range strings.TrimSpace(flags) {
		switch flag {
		case 'i':
		case 'g':
			global = true
		case 'm', 's':
			if !strings.ContainsRune(prefix, flag) {
				prefix += string(flag)
			}
		default:
			return rule{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{re: re, replacement: replacement, global: global}, nil
}

// splitDelimited returns the text up to the first unescaped delim and the
// remainder after it. An escaped delimiter is unescaped; other escapes are
// passed through for the regexp package.
func splitDelimited(s string, delim byte) (string, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			if s[i+1] == delim {
				b.WriteByte(delim)
			} else {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		if c == delim {
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(c)
	}
	return "", "", errors.New("unterminated expression")
}
