package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"npctalk/internal/domain"
)

// Roster lists the people a player can talk to.
//
//	targets:
//	  - id: barista
//	    displayName: Sam
//	    persona: barista
//	    voiceName: en-IE-EmilyNeural
//	    hasTicket: false
type Roster struct {
	Targets []domain.InteractionTarget `yaml:"targets"`
}

// LoadRoster reads a roster file. A missing file yields an empty roster.
// Targets without a sessionId are given a fresh one so the conversation
// service can tell them apart.
func LoadRoster(path string) (Roster, error) {
	if strings.TrimSpace(path) == "" {
		return Roster{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Roster{}, nil
		}
		return Roster{}, fmt.Errorf("read roster %s: %w", path, err)
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(roster.Targets))
	for i := range roster.Targets {
		target := &roster.Targets[i]
		target.ID = strings.TrimSpace(target.ID)
		if target.ID == "" {
			return Roster{}, fmt.Errorf("parse roster %s: target %d has no id", path, i+1)
		}
		if _, dup := seen[target.ID]; dup {
			return Roster{}, fmt.Errorf("parse roster %s: duplicate target id %q", path, target.ID)
		}
		seen[target.ID] = struct{}{}

		if target.SessionID == "" {
			target.SessionID = uuid.NewString()
		}
		if target.DisplayName == "" {
			target.DisplayName = target.ID
		}
	}
	return roster, nil
}

// Find returns the target with id.
func (r Roster) Find(id string) (domain.InteractionTarget, bool) {
	for _, target := range r.Targets {
		if target.ID == id {
			return target, true
		}
	}
	return domain.InteractionTarget{}, false
}

// IDs returns target ids in file order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r.Targets))
	for _, target := range r.Targets {
		ids = append(ids, target.ID)
	}
	return ids
}
