package capability

import (
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
)

// Endpoint is one configured capability, parsed from
//
//	name=skill|http:https://host/path[|side-effects]
//	name=skill|nats:subject[|side-effects]
type Endpoint struct {
	Name        string
	Skill       entity.Skill
	Transport   string
	Address     string
	SideEffects bool
}

// ParseEndpoints reads a comma-separated list of capability endpoints.
func ParseEndpoints(raw string) ([]Endpoint, error) {
	var out []Endpoint
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, rest, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("capability %q: missing name", item)
		}
		parts := strings.Split(rest, "|")
		if len(parts) < 2 {
			return nil, fmt.Errorf("capability %s: expected skill|transport:address", name)
		}

		ep := Endpoint{Name: strings.TrimSpace(name), Skill: entity.Skill(strings.TrimSpace(parts[0]))}
		if !ep.Skill.Valid() {
			return nil, fmt.Errorf("capability %s: unknown skill %q", name, ep.Skill)
		}

		transport, address, ok := strings.Cut(strings.TrimSpace(parts[1]), ":")
		if !ok || address == "" {
			return nil, fmt.Errorf("capability %s: expected transport:address", name)
		}
		switch transport {
		case "http", "nats":
		default:
			return nil, fmt.Errorf("capability %s: unsupported transport %q", name, transport)
		}
		ep.Transport = transport
		ep.Address = address

		for _, flag := range parts[2:] {
			if strings.TrimSpace(flag) == "side-effects" {
				ep.SideEffects = true
			}
		}
		out = append(out, ep)
	}
	return out, nil
}

// Manifest builds a generic manifest for a configured endpoint. Configured
// capabilities take a free-form "input" string.
func (e Endpoint) Manifest() Manifest {
	return Manifest{
		Name:        e.Name,
		Skill:       e.Skill,
		Description: fmt.Sprintf("%s capability %s", e.Skill, e.Name),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"input": map[string]interface{}{"type": "string"},
			},
			"required": []string{"input"},
		},
		SideEffects: e.SideEffects,
	}
}
