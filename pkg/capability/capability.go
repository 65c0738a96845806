package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
)

var ErrUnknownCapability = errors.New("unknown capability")

// Manifest describes a capability to the backend: its tool name, which skill
// it belongs to and a JSON schema for its arguments.
type Manifest struct {
	Name        string
	Skill       entity.Skill
	Description string
	Parameters  map[string]interface{}
	SideEffects bool
}

type Capability interface {
	Manifest() Manifest
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// InvocationError is returned for every failed invocation so callers can hand
// the message back to the backend as a tool error.
type InvocationError struct {
	Capability string
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("capability %s failed with status %d: %v", e.Capability, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

type Registry struct {
	mu     sync.RWMutex
	byName map[string]Capability
	logger logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{
		byName: make(map[string]Capability),
		logger: log,
	}
}

func (r *Registry) Register(c Capability) error {
	m := c.Manifest()
	if m.Name == "" {
		return fmt.Errorf("capability has no name")
	}
	if !m.Skill.Valid() {
		return fmt.Errorf("capability %s declares unknown skill %q", m.Name, m.Skill)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[m.Name]; exists {
		return fmt.Errorf("capability %s already registered", m.Name)
	}
	r.byName[m.Name] = c
	return nil
}

// Manifests returns the manifests of every capability belonging to skills, sorted by name.
func (r *Registry) Manifests(skills []entity.Skill) []Manifest {
	wanted := make(map[entity.Skill]bool, len(skills))
	for _, s := range skills {
		wanted[s] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Manifest, 0)
	for _, c := range r.byName {
		m := c.Manifest()
		if wanted[m.Skill] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasSideEffects reports whether any capability attached through skills mutates external state.
func (r *Registry) HasSideEffects(skills []entity.Skill) bool {
	for _, m := range r.Manifests(skills) {
		if m.SideEffects {
			return true
		}
	}
	return false
}

func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	c, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &InvocationError{Capability: name, Err: ErrUnknownCapability}
	}

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return nil, &InvocationError{Capability: name, Err: fmt.Errorf("arguments are not valid JSON")}
	}

	out, err := c.Invoke(ctx, args)
	if err != nil {
		var invErr *InvocationError
		if !errors.As(err, &invErr) {
			err = &InvocationError{Capability: name, Err: err}
		}
		r.logger.Warn("CAPABILITY", "Invocation failed", map[string]interface{}{
			"capability": name,
			"error":      err.Error(),
		})
		return nil, err
	}
	return out, nil
}

// Func adapts a plain function into a Capability.
type Func struct {
	Spec Manifest
	Fn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

func (f Func) Manifest() Manifest { return f.Spec }

func (f Func) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return f.Fn(ctx, args)
}
