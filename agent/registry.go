package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// Registry is a thread-safe catalog of agents keyed by slug.
type Registry struct {
	agents map[string]*Agent
	strict bool
	logger *zap.Logger
	mu     sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrictRedefinition makes Register return DUPLICATE_AGENT when a slug
// is re-registered with a different version or dependency set. The default
// is idempotent overwrite.
func WithStrictRedefinition() Option {
	return func(r *Registry) { r.strict = true }
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		agents: make(map[string]*Agent),
		logger: logger.With(zap.String("component", "agent_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or overwrites an agent definition by slug.
// Under strict redefinition policy, re-registering a slug with a different
// version or dependency set fails with DUPLICATE_AGENT; otherwise the new
// definition replaces the old one.
func (r *Registry) Register(def types.AgentDefinition, executor Executor) error {
	if def.Slug == "" {
		return types.NewError(types.ErrInvalidRequest, "agent slug is required")
	}
	if executor == nil {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("agent %s has no executor", def.Slug))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[def.Slug]; ok && r.strict {
		if existing.Definition.Version != def.Version ||
			existing.Definition.DependencyFingerprint() != def.DependencyFingerprint() {
			return types.NewError(types.ErrDuplicateAgent,
				fmt.Sprintf("agent %s already registered with incompatible definition", def.Slug))
		}
	}

	def.RegisteredAt = time.Now()
	r.agents[def.Slug] = &Agent{Definition: def, Executor: executor}

	r.logger.Debug("agent registered",
		zap.String("slug", def.Slug),
		zap.String("version", def.Version),
		zap.Strings("depends_on", def.DependsOn),
	)
	return nil
}

// Get returns the agent for a slug, or UNKNOWN_AGENT.
func (r *Registry) Get(slug string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[slug]
	if !ok {
		return nil, types.NewUnknownAgentError(slug)
	}
	return a, nil
}

// All returns every registered definition in slug order. The ordering is
// stable so listing endpoints are deterministic.
func (r *Registry) All() []types.AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.AgentDefinition, 0, len(r.agents))
	for _, a := range r.agents {
		defs = append(defs, a.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
