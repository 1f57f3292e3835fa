package agent

import (
	"strings"

	"github.com/gammazero/toposort"
	"github.com/restoraworks/reportflow/types"
)

// ResolveClosure computes the transitive dependency closure of the root
// slug: the root agent plus every agent it transitively requires,
// deduplicated by slug and returned in topological order (dependencies
// before dependents).
//
// Resolution is bounded by the registry size; an unknown slug anywhere in
// the closure fails with UNKNOWN_AGENT and a cycle fails with
// CYCLIC_DEPENDENCY before any workflow state is created.
func (r *Registry) ResolveClosure(rootSlug string) ([]types.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.agents[rootSlug]
	if !ok {
		return nil, types.NewUnknownAgentError(rootSlug)
	}

	// Walk the dependency graph breadth-first, bounded by registry size so
	// a cyclic graph cannot loop forever.
	closure := map[string]types.AgentDefinition{rootSlug: root.Definition}
	queue := append([]string(nil), root.Definition.DependsOn...)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > len(r.agents)*len(r.agents) {
			return nil, types.NewCyclicDependencyError("resolution did not terminate from " + rootSlug)
		}
		slug := queue[0]
		queue = queue[1:]
		if _, seen := closure[slug]; seen {
			continue
		}
		a, ok := r.agents[slug]
		if !ok {
			return nil, types.NewUnknownAgentError(slug)
		}
		closure[slug] = a.Definition
		queue = append(queue, a.Definition.DependsOn...)
	}

	// Topological sort over the closure; toposort reports cycles.
	var edges []toposort.Edge
	for slug, def := range closure {
		if len(def.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, slug})
			continue
		}
		for _, dep := range def.DependsOn {
			edges = append(edges, toposort.Edge{dep, slug})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, types.NewCyclicDependencyError(err.Error()).WithCause(err)
	}

	ordered := make([]types.AgentDefinition, 0, len(closure))
	for _, v := range sorted {
		if v == nil {
			continue
		}
		slug := v.(string)
		if def, ok := closure[slug]; ok {
			ordered = append(ordered, def)
		}
	}

	if len(ordered) != len(closure) {
		var missing []string
		found := make(map[string]bool, len(ordered))
		for _, def := range ordered {
			found[def.Slug] = true
		}
		for slug := range closure {
			if !found[slug] {
				missing = append(missing, slug)
			}
		}
		return nil, types.NewCyclicDependencyError("unsortable agents: " + strings.Join(missing, ", "))
	}

	return ordered, nil
}

// Validate runs closure resolution for every registered agent, surfacing
// cycles and dangling slugs at startup instead of creation time.
func (r *Registry) Validate() error {
	for _, def := range r.All() {
		if _, err := r.ResolveClosure(def.Slug); err != nil {
			return err
		}
	}
	return nil
}
