package types

import "time"

// Provider identifies the AI backend an agent prefers.
type Provider string

const (
	// ProviderAnthropic routes agent calls to Anthropic models
	ProviderAnthropic Provider = "anthropic"
	// ProviderOpenAI routes agent calls to OpenAI models
	ProviderOpenAI Provider = "openai"
)

// AgentDefinition describes a named, versioned unit of work with declared
// capabilities and dependencies on other agents' outputs. Definitions live
// in the in-process registry; SyncToDatabase mirrors them into storage for
// discoverability only.
type AgentDefinition struct {
	// Slug is the unique agent identifier
	Slug string `json:"slug"`

	// Name is the human-readable agent name
	Name string `json:"name"`

	// Description describes what the agent produces
	Description string `json:"description,omitempty"`

	// Version is the agent definition version
	Version string `json:"version"`

	// Capabilities are the declared ability tags
	Capabilities []string `json:"capabilities,omitempty"`

	// DefaultProvider is the preferred AI backend
	DefaultProvider Provider `json:"default_provider"`

	// DependsOn lists agent slugs whose outputs this agent requires
	DependsOn []string `json:"depends_on,omitempty"`

	// RegisteredAt is when the definition was registered in this process
	RegisteredAt time.Time `json:"registered_at"`
}

// DependencyFingerprint returns a stable representation of the dependency
// set, used to detect structurally incompatible re-registration.
func (d *AgentDefinition) DependencyFingerprint() string {
	fp := ""
	for _, dep := range d.DependsOn {
		fp += dep + ";"
	}
	return fp
}
