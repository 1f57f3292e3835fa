package agent

import (
	"context"

	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// DefinitionStore is the slice of the persistence layer the registry needs
// for discoverability sync.
type DefinitionStore interface {
	UpsertAgentDefinitions(ctx context.Context, defs []types.AgentDefinition) error
}

// SyncToDatabase idempotently mirrors the in-memory registry into the
// store so agents can be queried outside process memory. It is a side
// effect only; workflow creation always reads the in-memory registry.
func (r *Registry) SyncToDatabase(ctx context.Context, store DefinitionStore) error {
	defs := r.All()
	if err := store.UpsertAgentDefinitions(ctx, defs); err != nil {
		return types.NewError(types.ErrInternalError, "agent registry sync failed").WithCause(err)
	}

	r.logger.Info("agent registry synced", zap.Int("agents", len(defs)))
	return nil
}
