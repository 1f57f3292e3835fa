package handlers

import (
	"net/http"

	"github.com/restoraworks/reportflow/api"
	"github.com/restoraworks/reportflow/workflow"
	"go.uber.org/zap"
)

// AgentHandler serves the agent catalog endpoints.
type AgentHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(engine *workflow.Engine, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{engine: engine, logger: logger}
}

// HandleList lists all registered agents in slug order.
// @Summary List agents
// @Tags agent
// @Produce json
// @Success 200 {object} Response{data=[]api.AgentView}
// @Router /api/v1/agents [get]
func (h *AgentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	defs := h.engine.Agents()
	result := make([]api.AgentView, 0, len(defs))
	for _, d := range defs {
		result = append(result, api.ToAgentView(d))
	}
	WriteSuccess(w, r, result)
}
