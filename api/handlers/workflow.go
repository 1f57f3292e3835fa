package handlers

import (
	"net/http"
	"strings"

	"github.com/restoraworks/reportflow/api"
	"github.com/restoraworks/reportflow/internal/ctxkeys"
	"github.com/restoraworks/reportflow/types"
	"github.com/restoraworks/reportflow/workflow"
	"go.uber.org/zap"
)

// WorkflowHandler serves the workflow lifecycle endpoints.
type WorkflowHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewWorkflowHandler creates a workflow handler.
func NewWorkflowHandler(engine *workflow.Engine, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{engine: engine, logger: logger}
}

// anonymousUser owns workflows created without authentication.
const anonymousUser = "anonymous"

func requestUser(r *http.Request) string {
	if id := ctxkeys.UserID(r.Context()); id != "" {
		return id
	}
	return anonymousUser
}

// HandleCreate creates a workflow for the requested root agent.
// @Summary Create workflow
// @Tags workflow
// @Accept json
// @Produce json
// @Success 201 {object} Response{data=api.WorkflowView}
// @Failure 400 {object} Response "Invalid request or cyclic dependency"
// @Failure 404 {object} Response "Unknown root agent"
// @Router /api/v1/workflows [post]
func (h *WorkflowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.RootAgent) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "root_agent is required", h.logger)
		return
	}

	wf, err := h.engine.CreateWorkflow(r.Context(), requestUser(r), req.RootAgent, req.Parameters)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("workflow created",
		zap.String("workflow_id", wf.ID),
		zap.String("root_agent", wf.RootAgent),
		zap.Int("total_tasks", wf.TotalTasks),
	)
	WriteStatus(w, r, http.StatusCreated, api.ToWorkflowView(wf, nil))
}

// HandleGet returns a workflow with its task detail.
// @Summary Get workflow
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Response{data=api.WorkflowView}
// @Failure 404 {object} Response "Workflow not found"
// @Router /api/v1/workflows/{id} [get]
func (h *WorkflowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	wf, tasks, err := h.engine.Get(r.Context(), requestUser(r), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, api.ToWorkflowView(wf, tasks))
}

// HandleExecute runs one poll-driven execution step.
// @Summary Execute workflow step
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Response{data=workflow.PollResult}
// @Failure 404 {object} Response "Workflow not found"
// @Router /api/v1/workflows/{id}/execute [post]
func (h *WorkflowHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	result, err := h.engine.ExecuteStep(r.Context(), requestUser(r), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, result)
}

// HandleResume re-queues failed tasks and restarts a halted workflow.
// @Summary Resume workflow
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Response{data=api.ResumeView}
// @Failure 409 {object} Response "Workflow is not resumable"
// @Router /api/v1/workflows/{id}/resume [post]
func (h *WorkflowHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	retried, wf, err := h.engine.Resume(r.Context(), requestUser(r), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, api.ResumeView{
		TasksRetried: retried,
		Workflow:     api.ToWorkflowView(wf, nil),
	})
}

// HandlePause pauses a running workflow between polls.
// @Summary Pause workflow
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Response{data=api.WorkflowView}
// @Failure 409 {object} Response "Workflow is not running"
// @Router /api/v1/workflows/{id}/pause [post]
func (h *WorkflowHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	wf, err := h.engine.Pause(r.Context(), requestUser(r), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, api.ToWorkflowView(wf, nil))
}

// HandleCancel cancels a workflow. Cancelling an already cancelled
// workflow is a no-op.
// @Summary Cancel workflow
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Response{data=api.WorkflowView}
// @Failure 409 {object} Response "Workflow already completed or failed"
// @Router /api/v1/workflows/{id}/cancel [post]
func (h *WorkflowHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "workflow ID is required", h.logger)
		return
	}

	wf, err := h.engine.Cancel(r.Context(), requestUser(r), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteSuccess(w, r, api.ToWorkflowView(wf, nil))
}
