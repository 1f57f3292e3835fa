package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/types"
)

// Register installs the built-in restoration-report agents into the
// registry. The dependency graph, root last:
//
//	scope-intake
//	moisture-survey   <- scope-intake
//	equipment-plan    <- moisture-survey
//	cost-estimate     <- scope-intake, equipment-plan
//	compliance-check  <- cost-estimate
//	report-draft      <- scope-intake, moisture-survey, cost-estimate
//	report-assembly   <- report-draft, compliance-check
//
// Executors here are deterministic context-shapers; provider calls made by
// production agents are opaque to the orchestrator either way.
func Register(reg *agent.Registry) error {
	for _, a := range builtins() {
		if err := reg.Register(a.Definition, a.Executor); err != nil {
			return err
		}
	}
	return reg.Validate()
}

func builtins() []agent.Agent {
	return []agent.Agent{
		{
			Definition: types.AgentDefinition{
				Slug:            "scope-intake",
				Name:            "Scope Intake",
				Description:     "Normalizes the loss description into a structured scope of work",
				Version:         "1.2.0",
				Capabilities:    []string{"intake", "scoping"},
				DefaultProvider: types.ProviderAnthropic,
			},
			Executor: agent.ExecutorFunc(scopeIntake),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "moisture-survey",
				Name:            "Moisture Survey",
				Description:     "Derives affected-area moisture readings from the scope",
				Version:         "1.0.3",
				Capabilities:    []string{"survey"},
				DefaultProvider: types.ProviderAnthropic,
				DependsOn:       []string{"scope-intake"},
			},
			Executor: agent.ExecutorFunc(moistureSurvey),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "equipment-plan",
				Name:            "Equipment Plan",
				Description:     "Plans drying equipment placement per affected area",
				Version:         "1.1.0",
				Capabilities:    []string{"planning"},
				DefaultProvider: types.ProviderOpenAI,
				DependsOn:       []string{"moisture-survey"},
			},
			Executor: agent.ExecutorFunc(equipmentPlan),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "cost-estimate",
				Name:            "Cost Estimate",
				Description:     "Builds the line-item estimate from scope and equipment plan",
				Version:         "2.0.1",
				Capabilities:    []string{"estimation"},
				DefaultProvider: types.ProviderAnthropic,
				DependsOn:       []string{"scope-intake", "equipment-plan"},
			},
			Executor: agent.ExecutorFunc(costEstimate),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "compliance-check",
				Name:            "Compliance Check",
				Description:     "Flags estimate lines that conflict with carrier guidelines",
				Version:         "1.0.0",
				Capabilities:    []string{"compliance"},
				DefaultProvider: types.ProviderOpenAI,
				DependsOn:       []string{"cost-estimate"},
			},
			Executor: agent.ExecutorFunc(complianceCheck),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "report-draft",
				Name:            "Report Draft",
				Description:     "Drafts the narrative report from scope, survey, and estimate",
				Version:         "1.4.0",
				Capabilities:    []string{"drafting"},
				DefaultProvider: types.ProviderAnthropic,
				DependsOn:       []string{"scope-intake", "moisture-survey", "cost-estimate"},
			},
			Executor: agent.ExecutorFunc(reportDraft),
		},
		{
			Definition: types.AgentDefinition{
				Slug:            "report-assembly",
				Name:            "Report Assembly",
				Description:     "Assembles the final report with compliance annotations",
				Version:         "1.0.2",
				Capabilities:    []string{"assembly"},
				DefaultProvider: types.ProviderAnthropic,
				DependsOn:       []string{"report-draft", "compliance-check"},
			},
			Executor: agent.ExecutorFunc(reportAssembly),
		},
	}
}

// requireOutput fetches a dependency's output from the workflow context,
// failing loudly when the upstream payload is missing.
func requireOutput(wfCtx types.WorkflowContext, slug string) (map[string]any, error) {
	out, ok := wfCtx[slug]
	if !ok {
		return nil, fmt.Errorf("missing upstream output: %s", slug)
	}
	return out, nil
}

func scopeIntake(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	description, _ := params["description"].(string)
	if description == "" {
		description = "unspecified loss"
	}
	return map[string]any{
		"scope":       description,
		"loss_type":   params["loss_type"],
		"prepared_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func moistureSurvey(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	scope, err := requireOutput(wfCtx, "scope-intake")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"scope_ref":      scope["scope"],
		"affected_areas": params["affected_areas"],
	}, nil
}

func equipmentPlan(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	survey, err := requireOutput(wfCtx, "moisture-survey")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"areas":      survey["affected_areas"],
		"placement":  "per-area dehumidifier and air mover set",
		"rental_day": params["rental_day"],
	}, nil
}

func costEstimate(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	scope, err := requireOutput(wfCtx, "scope-intake")
	if err != nil {
		return nil, err
	}
	plan, err := requireOutput(wfCtx, "equipment-plan")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"scope_ref":     scope["scope"],
		"equipment_ref": plan["placement"],
		"currency":      "USD",
	}, nil
}

func complianceCheck(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	estimate, err := requireOutput(wfCtx, "cost-estimate")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"estimate_ref": estimate["scope_ref"],
		"violations":   []string{},
	}, nil
}

func reportDraft(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	for _, dep := range []string{"scope-intake", "moisture-survey", "cost-estimate"} {
		if _, err := requireOutput(wfCtx, dep); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"sections": []string{"summary", "scope", "survey", "estimate"},
	}, nil
}

func reportAssembly(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	draft, err := requireOutput(wfCtx, "report-draft")
	if err != nil {
		return nil, err
	}
	if _, err := requireOutput(wfCtx, "compliance-check"); err != nil {
		return nil, err
	}
	return map[string]any{
		"sections": draft["sections"],
		"final":    true,
	}, nil
}
