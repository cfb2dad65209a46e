package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the simulation policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.simulation_policy.result as
// {"decision": string, "reasons": set of strings}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.simulation_policy.result"),
		rego.Module("simulation_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// SimulationInput is the admission input for a simulation about to be created.
type SimulationInput struct {
	Name            string
	AgentIDs        []string
	Steps           int
	InitialPrompt   string
	EnvironmentType string
	MaxAgents       int
}

func (in SimulationInput) toMap() map[string]interface{} {
	ids := make([]interface{}, len(in.AgentIDs))
	for i, id := range in.AgentIDs {
		ids[i] = id
	}
	return map[string]interface{}{
		"name":             in.Name,
		"agent_ids":        ids,
		"steps":            in.Steps,
		"initial_prompt":   in.InitialPrompt,
		"environment_type": in.EnvironmentType,
		"max_agents":       in.MaxAgents,
	}
}

// EvaluateSimulation checks the creation policy for a simulation.
func (e *Engine) EvaluateSimulation(ctx context.Context, in SimulationInput) (string, string, error) {
	return e.Evaluate(ctx, in.toMap())
}

// Evaluate runs the policy against an arbitrary input document.
// Returns: decision (allow, block), reason (may be empty), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return "", "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	decision, _ := obj["decision"].(string)
	if decision == "" {
		decision = DecisionAllow
	}

	var reasons []string
	if raw, ok := obj["reasons"].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				reasons = append(reasons, s)
			}
		}
	}
	sort.Strings(reasons)

	return decision, strings.Join(reasons, "; "), nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package simulation_policy

default decision = "allow"

decision = "block" {
	count(deny) > 0
}

deny[msg] {
	input.max_agents > 0
	count(input.agent_ids) > input.max_agents
	msg := sprintf("too many agents: %d exceeds limit of %d", [count(input.agent_ids), input.max_agents])
}

deny[msg] {
	some i, j
	input.agent_ids[i] == input.agent_ids[j]
	i < j
	msg := sprintf("duplicate agent id: %s", [input.agent_ids[i]])
}

deny[msg] {
	input.environment_type == "custom"
	count(trim_space(input.initial_prompt)) < 20
	msg := "custom environments require an initial prompt of at least 20 characters"
}

result = {"decision": decision, "reasons": deny}
`
