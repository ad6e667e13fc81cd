// Package agent routes tasks to one of four specialist prompt profiles and
// normalizes their replies.
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/model"
)

// Name identifies a specialist agent.
type Name string

const (
	Hunter       Name = "hunter"
	Closer       Name = "closer"
	Communicator Name = "communicator"
	Analyst      Name = "analyst"
)

// routing maps task types to their specialist. Unknown task types fall
// back to Communicator.
var routing = map[string]Name{
	"qualify_lead":            Hunter,
	"research_lead":           Hunter,
	"score_lead":              Hunter,
	"handle_objection":        Closer,
	"create_closing_strategy": Closer,
	"rescue_deal":             Closer,
	"write_message":           Communicator,
	"personalize":             Communicator,
	"create_sequence":         Communicator,
	"analyze_performance":     Analyst,
	"detect_patterns":         Analyst,
	"forecast":                Analyst,
}

// agentSkills maps each agent to its gateway skill.
var agentSkills = map[Name]string{
	Hunter:       llm.SkillAgentHunter,
	Closer:       llm.SkillAgentCloser,
	Communicator: llm.SkillAgentCommunicator,
	Analyst:      llm.SkillAgentAnalyst,
}

// Route returns the agent responsible for a task type.
func Route(taskType string) Name {
	if a, ok := routing[taskType]; ok {
		return a
	}
	return Communicator
}

// Task is one unit of specialist work.
type Task struct {
	Type      string
	Input     map[string]any
	UserID    string
	CompanyID string
	LeadID    string
}

// Result is the normalized agent reply.
type Result struct {
	Agent       Name           `json:"agent"`
	Success     bool           `json:"success"`
	Data        map[string]any `json:"data,omitempty"`
	Confidence  float64        `json:"confidence"` // 0..1
	Reasoning   string         `json:"reasoning"`
	Suggestions []string       `json:"suggestions,omitempty"`

	Interaction *llm.InteractionHandle `json:"-"`
}

// Dispatcher sends tasks to the right specialist through the gateway.
type Dispatcher struct {
	gateway *llm.Gateway
}

// NewDispatcher creates a dispatcher over the gateway.
func NewDispatcher(g *llm.Gateway) *Dispatcher {
	return &Dispatcher{gateway: g}
}

// Dispatch routes the task, runs the agent skill and parses the reply. A
// malformed reply degrades to a failed Result rather than an error so
// callers can surface the raw reasoning.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) (*Result, error) {
	agentName := Route(task.Type)

	input := map[string]any{
		"task_type": task.Type,
		"input":     task.Input,
	}
	res, err := d.gateway.Complete(ctx, llm.CallRequest{
		Skill:     agentSkills[agentName],
		Input:     input,
		UserID:    task.UserID,
		CompanyID: task.CompanyID,
		LeadID:    task.LeadID,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "agent: dispatch %s", task.Type)
	}

	result := parseResult(res.Content)
	result.Agent = agentName
	result.Interaction = res.Interaction

	zap.L().Info("agent task complete",
		zap.String("agent", string(agentName)),
		zap.String("task_type", task.Type),
		zap.Bool("success", result.Success),
		zap.Float64("confidence", result.Confidence),
	)
	return result, nil
}

// parseResult decodes the agent contract, clamping confidence into [0,1].
func parseResult(content string) *Result {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return &Result{Reasoning: model.Summarize(content)}
	}

	var r Result
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return &Result{Reasoning: model.Summarize(content)}
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return &r
}
