package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/taskhive/taskhive/core/pool"
	"github.com/taskhive/taskhive/core/sse"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
)

// process drives one task through context building, knowledge
// enrichment and result generation. Any error is a processing failure:
// the caller marks the task failed, publishes the error event and
// releases the agent.
func (o *Orchestrator) process(ctx context.Context, task *types.Task, agent *pool.Agent) error {
	task.Status = types.TaskStatusProcessing
	task.AgentID = agent.ID
	if err := o.queue.Update(task); err != nil {
		return fmt.Errorf("failed to mark task processing: %w", err)
	}

	userContext, err := o.contexts.BuildContext(task.UserID, task.Prompt)
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	queries, err := o.deriveQueries(ctx, task.Prompt, userContext)
	if err != nil {
		return fmt.Errorf("failed to derive knowledge queries: %w", err)
	}

	items := o.seeker.SeekKnowledge(ctx, queries)
	o.pool.AbsorbKnowledge(agent.ID, items, time.Now())
	o.remember(ctx, items)

	// Curiosity policy: with probability equal to the agent's curiosity
	// level, dig one level deeper into every freshly ingested topic.
	if o.rand.Float64() < agent.Curiosity {
		o.explore(ctx, agent, items)
	}

	result, err := o.generateResult(ctx, task, agent, userContext, items)
	if err != nil {
		return fmt.Errorf("failed to process task: %w", err)
	}

	task.Status = types.TaskStatusCompleted
	task.Result = result
	if err := o.queue.Update(task); err != nil {
		return fmt.Errorf("failed to persist result: %w", err)
	}

	// The result is durably persisted at this point, so a failing
	// interest update is logged instead of failing the task.
	if err := o.updateInterests(ctx, task, result); err != nil {
		xlog.Warn("Failed to update user interests", "task", task.ID, "user", task.UserID, "error", err)
	}

	o.hub.Publish(task.UserID, sse.NewTaskProgress(task.ID, result, agent.Name))

	xlog.Info("Task completed", "task", task.ID, "user", task.UserID, "agent", agent.ID)

	return nil
}

// explore is the curiosity-driven learning pass: the agent switches to
// the learning state, follows up on every newly ingested item and
// absorbs the extra knowledge before returning to work.
func (o *Orchestrator) explore(ctx context.Context, agent *pool.Agent, items []types.KnowledgeItem) {
	if len(items) == 0 {
		return
	}

	o.pool.SetLearning(agent.ID)
	defer o.pool.SetBusy(agent.ID)

	xlog.Debug("Agent is curious, exploring", "agent", agent.ID, "items", len(items))

	followUps := make([]string, 0, len(items))
	for _, item := range items {
		followUps = append(followUps, fmt.Sprintf("tell me more about %s and its implications", item.Topic))
	}

	extra := o.seeker.SeekKnowledge(ctx, followUps)
	o.pool.AbsorbKnowledge(agent.ID, extra, time.Now())
	o.remember(ctx, extra)
}

// remember stores items in the long-term vector memory, when enabled.
func (o *Orchestrator) remember(ctx context.Context, items []types.KnowledgeItem) {
	if o.memory == nil {
		return
	}
	for _, item := range items {
		if err := o.memory.Store(ctx, item); err != nil {
			xlog.Warn("Failed to store knowledge in vector memory", "topic", item.Topic, "error", err)
		}
	}
}

// deriveQueries extracts concepts from the prompt and emits three
// query variants per concept: definition, relation to the user's
// interests, and latest developments.
func (o *Orchestrator) deriveQueries(ctx context.Context, prompt string, userContext *types.UserContext) ([]string, error) {
	var extraction struct {
		Concepts []string `json:"concepts"`
	}

	err := llm.GenerateTypedJSON(ctx, o.client,
		"Extract the key concepts from the following request as short phrases:\n\n"+prompt,
		o.model,
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"concepts": {
					Type:        jsonschema.Array,
					Description: "Short concept phrases",
					Items:       &jsonschema.Definition{Type: jsonschema.String},
				},
			},
			Required: []string{"concepts"},
		}, &extraction)
	if err != nil {
		return nil, fmt.Errorf("concept extraction: %w", err)
	}

	interests := "general interests"
	if len(userContext.Interests) > 0 {
		interests = strings.Join(userContext.Interests, ", ")
	}

	queries := make([]string, 0, len(extraction.Concepts)*3)
	for _, concept := range extraction.Concepts {
		queries = append(queries,
			fmt.Sprintf("what is %s", concept),
			fmt.Sprintf("how does %s relate to %s", concept, interests),
			fmt.Sprintf("latest developments in %s", concept),
		)
	}
	return queries, nil
}

// updateInterests extracts interests from the prompt and result pair
// and unions them into the user's stored context.
func (o *Orchestrator) updateInterests(ctx context.Context, task *types.Task, result string) error {
	var extraction struct {
		Interests []string `json:"interests"`
	}

	err := llm.GenerateTypedJSON(ctx, o.client,
		fmt.Sprintf("List the user's apparent interests, as short topic labels, from this exchange.\nRequest: %s\nAnswer: %s",
			task.Prompt, result),
		o.model,
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"interests": {
					Type:        jsonschema.Array,
					Description: "Short interest labels",
					Items:       &jsonschema.Definition{Type: jsonschema.String},
				},
			},
			Required: []string{"interests"},
		}, &extraction)
	if err != nil {
		return fmt.Errorf("interest extraction: %w", err)
	}

	return o.contexts.UpdateUserContext(task.UserID, extraction.Interests, nil)
}
