package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/mudler/xlog"
	"github.com/taskhive/taskhive/core/pool"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
)

const resultPromptTemplate = `{{ .Prompt }}

{{ if .Interests -}}
The user has previously shown interest in: {{ join ", " .Interests }}.
{{ end -}}
{{ if .Knowledge -}}
Background knowledge gathered for this request:
{{ range .Knowledge }}
### {{ .Topic }} (confidence {{ printf "%.2f" .Confidence }}, via {{ .Source }})
{{ .Content }}
{{ end }}
{{ end -}}
{{ if .Recalled -}}
Possibly relevant material from long-term memory:
{{ range .Recalled }}
- {{ . }}
{{ end }}
{{ end -}}
Answer the request above. Ground your answer in the background knowledge
where it applies, and be explicit about uncertainty.`

func templateBase(templateName, templateText string) (*template.Template, error) {
	return template.New(templateName).Funcs(sprig.FuncMap()).Parse(templateText)
}

// systemPrompt renders the agent's persona for the final generation.
func systemPrompt(agent *pool.Agent) string {
	return fmt.Sprintf("You are %s, an assistant with a %s disposition, specialized in %s.",
		agent.Name,
		strings.Join(agent.Personality, ", "),
		strings.Join(agent.Specialization, ", "),
	)
}

// generateResult combines prompt, user context, agent knowledge and
// gathered knowledge into the final result payload.
func (o *Orchestrator) generateResult(ctx context.Context, task *types.Task, agent *pool.Agent, userContext *types.UserContext, items []types.KnowledgeItem) (string, error) {
	// The agent's private knowledge accumulates across tasks and feeds
	// back into every generation.
	knowledge := o.pool.AgentKnowledge(agent.ID)
	seen := map[string]bool{}
	for _, item := range knowledge {
		seen[item.Query] = true
	}
	for _, item := range items {
		if !seen[item.Query] {
			knowledge = append(knowledge, item)
		}
	}

	var recalled []string
	if o.memory != nil {
		var err error
		recalled, err = o.memory.Search(ctx, task.Prompt, 3)
		if err != nil {
			xlog.Warn("Vector memory search failed", "task", task.ID, "error", err)
		}
	}

	tmpl, err := templateBase("result", resultPromptTemplate)
	if err != nil {
		return "", fmt.Errorf("prompt template: %w", err)
	}

	prompt := bytes.NewBuffer([]byte{})
	err = tmpl.Execute(prompt, struct {
		Prompt    string
		Interests []string
		Knowledge []types.KnowledgeItem
		Recalled  []string
	}{
		Prompt:    task.Prompt,
		Interests: userContext.Interests,
		Knowledge: knowledge,
		Recalled:  recalled,
	})
	if err != nil {
		return "", fmt.Errorf("prompt template: %w", err)
	}

	return llm.Generate(ctx, o.client, o.model, systemPrompt(agent), prompt.String())
}
