package brief

import (
	"testing"

	"github.com/swarmdeck/core/internal/store"
)

func TestSelectTemplateMatchesByAgentTypeSubstring(t *testing.T) {
	cases := map[string]templateKind{
		"orchestrator":      templateOrchestrator,
		"tech-lead":         templateOrchestrator,
		"backend-developer": templateDeveloper,
		"frontend-dev":      templateDeveloper,
		"qa-specialist":     templateSpecialist,
		"validator":         templateValidator,
		"":                  templateValidator,
	}
	for agentType, want := range cases {
		if got := selectTemplate(agentType); got != want {
			t.Errorf("selectTemplate(%q) = %v, want %v", agentType, got, want)
		}
	}
}

func TestSelectTemplateIsCaseInsensitive(t *testing.T) {
	if got := selectTemplate("ORCHESTRATOR"); got != templateOrchestrator {
		t.Errorf("selectTemplate(\"ORCHESTRATOR\") = %v, want templateOrchestrator", got)
	}
}

func TestRenderTemplateIncludesPrependSummary(t *testing.T) {
	req := Request{AgentID: "agent-1", AgentType: "developer", PrependSummary: "finished the login flow"}
	session := &store.Session{ID: "s1"}

	lines := renderTemplate(req, session, nil, nil, nil, nil, nil)
	found := false
	for _, l := range lines {
		if l == "finished the login flow" {
			found = true
		}
	}
	if !found {
		t.Error("expected the prepended summary to appear in the rendered brief")
	}
}
