package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ashishbhutani/coding-agent/llm"
)

func stubTool(name, output string) RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        name,
			Description: "stub",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		Executor: func(args map[string]any) (string, error) {
			return output, nil
		},
	}
}

func TestRegistryEnumerationOrder(t *testing.T) {
	reg := NewToolRegistry()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		reg.Register(stubTool(name, name))
	}

	names := reg.Names()
	if len(names) != 3 || names[0] != "zulu" || names[1] != "alpha" || names[2] != "mike" {
		t.Errorf("enumeration must follow registration order, got %v", names)
	}

	defs := reg.Definitions()
	for i, d := range defs {
		if d.Name != names[i] {
			t.Errorf("definitions order diverges at %d: %s vs %s", i, d.Name, names[i])
		}
	}
}

func TestRegistryReplaceKeepsPosition(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(stubTool("first", "v1"))
	reg.Register(stubTool("second", "v1"))
	reg.Register(stubTool("first", "v2"))

	if reg.Count() != 2 {
		t.Fatalf("re-register must replace, got %d tools", reg.Count())
	}
	if names := reg.Names(); names[0] != "first" {
		t.Errorf("replaced tool should keep its position, got %v", names)
	}
	result := reg.Execute(llm.ToolCall{ID: "c1", Name: "first"})
	if result.Content != "v2" {
		t.Errorf("replacement executor not active: %q", result.Content)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(stubTool("known", "ok"))

	result := reg.Execute(llm.ToolCall{ID: "c1", Name: "missing"})
	if !result.IsError {
		t.Fatal("unknown tool must produce an error result")
	}
	if !strings.Contains(result.Content, "missing") || !strings.Contains(result.Content, "known") {
		t.Errorf("error should name the unknown tool and list registered names: %q", result.Content)
	}
	if result.ToolCallID != "c1" {
		t.Errorf("result should pair with the call, got %q", result.ToolCallID)
	}
}

func TestExecuteExecutorError(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{Name: "fails", Parameters: map[string]any{"type": "object"}},
		Executor: func(args map[string]any) (string, error) {
			return "", fmt.Errorf("file not found: x.go")
		},
	})

	result := reg.Execute(llm.ToolCall{ID: "c1", Name: "fails"})
	if !result.IsError || !strings.Contains(result.Content, "file not found") {
		t.Errorf("executor error should surface in the result: %+v", result)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{Name: "panics", Parameters: map[string]any{"type": "object"}},
		Executor: func(args map[string]any) (string, error) {
			panic("boom")
		},
	})

	result := reg.Execute(llm.ToolCall{ID: "c1", Name: "panics"})
	if !result.IsError || !strings.Contains(result.Content, "boom") {
		t.Errorf("panic should be reified into an error result: %+v", result)
	}
}
