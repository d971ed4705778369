package llm

import (
	"encoding/json"
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	u := UserMessage("hello")
	if u.Role != RoleUser || u.Content != "hello" {
		t.Errorf("unexpected user message: %+v", u)
	}

	a := AssistantMessage("hi", ToolCall{ID: "c1", Name: "echo", Args: map[string]any{"x": "y"}})
	if a.Role != RoleAssistant || len(a.ToolCalls) != 1 {
		t.Errorf("unexpected assistant message: %+v", a)
	}

	r := ToolResultsMessage([]ToolResult{{ToolCallID: "c1", Name: "echo", Content: "out"}})
	if r.Role != RoleTool || len(r.ToolResults) != 1 {
		t.Errorf("unexpected tool results message: %+v", r)
	}
}

func TestFinishFromToolCalls(t *testing.T) {
	calls := []ToolCall{{ID: "c1", Name: "echo"}}
	if got := finishFromToolCalls(calls, FinishStop); got != FinishToolCalls {
		t.Errorf("expected tool_calls with calls present, got %q", got)
	}
	if got := finishFromToolCalls(nil, FinishMaxTokens); got != FinishMaxTokens {
		t.Errorf("expected max_tokens to pass through, got %q", got)
	}
	if got := finishFromToolCalls(nil, ""); got != FinishStop {
		t.Errorf("expected stop default, got %q", got)
	}
}

func TestDecodeArgs(t *testing.T) {
	args := decodeArgs([]byte(`{"path":"a.go","line":3}`))
	if args["path"] != "a.go" {
		t.Errorf("expected path to decode, got %v", args)
	}
	if n, ok := args["line"].(float64); !ok || n != 3 {
		t.Errorf("expected numeric line, got %v", args["line"])
	}

	// Malformed and empty payloads decode to empty maps, never nil.
	for _, raw := range [][]byte{nil, []byte(""), []byte("not json")} {
		args := decodeArgs(raw)
		if args == nil || len(args) != 0 {
			t.Errorf("expected empty map for %q, got %v", raw, args)
		}
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	msg := AssistantMessage("working on it",
		ToolCall{ID: "c1", Name: "read_file", Args: map[string]any{"path": "main.go"}})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Role != RoleAssistant || len(back.ToolCalls) != 1 || back.ToolCalls[0].Name != "read_file" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestTextPreview(t *testing.T) {
	if got := TextPreview("short", 10); got != "short" {
		t.Errorf("expected untouched text, got %q", got)
	}
	got := TextPreview("line one\nline two and more", 12)
	if len(got) != 15 { // 12 chars + "..."
		t.Errorf("expected capped preview, got %q", got)
	}
	if got[4] != ' ' {
		t.Errorf("expected newline flattened to space, got %q", got)
	}
}
