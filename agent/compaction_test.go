package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ashishbhutani/coding-agent/llm"
)

func batchOf(id, name, content string) llm.Message {
	return llm.ToolResultsMessage([]llm.ToolResult{
		{ToolCallID: id, Name: name, Content: content},
	})
}

func historyWithBatches(n int, outputLen int) []llm.Message {
	history := []llm.Message{llm.UserMessage("start")}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		history = append(history,
			llm.AssistantMessage("", llm.ToolCall{ID: id, Name: "echo", Args: map[string]any{"i": float64(i)}}),
			batchOf(id, "echo", strings.Repeat("x", outputLen)),
		)
	}
	return history
}

func TestCompactionNoOpUnderWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 6
	a := New(nil, NewToolRegistry(), nil, cfg)
	a.history = historyWithBatches(6, 500)

	before := len(a.history)
	a.compactHistory(context.Background())
	if len(a.history) != before {
		t.Error("compaction must be a no-op at or under the window")
	}
	if len(a.history[2].ToolResults[0].Content) != 500 {
		t.Error("no-op compaction must not touch payloads")
	}
}

func TestCompactionTruncationFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 2
	a := New(nil, NewToolRegistry(), nil, cfg)
	a.history = historyWithBatches(4, 500) // excess = 2

	a.compactHistory(context.Background())

	var batchContents []string
	for _, msg := range a.history {
		if msg.Role == llm.RoleTool {
			batchContents = append(batchContents, msg.ToolResults[0].Content)
		}
	}
	if len(batchContents) != 4 {
		t.Fatalf("truncation must keep all structural messages, got %d batches", len(batchContents))
	}
	for i := 0; i < 2; i++ {
		if len(batchContents[i]) > truncatedResultLimit+len(truncationMarker) {
			t.Errorf("batch %d should be truncated, has %d chars", i, len(batchContents[i]))
		}
		if !strings.HasSuffix(batchContents[i], truncationMarker) {
			t.Errorf("batch %d missing truncation marker", i)
		}
	}
	for i := 2; i < 4; i++ {
		if len(batchContents[i]) != 500 {
			t.Errorf("batch %d inside the window must stay intact", i)
		}
	}
	checkTranscriptInvariant(t, a.history)
}

func TestCompactionShortOutputsUntouched(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 1
	a := New(nil, NewToolRegistry(), nil, cfg)
	a.history = historyWithBatches(2, 50)

	a.compactHistory(context.Background())
	for _, msg := range a.history {
		if msg.Role == llm.RoleTool && strings.Contains(msg.ToolResults[0].Content, truncationMarker) {
			t.Error("outputs at or under 200 chars must not gain a marker")
		}
	}
}

func TestCompactionSummarizerReplacesPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 2
	summarizer := &fixedSummarizer{text: "did three things"}
	a := New(nil, NewToolRegistry(), nil, cfg, WithSummarizer(summarizer))
	a.history = historyWithBatches(3, 500) // excess = 1, cutoff past batch 1

	before := len(a.history) // 1 + 3*2 = 7
	a.compactHistory(context.Background())

	if summarizer.calls != 1 {
		t.Fatalf("expected one summarizer call, got %d", summarizer.calls)
	}
	// Prefix [user, assistant, batch] collapses into one summary message.
	if len(a.history) != before-2 {
		t.Errorf("expected %d messages after compaction, got %d", before-2, len(a.history))
	}
	first := a.history[0]
	if first.Role != llm.RoleUser || !strings.Contains(first.Content, "did three things") {
		t.Errorf("summary message malformed: %+v", first)
	}
	checkTranscriptInvariant(t, a.history)
}

type failingSummarizer struct{ calls int }

func (s *failingSummarizer) Summarize(ctx context.Context, prefix []llm.Message) (string, error) {
	s.calls++
	return "", fmt.Errorf("summarizer model unavailable")
}

func TestCompactionSummarizerFailureFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 1
	summarizer := &failingSummarizer{}

	var warnings int
	a := New(nil, NewToolRegistry(), nil, cfg,
		WithSummarizer(summarizer),
		WithEventSink(func(e Event) {
			if e.Kind == EventWarning {
				warnings++
			}
		}))
	a.history = historyWithBatches(2, 500)

	a.compactHistory(context.Background())
	if summarizer.calls != 1 {
		t.Fatalf("summarizer should be tried once, got %d", summarizer.calls)
	}
	if warnings == 0 {
		t.Error("fallback should be logged")
	}
	// Structure preserved, first batch truncated.
	if len(a.history) != 5 {
		t.Fatalf("fallback must not drop messages, got %d", len(a.history))
	}
	if !strings.HasSuffix(a.history[2].ToolResults[0].Content, truncationMarker) {
		t.Error("first batch should be truncated after fallback")
	}
}

func TestRenderTranscript(t *testing.T) {
	prefix := []llm.Message{
		llm.UserMessage("fix the tests"),
		llm.AssistantMessage("checking", llm.ToolCall{ID: "c1", Name: "run_command", Args: map[string]any{"command": "go test"}}),
		batchOf("c1", "run_command", "FAIL: TestX"),
	}

	out := renderTranscript(prefix)
	if !strings.Contains(out, "[user] fix the tests") {
		t.Errorf("user line missing: %q", out)
	}
	if !strings.Contains(out, "[called: run_command(") {
		t.Errorf("call annotation missing: %q", out)
	}
	if !strings.Contains(out, "[tool:run_command] FAIL: TestX") {
		t.Errorf("tool preview missing: %q", out)
	}
}

func TestProviderSummarizer(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.CompletionResponse{textResponse("  concise summary  ")}}
	s := NewProviderSummarizer(provider)

	summary, err := s.Summarize(context.Background(), historyWithBatches(1, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "concise summary" {
		t.Errorf("summary should be trimmed: %q", summary)
	}
	if !strings.Contains(provider.lastSystem, "summarize") && !strings.Contains(provider.lastSystem, "summary") {
		t.Errorf("summarizer should carry its own system instruction: %q", provider.lastSystem)
	}

	empty := &scriptedProvider{responses: []*llm.CompletionResponse{textResponse("   ")}}
	if _, err := NewProviderSummarizer(empty).Summarize(context.Background(), nil); err == nil {
		t.Error("empty summary should error so the caller can fall back")
	}
}
