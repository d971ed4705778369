package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashishbhutani/coding-agent/llm"
)

const (
	compactionPrefix     = "[Context from earlier in this conversation: "
	compactionSuffix     = "]"
	truncatedResultLimit = 200
	truncationMarker     = "... [truncated]"
)

// Summarizer compresses a transcript prefix into a short factual summary.
// The agent holds one optionally; absence selects the truncation fallback.
type Summarizer interface {
	Summarize(ctx context.Context, prefix []llm.Message) (string, error)
}

const summarizerSystemPrompt = "You summarize coding-agent conversations. " +
	"Respond with a 2-3 sentence factual summary of what was attempted, what succeeded or failed, " +
	"and the current state. Plain prose only; no code, no lists."

// ProviderSummarizer implements Summarizer with a second Provider, typically
// a compact model with a small token budget and low temperature.
type ProviderSummarizer struct {
	provider llm.Provider
}

// NewProviderSummarizer wraps a provider as a Summarizer.
func NewProviderSummarizer(provider llm.Provider) *ProviderSummarizer {
	return &ProviderSummarizer{provider: provider}
}

func (s *ProviderSummarizer) Summarize(ctx context.Context, prefix []llm.Message) (string, error) {
	rendered := renderTranscript(prefix)
	resp, err := s.provider.Chat(ctx, []llm.Message{llm.UserMessage(rendered)}, nil, summarizerSystemPrompt)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("summarizer returned empty text")
	}
	return summary, nil
}

// renderTranscript serializes a transcript prefix as plain text for the
// summarizer: user lines, agent lines with call annotations, and tool
// result previews.
func renderTranscript(messages []llm.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleUser:
			fmt.Fprintf(&sb, "[user] %s\n", msg.Content)
		case llm.RoleAssistant:
			line := msg.Content
			if len(msg.ToolCalls) > 0 {
				var calls []string
				for _, tc := range msg.ToolCalls {
					args, _ := json.Marshal(tc.Args)
					calls = append(calls, fmt.Sprintf("%s(%s)", tc.Name, args))
				}
				if line != "" {
					line += " "
				}
				line += "[called: " + strings.Join(calls, ", ") + "]"
			}
			fmt.Fprintf(&sb, "[agent] %s\n", line)
		case llm.RoleTool:
			for _, r := range msg.ToolResults {
				fmt.Fprintf(&sb, "[tool:%s] %s\n", r.Name, llm.TextPreview(r.Content, 120))
			}
		}
	}
	return sb.String()
}

// compactHistory bounds the transcript after each tool round. It counts
// tool-result batches; once more than HistoryWindowSize exist, the prefix
// through the excess batches is either replaced with a one-message summary
// or, without a working summarizer, its tool output is truncated in place.
// Structural messages survive truncation, so the call/result pairing
// invariant holds for the whole transcript.
func (a *Agent) compactHistory(ctx context.Context) {
	var batches []int
	for i, msg := range a.history {
		if msg.Role == llm.RoleTool {
			batches = append(batches, i)
		}
	}
	excess := len(batches) - a.config.HistoryWindowSize
	if excess <= 0 {
		return
	}
	cutoff := batches[excess-1] + 1

	if a.summarizer != nil {
		summary, err := a.summarizer.Summarize(ctx, a.history[:cutoff])
		if err == nil {
			tail := a.history[cutoff:]
			compacted := make([]llm.Message, 0, len(tail)+1)
			compacted = append(compacted, llm.UserMessage(compactionPrefix+summary+compactionSuffix))
			compacted = append(compacted, tail...)
			a.history = compacted
			a.emit(EventCompaction, map[string]any{
				"mode":    "summarized",
				"dropped": cutoff,
			})
			return
		}
		a.emit(EventWarning, map[string]any{
			"message": "summarizer failed, falling back to truncation",
			"error":   err.Error(),
		})
	}

	for _, idx := range batches[:excess] {
		results := a.history[idx].ToolResults
		for i := range results {
			if len(results[i].Content) > truncatedResultLimit {
				results[i].Content = results[i].Content[:truncatedResultLimit] + truncationMarker
			}
		}
	}
	a.emit(EventCompaction, map[string]any{
		"mode":    "truncated",
		"batches": excess,
	})
}
