package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmProvider implements Provider on top of the gollm library. It is the
// fallback path for provider names without a dedicated SDK integration
// (mistral, groq, ollama, ...).
//
// gollm flattens the conversation into a single prompt, so tool calls come
// back embedded in the response text and are parsed out heuristically. Token
// usage is not reported.
type GollmProvider struct {
	provider string
	llm      gollm.LLM
	model    string
}

var _ Provider = (*GollmProvider)(nil)

// NewGollmProvider creates a gollm-backed Provider. If apiKey is empty,
// gollm reads it from the provider's environment variable.
func NewGollmProvider(provider, apiKey, model string, opts ChatOptions) (*GollmProvider, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	temperature := 0.7
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(temperature),
		gollm.SetMaxRetries(0), // retries are handled by llm.Retry
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}

	l, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Message: "failed to create gollm client", Cause: err}
	}
	return &GollmProvider{provider: provider, llm: l, model: model}, nil
}

func (p *GollmProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*CompletionResponse, error) {
	prompt := p.translate(messages, tools, system)

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, wrapProviderErr(p.provider, err)
	}

	toolCalls := parseEmbeddedToolCalls(text)
	cleaned := stripEmbeddedToolCalls(text, toolCalls)

	return &CompletionResponse{
		Text:         cleaned,
		ToolCalls:    toolCalls,
		FinishReason: finishFromToolCalls(toolCalls, FinishStop),
	}, nil
}

// translate flattens the canonical transcript into a gollm prompt. Assistant
// turns and tool results become labeled context lines, since gollm's prompt
// model is single-shot.
func (p *GollmProvider) translate(messages []Message, tools []ToolDefinition, system string) *gollm.Prompt {
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system += "\n" + msg.Content
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Args)
				parts = append(parts, fmt.Sprintf("[Assistant called %s(%s)]", tc.Name, args))
			}
		case RoleTool:
			for _, r := range msg.ToolResults {
				prefix := "[Tool Result]"
				if r.IsError {
					prefix = "[Tool Error]"
				}
				parts = append(parts, prefix+": "+r.Content)
			}
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if strings.TrimSpace(system) != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	if len(tools) > 0 {
		gollmTools := make([]gollm.Tool, 0, len(tools))
		for _, t := range tools {
			gollmTools = append(gollmTools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(gollmTools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// parseEmbeddedToolCalls extracts tool calls that gollm returns as JSON in
// the response text. Handles the common shapes {"tool_calls": ...} and
// [{"name": ..., "arguments": ...}].
func parseEmbeddedToolCalls(text string) []ToolCall {
	start := strings.Index(text, `{"tool_calls"`)
	if start == -1 {
		start = strings.Index(text, `[{"name"`)
	}
	if start == -1 {
		return nil
	}

	type rawCall struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	var rawCalls []rawCall
	payload := []byte(text[start:])
	if strings.HasPrefix(text[start:], `{"tool_calls"`) {
		var wrapped struct {
			ToolCalls []rawCall `json:"tool_calls"`
		}
		if err := json.Unmarshal(payload, &wrapped); err != nil {
			return nil
		}
		rawCalls = wrapped.ToolCalls
	} else if err := json.Unmarshal(payload, &rawCalls); err != nil {
		return nil
	}

	var calls []ToolCall
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:   "call-" + uuid.New().String()[:8],
			Name: rc.Name,
			Args: decodeArgs(rc.Arguments),
		})
	}
	return calls
}

// stripEmbeddedToolCalls removes parsed tool-call JSON from the text.
func stripEmbeddedToolCalls(text string, calls []ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, pattern := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, pattern); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

func (p *GollmProvider) String() string {
	return fmt.Sprintf("%s/%s", p.provider, p.model)
}
