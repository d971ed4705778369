package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider using the OpenAI SDK. A configurable
// base URL allows any OpenAI-compatible endpoint (Ollama, vLLM, Groq, ...).
type OpenAIProvider struct {
	client *openai.Client
	model  string
	opts   ChatOptions
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI-backed Provider for the given model.
// If baseURL is non-empty it overrides the default API endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string, opts ChatOptions) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIProvider{client: &client, model: model, opts: opts}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*CompletionResponse, error) {
	oaiMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		oaiMsgs = append(oaiMsgs, openai.SystemMessage(system))
	}
	for _, m := range messages {
		oaiMsgs = append(oaiMsgs, toOpenAIMessages(m)...)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: oaiMsgs,
	}
	if p.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.opts.MaxTokens))
	}
	if p.opts.Temperature != nil {
		params.Temperature = openai.Float(*p.opts.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapProviderErr("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Message: "response contained no choices"}
	}
	return fromOpenAIChoice(resp.Choices[0], resp.Usage), nil
}

// toOpenAITools converts tool definitions to the OpenAI representation. The
// JSON-Schema map passes through as function parameters.
func toOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		}
	}
	return out
}

// toOpenAIMessages converts one canonical message to OpenAI message unions.
// A tool-result batch expands into one tool message per result, preserving
// order.
func toOpenAIMessages(m Message) []openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case RoleSystem:
		// System instructions travel as the leading system message.
		return nil
	case RoleUser:
		return []openai.ChatCompletionMessageParamUnion{openai.UserMessage(m.Content)}
	case RoleTool:
		out := make([]openai.ChatCompletionMessageParamUnion, 0, len(m.ToolResults))
		for _, r := range m.ToolResults {
			out = append(out, openai.ToolMessage(r.Content, r.ToolCallID))
		}
		return out
	default: // RoleAssistant
		asst := openai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = openai.String(m.Content)
		}
		if len(m.ToolCalls) > 0 {
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					args = []byte("{}")
				}
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				}
			}
		}
		return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &asst}}
	}
}

// fromOpenAIChoice maps an OpenAI completion choice to the canonical shape.
func fromOpenAIChoice(choice openai.ChatCompletionChoice, usage openai.CompletionUsage) *CompletionResponse {
	out := &CompletionResponse{Text: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArgs([]byte(tc.Function.Arguments)),
		})
	}

	mapped := FinishStop
	if choice.FinishReason == "length" {
		mapped = FinishMaxTokens
	}
	out.FinishReason = finishFromToolCalls(out.ToolCalls, mapped)

	out.Usage = &Usage{
		InputTokens:  int(usage.PromptTokens),
		OutputTokens: int(usage.CompletionTokens),
	}
	return out
}

func (p *OpenAIProvider) String() string {
	return fmt.Sprintf("openai/%s", p.model)
}
