package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider using the Google Gen AI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
	opts   ChatOptions
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini-backed Provider for the given model.
func NewGeminiProvider(ctx context.Context, apiKey, model string, opts ChatOptions) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Message: "failed to create genai client", Cause: err}
	}
	return &GeminiProvider{client: client, model: model, opts: opts}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, system string) (*CompletionResponse, error) {
	contents := toGeminiContents(messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	if p.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.opts.MaxTokens)
	}
	if p.opts.Temperature != nil {
		temp := float32(*p.opts.Temperature)
		config.Temperature = &temp
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, wrapProviderErr("gemini", err)
	}
	return fromGeminiResponse(resp)
}

// toGeminiContents translates the canonical transcript into genai contents.
//
// The Gemini API requires:
//   - "user" and "model" roles only (system travels via SystemInstruction)
//   - tool calls as FunctionCall parts on model turns
//   - tool results as FunctionResponse parts on user turns, in call order
func toGeminiContents(messages []Message) []*genai.Content {
	toolNames := make(map[string]string) // tool call ID -> name
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			// Routed via SystemInstruction; omitted from contents.
			continue

		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				toolNames[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: tc.Args,
					},
				})
			}
			if len(parts) == 0 {
				parts = []*genai.Part{{Text: ""}}
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		case RoleTool:
			var parts []*genai.Part
			for _, r := range msg.ToolResults {
				name := r.Name
				if name == "" {
					name = toolNames[r.ToolCallID]
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:   r.ToolCallID,
						Name: name,
						Response: map[string]any{
							"result": r.Content,
						},
					},
				})
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return contents
}

// toGeminiTools converts tool definitions into genai function declarations.
func toGeminiTools(tools []ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

var geminiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// toGeminiSchema recursively translates the JSON-Schema subset (type,
// description, properties, required, items, enum) into a genai.Schema.
// Unknown constructs are ignored; missing or non-object input yields an
// empty object schema.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}
	if schema == nil {
		return out
	}

	if t, ok := schema["type"].(string); ok {
		if mapped, known := geminiTypes[t]; known {
			out.Type = mapped
		}
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			subSchema, _ := sub.(map[string]any)
			out.Properties[name] = toGeminiSchema(subSchema)
		}
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	switch enum := schema["enum"].(type) {
	case []string:
		out.Enum = enum
	case []any:
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}

// fromGeminiResponse maps a genai response back to the canonical shape.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (*CompletionResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: "gemini", Message: "response contained no candidates"}
	}
	cand := resp.Candidates[0]

	out := &CompletionResponse{}
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				if out.Text != "" {
					out.Text += "\n"
				}
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				fc := part.FunctionCall
				id := fc.ID
				if id == "" {
					id = "call-" + uuid.New().String()
				}
				args := fc.Args
				if args == nil {
					args = map[string]any{}
				}
				out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: fc.Name, Args: args})
			}
		}
	}

	mapped := FinishStop
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		mapped = FinishMaxTokens
	}
	out.FinishReason = finishFromToolCalls(out.ToolCalls, mapped)

	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// String renders the provider identity for logs.
func (p *GeminiProvider) String() string {
	return fmt.Sprintf("gemini/%s", p.model)
}
