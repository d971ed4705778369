package llm

import "context"

// NewProvider constructs the Provider for a provider name. "gemini",
// "anthropic", and "openai" get their dedicated SDK integrations; any other
// name routes to the gollm fallback. baseURL only applies to the OpenAI
// provider (for OpenAI-compatible endpoints).
func NewProvider(ctx context.Context, name, model, apiKey, baseURL string, opts ChatOptions) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(ctx, apiKey, model, opts)
	case "anthropic":
		return NewAnthropicProvider(apiKey, model, opts), nil
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL, model, opts), nil
	default:
		return NewGollmProvider(name, apiKey, model, opts)
	}
}
