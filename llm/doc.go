// Package llm defines the provider-agnostic chat-completion contract used by
// the coding agent.
//
// It holds the canonical conversation types (Message, ToolCall, ToolResult,
// ToolDefinition), the Provider interface, and concrete providers for Gemini
// (the default), Anthropic, OpenAI, and a gollm-backed fallback for any other
// provider name. Each provider owns the translation between the canonical
// transcript and the vendor's native request shape, including the JSON-Schema
// subset used for tool parameters. The agent loop never sees vendor types.
//
// # Quick Start
//
//	provider, err := llm.NewProvider(ctx, "gemini", "gemini-2.5-pro", apiKey, "", llm.ChatOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := provider.Chat(ctx,
//	    []llm.Message{llm.UserMessage("Hello")},
//	    nil, // tool definitions
//	    "You are a helpful assistant.")
//	fmt.Println(resp.Text)
//
// Failures are wrapped in *ProviderError, which names the provider and wraps
// the underlying cause. Retry with backoff is available via Retry for errors
// that IsRetryable reports as transient.
package llm
