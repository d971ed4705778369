package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ashishbhutani/coding-agent/cost"
	"github.com/ashishbhutani/coding-agent/llm"
)

// Config holds the loop's tuning knobs. Frozen after construction except for
// the verbose flag, which the REPL may toggle live.
type Config struct {
	MaxToolRounds     int  // tool rounds allowed per user turn
	Verbose           bool // gates which events the host renders
	MaxRepetitions    int  // identical consecutive rounds before the brake
	HistoryWindowSize int  // tool-result batches kept at full fidelity
	DebugPrompts      bool // dump the prompt payload before each call
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxToolRounds:     25,
		MaxRepetitions:    2,
		HistoryWindowSize: 6,
	}
}

// maxToolRoundsMessage is returned when a turn exhausts MaxToolRounds
// without the model producing a plain-text answer.
const maxToolRoundsMessage = "Maximum tool rounds reached for this request. The task may be incomplete; ask me to continue if needed."

// repetitionNotice is injected as a synthetic user message when the model
// repeats the same tool round too many times.
const repetitionNotice = "You appear to be repeating the same tool calls without making progress. " +
	"Stop calling tools and respond with a summary of what you found and what remains to be done."

// Agent drives the turn-taking state machine: user message, LLM call,
// optional tool dispatch, history compaction, repeat until terminal text.
// It is strictly serial; one turn runs at a time.
type Agent struct {
	provider     llm.Provider
	registry     *ToolRegistry
	ledger       *cost.Ledger
	config       Config
	systemPrompt string
	summarizer   Summarizer
	retry        llm.RetryPolicy
	sink         EventSink
	history      []llm.Message
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithSystemPrompt sets the system instruction sent on every provider call.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithSummarizer installs a history summarizer. Without one, compaction
// falls back to truncating old tool output.
func WithSummarizer(s Summarizer) Option {
	return func(a *Agent) { a.summarizer = s }
}

// WithEventSink installs the event callback.
func WithEventSink(sink EventSink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithRetryPolicy overrides the retry policy for provider calls.
func WithRetryPolicy(policy llm.RetryPolicy) Option {
	return func(a *Agent) { a.retry = policy }
}

// New creates an Agent. The ledger may be nil when cost accounting is not
// wanted (the summarizer's agent, tests).
func New(provider llm.Provider, registry *ToolRegistry, ledger *cost.Ledger, config Config, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		registry: registry,
		ledger:   ledger,
		config:   config,
		retry:    llm.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// History returns a copy of the transcript.
func (a *Agent) History() []llm.Message {
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}

// ClearHistory resets the transcript (the /clear meta-command).
func (a *Agent) ClearHistory() {
	a.history = nil
}

// Verbose reports the current verbose flag.
func (a *Agent) Verbose() bool { return a.config.Verbose }

// SetVerbose toggles verbose logging live.
func (a *Agent) SetVerbose(v bool) { a.config.Verbose = v }

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *ToolRegistry { return a.registry }

// ProcessMessage runs one user turn: the input is appended to the
// transcript, then the loop alternates provider calls and tool rounds until
// the model answers with plain text, the repetition brake fires, or the
// round budget runs out.
//
// Provider errors abort the turn without mutating the transcript past the
// offending call; the caller reports them and the session continues.
func (a *Agent) ProcessMessage(ctx context.Context, input string) (string, error) {
	a.history = append(a.history, llm.UserMessage(input))

	toolRound := 0
	lastFingerprint := ""
	repetitionCount := 0

	for toolRound < a.config.MaxToolRounds {
		a.emit(EventRoundStart, map[string]any{"round": toolRound})

		resp, err := a.chat(ctx, a.registry.Definitions())
		if err != nil {
			return "", err
		}
		a.recordUsage(resp)

		if resp.FinishReason != llm.FinishToolCalls || len(resp.ToolCalls) == 0 {
			a.history = append(a.history, llm.AssistantMessage(resp.Text))
			return resp.Text, nil
		}

		toolRound++
		fingerprint := roundFingerprint(resp.ToolCalls)
		if fingerprint == lastFingerprint {
			repetitionCount++
			if repetitionCount >= a.config.MaxRepetitions {
				a.emit(EventRepetition, map[string]any{
					"fingerprint": fingerprint,
					"count":       repetitionCount,
				})
				a.history = append(a.history, llm.UserMessage(repetitionNotice))

				// No tools on this call forces a text answer.
				final, err := a.chat(ctx, nil)
				if err != nil {
					return "", err
				}
				a.recordUsage(final)
				a.history = append(a.history, llm.AssistantMessage(final.Text))
				return final.Text, nil
			}
		} else {
			lastFingerprint = fingerprint
			repetitionCount = 0
		}

		a.history = append(a.history, llm.AssistantMessage(resp.Text, resp.ToolCalls...))

		results := make([]llm.ToolResult, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			a.emit(EventToolCall, map[string]any{
				"name": call.Name,
				"args": call.Args,
			})
			results[i] = a.registry.Execute(call)
			a.emit(EventToolResult, map[string]any{
				"name":     call.Name,
				"is_error": results[i].IsError,
				"preview":  llm.TextPreview(results[i].Content, 200),
			})
		}
		a.history = append(a.history, llm.ToolResultsMessage(results))

		a.compactHistory(ctx)
	}

	return maxToolRoundsMessage, nil
}

// chat performs one provider call with retry, optionally dumping the prompt
// payload first.
func (a *Agent) chat(ctx context.Context, tools []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	if a.config.DebugPrompts {
		payload, _ := json.MarshalIndent(struct {
			System   string               `json:"system"`
			Messages []llm.Message        `json:"messages"`
			Tools    []llm.ToolDefinition `json:"tools,omitempty"`
		}{a.systemPrompt, a.history, tools}, "", "  ")
		a.emit(EventDebugPrompt, map[string]any{"payload": string(payload)})
	}

	return llm.Retry(ctx, a.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return a.provider.Chat(ctx, a.history, tools, a.systemPrompt)
	})
}

func (a *Agent) recordUsage(resp *llm.CompletionResponse) {
	if resp.Usage == nil || a.ledger == nil {
		return
	}
	entry := a.ledger.RecordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	a.emit(EventUsage, map[string]any{
		"input":  entry.InputTokens,
		"output": entry.OutputTokens,
		"cost":   entry.Cost,
	})
}

// roundFingerprint canonicalizes a round's tool calls for repetition
// detection. encoding/json marshals map keys in sorted order, which gives
// the canonical form directly.
func roundFingerprint(calls []llm.ToolCall) string {
	parts := make([]string, len(calls))
	for i, call := range calls {
		parts[i] = call.Name + "::" + canonicalJSON(call.Args)
	}
	return strings.Join(parts, "|")
}

func canonicalJSON(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
