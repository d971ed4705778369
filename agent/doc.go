// Package agent implements the interactive coding agent's control loop.
//
// It pairs a large language model with a catalog of filesystem and shell
// tools and orchestrates the turn-taking state machine: user message, LLM
// call, tool dispatch, history compaction, repeat until the model answers
// with plain text.
//
// The package is organized around these concepts:
//
//   - Agent: the turn loop, holding the transcript, detecting repeated tool
//     rounds, and bounding rounds per turn.
//   - ToolRegistry: ordered registration and dispatch of tools. Dispatch
//     never lets an error or panic escape; failures become tool results
//     with IsError set.
//   - Safety: dangerous-command detection, project-root sandboxing, and the
//     protected-path policy, all gated on an injected confirmation function.
//   - Summarizer: optional history compression using a cheaper model; absent
//     a summarizer, old tool output is truncated in place.
//   - EventSink: a callback receiving typed events at well-defined points
//     (round start, tool call, tool result, compaction, repetition) so the
//     host can render progress without the loop knowing about terminals.
//
// # Quick Start
//
//	registry := agent.NewToolRegistry()
//	safety := agent.NewSafety(projectRoot, confirmFn)
//	agent.RegisterCoreTools(registry, safety)
//
//	a := agent.New(provider, registry, ledger, agent.DefaultConfig())
//	reply, err := a.ProcessMessage(ctx, "add a --version flag")
package agent
