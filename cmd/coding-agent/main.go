// Command coding-agent is an interactive coding agent: a REPL that pairs an
// LLM with filesystem and shell tools, with a confirmation gate in front of
// destructive actions and a running cost ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ashishbhutani/coding-agent/agent"
	"github.com/ashishbhutani/coding-agent/cost"
	"github.com/ashishbhutani/coding-agent/llm"
	"github.com/ashishbhutani/coding-agent/singleton"
	"github.com/ashishbhutani/coding-agent/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	apiKey := cfg.apiKey()
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "fatal: %s is not set (provider %q)\n", cfg.apiKeyVar(), cfg.Provider)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workingDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: cannot determine working directory: %v\n", err)
		return 1
	}

	lock, acquired, err := singleton.TryAcquire(workingDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	if !acquired {
		fmt.Fprintf(os.Stderr, "fatal: another agent is already running in %s\n", workingDir)
		return 1
	}
	defer lock.Release()

	provider, err := llm.NewProvider(ctx, cfg.Provider, cfg.Model, apiKey, cfg.BaseURL, llm.ChatOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	repl := newREPL(os.Stdin, os.Stdout)

	safety := agent.NewSafety(workingDir, repl.confirm)
	registry := agent.NewToolRegistry()
	agent.RegisterCoreTools(registry, safety)

	ledger := cost.NewLedger(cfg.Model)

	agentCfg := agent.DefaultConfig()
	agentCfg.DebugPrompts = cfg.DebugPrompts

	opts := []agent.Option{
		agent.WithSystemPrompt(agent.BuildSystemPrompt(workingDir, cfg.Provider, cfg.Model)),
		agent.WithEventSink(repl.handleEvent),
	}
	if model := cfg.summaryModel(); model != "" {
		lowTemp := 0.2
		summaryProvider, err := llm.NewProvider(ctx, cfg.Provider, model, apiKey, cfg.BaseURL,
			llm.ChatOptions{MaxTokens: 256, Temperature: &lowTemp})
		if err == nil {
			opts = append(opts, agent.WithSummarizer(agent.NewProviderSummarizer(summaryProvider)))
		} else {
			fmt.Fprintf(os.Stderr, "warning: summarizer unavailable: %v\n", err)
		}
	}

	a := agent.New(provider, registry, ledger, agentCfg, opts...)

	var sessionLog *store.SessionLog
	if cfg.LogDB != "" {
		sessionLog, err = store.Open(cfg.LogDB, uuid.New().String(), cfg.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: session log disabled: %v\n", err)
		} else {
			defer sessionLog.Close()
		}
	}

	repl.agent = a
	repl.ledger = ledger
	repl.log = sessionLog
	repl.model = fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model)

	return repl.run(ctx)
}
