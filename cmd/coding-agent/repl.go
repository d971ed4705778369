package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashishbhutani/coding-agent/agent"
	"github.com/ashishbhutani/coding-agent/cost"
	"github.com/ashishbhutani/coding-agent/llm"
	"github.com/ashishbhutani/coding-agent/store"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

const helpText = `Commands:
  /help     show this help
  /clear    reset the conversation
  /tools    list registered tools
  /cost     show the detailed usage report
  /verbose  toggle verbose logging
  /exit     quit (also /quit)

Anything else is sent to the model.`

// repl is the interactive surface: it reads operator lines, routes meta
// commands, renders agent events, and answers confirmation prompts.
type repl struct {
	in     *bufio.Reader
	out    io.Writer
	agent  *agent.Agent
	ledger *cost.Ledger
	log    *store.SessionLog
	model  string
}

func newREPL(in io.Reader, out io.Writer) *repl {
	return &repl{in: bufio.NewReader(in), out: out}
}

func (r *repl) run(ctx context.Context) int {
	fmt.Fprintf(r.out, "coding-agent (%s) — /help for commands\n", r.model)

	for {
		fmt.Fprint(r.out, promptStyle.Render("> ")+" ")
		line, err := r.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(r.out, dimStyle.Render("bye"))
				return 0
			}
			fmt.Fprintln(r.out, errorStyle.Render("read error: "+err.Error()))
			return 1
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := r.handleMeta(input); quit {
				return 0
			}
			continue
		}

		r.turn(ctx, input)

		select {
		case <-ctx.Done():
			return 0
		default:
		}
	}
}

func (r *repl) turn(ctx context.Context, input string) {
	r.persist("user", input)

	reply, err := r.agent.ProcessMessage(ctx, input)
	if err != nil {
		// Provider errors end the turn, not the session.
		fmt.Fprintln(r.out, errorStyle.Render("error: "+err.Error()))
		return
	}

	r.persist("assistant", reply)
	fmt.Fprintln(r.out, renderMarkdown(reply))
	fmt.Fprintln(r.out, dimStyle.Render(r.ledger.Summary()))
}

func (r *repl) handleMeta(input string) (quit bool) {
	switch input {
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/clear":
		r.agent.ClearHistory()
		fmt.Fprintln(r.out, dimStyle.Render("conversation cleared"))
	case "/tools":
		for _, def := range r.agent.Registry().Definitions() {
			fmt.Fprintf(r.out, "%s  %s\n",
				toolStyle.Render(def.Name),
				dimStyle.Render(llm.TextPreview(def.Description, 80)))
		}
	case "/cost":
		fmt.Fprintln(r.out, r.ledger.Report())
	case "/verbose":
		v := !r.agent.Verbose()
		r.agent.SetVerbose(v)
		fmt.Fprintf(r.out, "verbose logging %s\n", map[bool]string{true: "on", false: "off"}[v])
	case "/exit", "/quit":
		fmt.Fprintln(r.out, dimStyle.Render("bye"))
		return true
	default:
		fmt.Fprintln(r.out, warnStyle.Render("unknown command "+input+" — /help lists commands"))
	}
	return false
}

// confirm renders a y/N question and reads the answer from the same stdin
// stream as the REPL. The loop is serial, so this never races a prompt.
func (r *repl) confirm(prompt string) bool {
	fmt.Fprint(r.out, confirmStyle.Render(prompt)+" [y/N] ")
	line, err := r.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// handleEvent renders loop events. Tool calls, failed tool results, warnings
// and debug prompt payloads always show; the rest is verbose-gated.
func (r *repl) handleEvent(e agent.Event) {
	verbose := r.agent != nil && r.agent.Verbose()

	switch e.Kind {
	case agent.EventToolCall:
		args, _ := json.Marshal(e.Data["args"])
		fmt.Fprintln(r.out, toolStyle.Render(fmt.Sprintf("→ %s(%s)", e.Data["name"], llm.TextPreview(string(args), 100))))
	case agent.EventToolResult:
		isErr, _ := e.Data["is_error"].(bool)
		if isErr {
			fmt.Fprintln(r.out, errorStyle.Render(fmt.Sprintf("  ✗ %v", e.Data["preview"])))
		} else if verbose {
			fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("  ✓ %v", e.Data["preview"])))
		}
	case agent.EventRoundStart:
		if verbose {
			fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("round %v", e.Data["round"])))
		}
	case agent.EventCompaction:
		if verbose {
			fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("history compacted (%v)", e.Data["mode"])))
		}
	case agent.EventRepetition:
		if verbose {
			fmt.Fprintln(r.out, warnStyle.Render("repetition detected; forcing a text answer"))
		}
	case agent.EventUsage:
		if r.log != nil {
			in, _ := e.Data["input"].(int)
			out, _ := e.Data["output"].(int)
			c, _ := e.Data["cost"].(float64)
			if err := r.log.RecordUsage(in, out, c); err != nil {
				fmt.Fprintln(r.out, warnStyle.Render("warning: session log write failed: "+err.Error()))
			}
		}
		if verbose {
			fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("usage in=%v out=%v $%.4f", e.Data["input"], e.Data["output"], e.Data["cost"])))
		}
	case agent.EventWarning:
		fmt.Fprintln(r.out, warnStyle.Render(fmt.Sprintf("warning: %v", e.Data["message"])))
	case agent.EventDebugPrompt:
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("--- prompt payload ---\n%v\n---", e.Data["payload"])))
	}
}

func (r *repl) persist(role, content string) {
	if r.log == nil {
		return
	}
	if err := r.log.AppendMessage(role, content); err != nil {
		fmt.Fprintln(r.out, warnStyle.Render("warning: session log write failed: "+err.Error()))
	}
}

// renderMarkdown pretty-prints the model's answer; on any rendering failure
// the raw text is shown.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
