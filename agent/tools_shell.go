package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/ashishbhutani/coding-agent/llm"
)

const (
	commandDefaultTimeoutMs = 120_000
	commandBufferCap        = 100 * 1024 // subprocess output retained
	commandDisplayCap       = 50 * 1024  // output shown to the model
)

// cappedBuffer retains at most limit bytes and drops the rest, so a runaway
// subprocess cannot exhaust memory. Write never errors; the subprocess keeps
// running with its output discarded.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		if n > 0 {
			b.dropped = true
		}
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
		b.dropped = true
	}
	b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }

func registerRunCommand(reg *ToolRegistry, safety *Safety) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "run_command",
			Description: "Run a shell command and return its combined output. Commands matching destructive patterns require operator confirmation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The command to run via the shell.",
					},
					"cwd": map[string]any{
						"type":        "string",
						"description": "Working directory for the command. Default: current directory.",
					},
					"timeout_ms": map[string]any{
						"type":        "integer",
						"description": "Timeout in milliseconds. Default: 120000 (2 minutes).",
					},
				},
				"required": []string{"command"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			command, ok := getStringArg(args, "command")
			if !ok || command == "" {
				return "", fmt.Errorf("command is required")
			}
			cwd, _ := getStringArg(args, "cwd")
			timeoutMs, hasTimeout := getIntArg(args, "timeout_ms")
			if !hasTimeout || timeoutMs <= 0 {
				timeoutMs = commandDefaultTimeoutMs
			}

			if err := safety.CheckCommand(command); err != nil {
				return "", err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
			defer cancel()

			shell, shellArg := "/bin/bash", "-c"
			if runtime.GOOS == "windows" {
				shell, shellArg = "cmd.exe", "/c"
			}
			cmd := exec.CommandContext(ctx, shell, shellArg, command)
			if cwd != "" {
				cmd.Dir = cwd
			}
			cmd.Env = append(os.Environ(), "PAGER=cat")
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			// On deadline, kill the whole process group so children holding the
			// output pipes cannot keep Run waiting past the timeout.
			cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) }

			stdout := &cappedBuffer{limit: commandBufferCap}
			stderr := &cappedBuffer{limit: commandBufferCap}
			cmd.Stdout = stdout
			cmd.Stderr = stderr

			runErr := cmd.Run()

			output := stdout.String()
			if s := stderr.String(); s != "" {
				if output != "" {
					output += "\n"
				}
				output += "[stderr]\n" + s
			}
			if len(output) > commandDisplayCap {
				output = output[:commandDisplayCap] + "\n\n[Output truncated at 50 KB]"
			}

			if ctx.Err() == context.DeadlineExceeded {
				if cmd.Process != nil {
					_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
				}
				return "", fmt.Errorf("Command timed out after %d ms. Partial output:\n%s\n\nTip: retry with a larger timeout_ms if the command legitimately needs more time", timeoutMs, output)
			}

			if runErr != nil {
				if exitErr, ok := runErr.(*exec.ExitError); ok {
					return "", fmt.Errorf("Command failed (exit code: %d):\n%s", exitErr.ExitCode(), output)
				}
				return "", fmt.Errorf("Command failed to start: %v", runErr)
			}

			if output == "" {
				return "(no output)", nil
			}
			return output, nil
		},
	})
}
