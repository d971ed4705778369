package agent

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const maxProjectDocBytes = 32 * 1024 // 32KB

const basePrompt = `You are an interactive coding agent. You help the operator with software engineering tasks by reading files, editing code, running commands, and iterating until the task is done.

# Core Principles

- Read files before editing them. Understand existing code before changing it.
- Prefer edit_file with old_text/new_text for targeted modifications; the old_text must be unique in the file.
- Use write_file only for new files or full rewrites.
- Keep changes minimal and focused. Only make changes that are directly requested or clearly necessary.
- After making changes, verify them by re-reading the file or running relevant commands.

# Tool Usage

- read_file shows numbered lines; pass start_line/end_line for large files.
- insert_lines and delete_lines handle pure line insertions and removals.
- grep_search finds text across the project; set is_regex for patterns.
- list_dir explores directory structure.
- run_command executes shell commands; destructive commands require operator approval, so explain what you are doing.

# Error Handling

- If a tool call fails, read the error, adjust, and try a different approach.
- If edit_file reports multiple matches, re-read the file and include more surrounding context in old_text.
- Do not repeat a failing call unchanged.`

// BuildSystemPrompt assembles the full system instruction: base behavior,
// environment context, git context, and any project instruction files.
func BuildSystemPrompt(workingDir, providerID, model string) string {
	var sb strings.Builder

	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")

	sb.WriteString(buildEnvironmentContext(workingDir, model))
	sb.WriteString("\n\n")

	if gitCtx := gitContext(workingDir); gitCtx != "" {
		sb.WriteString(gitCtx)
		sb.WriteString("\n\n")
	}

	if docs := discoverProjectDocs(workingDir, providerID); docs != "" {
		sb.WriteString("# Project Instructions\n\n")
		sb.WriteString(docs)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// buildEnvironmentContext generates the structured environment block.
func buildEnvironmentContext(workingDir, model string) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	fmt.Fprintf(&sb, "Is git repository: %v\n", isGitRepository(workingDir))
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", model)
	}
	sb.WriteString("</environment>")
	return sb.String()
}

// discoverProjectDocs loads project instruction files from the git root (or
// working directory) down to the working directory. AGENTS.md is always
// recognized; the provider-matched file is loaded alongside it. Total size
// is capped at 32KB.
func discoverProjectDocs(workingDir, providerID string) string {
	root := gitRoot(workingDir)
	if root == "" {
		root = workingDir
	}

	recognized := []string{"AGENTS.md"}
	switch providerID {
	case "anthropic":
		recognized = append(recognized, "CLAUDE.md")
	case "gemini":
		recognized = append(recognized, "GEMINI.md")
	case "openai":
		recognized = append(recognized, ".codex/instructions.md")
	}

	var docs []string
	totalBytes := 0

	for _, dir := range pathHierarchy(root, workingDir) {
		for _, fileName := range recognized {
			content, err := os.ReadFile(filepath.Join(dir, fileName))
			if err != nil {
				continue
			}

			remaining := maxProjectDocBytes - totalBytes
			if remaining <= 0 {
				docs = append(docs, "[Project instructions truncated at 32KB]")
				return strings.Join(docs, "\n\n---\n\n")
			}

			text := string(content)
			if len(text) > remaining {
				text = text[:remaining] + "\n[Project instructions truncated at 32KB]"
			}

			docs = append(docs, fmt.Sprintf("# %s (from %s)\n\n%s", fileName, dir, text))
			totalBytes += len(text)
		}
	}

	return strings.Join(docs, "\n\n---\n\n")
}

// gitContext summarizes the git state for the system prompt.
func gitContext(workingDir string) string {
	root := gitRoot(workingDir)
	if root == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<git_context>\n")

	if branch := gitBranch(root); branch != "" {
		fmt.Fprintf(&sb, "Branch: %s\n", branch)
	}
	if status := runGit(root, "status", "--short"); status != "" {
		lines := strings.Split(strings.TrimSpace(status), "\n")
		fmt.Fprintf(&sb, "Modified/untracked files: %d\n", len(lines))
	}
	if log := runGit(root, "log", "--oneline", "-5"); log != "" {
		sb.WriteString("Recent commits:\n")
		sb.WriteString(log)
	}

	sb.WriteString("</git_context>")
	return sb.String()
}

// pathHierarchy returns directories from root to target, inclusive.
func pathHierarchy(root, target string) []string {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if root == target {
		return []string{root}
	}

	dirs := []string{root}
	rel, err := filepath.Rel(root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dirs
	}

	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." {
			continue
		}
		current = filepath.Join(current, part)
		dirs = append(dirs, current)
	}
	return dirs
}

func isGitRepository(dir string) bool {
	out := runGit(dir, "rev-parse", "--is-inside-work-tree")
	return strings.TrimSpace(out) == "true"
}

func gitRoot(dir string) string {
	return strings.TrimSpace(runGit(dir, "rev-parse", "--show-toplevel"))
}

func gitBranch(dir string) string {
	return strings.TrimSpace(runGit(dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}
