package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashishbhutani/coding-agent/llm"
)

// RegisterCoreTools registers the eight core tools on a registry. Tools that
// mutate the filesystem or launch subprocesses consult the safety layer
// before touching anything.
func RegisterCoreTools(reg *ToolRegistry, safety *Safety) {
	registerReadFile(reg)
	registerWriteFile(reg, safety)
	registerEditFile(reg, safety)
	registerInsertLines(reg, safety)
	registerDeleteLines(reg, safety)
	registerGrepSearch(reg)
	registerListDir(reg)
	registerRunCommand(reg, safety)
}

// fileLines holds a file's content split into lines, remembering whether the
// original ended with a newline so edits round-trip byte-identically.
type fileLines struct {
	lines           []string
	trailingNewline bool
}

func splitFileLines(content string) fileLines {
	if content == "" {
		return fileLines{}
	}
	lines := strings.Split(content, "\n")
	trailing := false
	if lines[len(lines)-1] == "" {
		trailing = true
		lines = lines[:len(lines)-1]
	}
	return fileLines{lines: lines, trailingNewline: trailing}
}

func (f fileLines) join() string {
	if len(f.lines) == 0 {
		return ""
	}
	out := strings.Join(f.lines, "\n")
	if f.trailingNewline {
		out += "\n"
	}
	return out
}

func countLines(content string) int {
	return len(splitFileLines(content).lines)
}

func resolveFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %v", path, err)
	}
	return abs, nil
}

func readTextFile(path string) (string, string, error) {
	abs, err := resolveFile(path)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("file not found: %s", abs)
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%s is a directory, not a file", abs)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("cannot read %s: %v", abs, err)
	}
	return abs, string(data), nil
}

func registerReadFile(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read a file and return its content with line numbers. Optionally limit to a 1-indexed inclusive line range.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file (relative paths resolve against the working directory).",
					},
					"start_line": map[string]any{
						"type":        "integer",
						"description": "First line to show (1-indexed). Default: 1.",
					},
					"end_line": map[string]any{
						"type":        "integer",
						"description": "Last line to show (inclusive). Default: end of file.",
					},
				},
				"required": []string{"path"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, ok := getStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			abs, content, err := readTextFile(path)
			if err != nil {
				return "", err
			}

			f := splitFileLines(content)
			total := len(f.lines)

			start, hasStart := getIntArg(args, "start_line")
			end, hasEnd := getIntArg(args, "end_line")
			if !hasStart {
				start = 1
			}
			if !hasEnd {
				end = total
			}
			// Clamp the range to [1, total].
			if start < 1 {
				start = 1
			}
			if end > total {
				end = total
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "File: %s (%d lines total, showing %d-%d)\n", abs, total, start, end)
			for i := start; i <= end; i++ {
				fmt.Fprintf(&sb, "%d: %s\n", i, f.lines[i-1])
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	})
}

func registerWriteFile(reg *ToolRegistry, safety *Safety) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file verbatim, creating it and any parent directories. Prefer edit_file for changing existing files.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to write to.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Full file content.",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, ok := getStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			content, ok := getStringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}
			if err := safety.CheckWrite(path); err != nil {
				return "", err
			}
			abs, err := resolveFile(path)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return "", fmt.Errorf("cannot create parent directory: %v", err)
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("cannot write %s: %v", abs, err)
			}
			return fmt.Sprintf("Wrote %s (%d lines)", abs, countLines(content)), nil
		},
	})
}

func registerEditFile(reg *ToolRegistry, safety *Safety) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name: "edit_file",
			Description: "Edit a file. Preferred mode: replace the unique occurrence of old_text with new_text. " +
				"Alternative mode: replace a 1-indexed inclusive line range (start_line/end_line) with new_text; empty new_text deletes the range.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to edit.",
					},
					"old_text": map[string]any{
						"type":        "string",
						"description": "Exact text to find. Must occur exactly once in the file.",
					},
					"new_text": map[string]any{
						"type":        "string",
						"description": "Replacement text.",
					},
					"start_line": map[string]any{
						"type":        "integer",
						"description": "First line of the range to replace (1-indexed). Used when old_text is absent.",
					},
					"end_line": map[string]any{
						"type":        "integer",
						"description": "Last line of the range to replace (inclusive).",
					},
				},
				"required": []string{"path", "new_text"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, ok := getStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			newText, ok := getStringArg(args, "new_text")
			if !ok {
				return "", fmt.Errorf("new_text is required")
			}
			if err := safety.CheckEdit(path); err != nil {
				return "", err
			}
			abs, content, err := readTextFile(path)
			if err != nil {
				return "", err
			}

			oldText, hasOld := getStringArg(args, "old_text")
			var newContent string
			if hasOld {
				count := strings.Count(content, oldText)
				if oldText == "" || count == 0 {
					return "", fmt.Errorf("old_text not found in %s", abs)
				}
				if count > 1 {
					return "", fmt.Errorf("old_text found %d times in %s; provide more surrounding context to make it unique", count, abs)
				}
				newContent = strings.Replace(content, oldText, newText, 1)
			} else {
				start, hasStart := getIntArg(args, "start_line")
				end, hasEnd := getIntArg(args, "end_line")
				if !hasStart || !hasEnd {
					return "", fmt.Errorf("either old_text or both start_line and end_line are required")
				}
				f := splitFileLines(content)
				total := len(f.lines)
				if start < 1 || end < start || start > total {
					return "", fmt.Errorf("invalid line range %d-%d for %s (%d lines)", start, end, abs, total)
				}
				if end > total {
					end = total
				}
				var replacement []string
				if newText != "" {
					replacement = splitFileLines(newText).lines
				}
				merged := make([]string, 0, total)
				merged = append(merged, f.lines[:start-1]...)
				merged = append(merged, replacement...)
				merged = append(merged, f.lines[end:]...)
				f.lines = merged
				newContent = f.join()
			}

			if err := os.WriteFile(abs, []byte(newContent), 0o644); err != nil {
				return "", fmt.Errorf("cannot write %s: %v", abs, err)
			}
			delta := countLines(newContent) - countLines(content)
			return fmt.Sprintf("Edited %s (net change: %+d lines)", abs, delta), nil
		},
	})
}

func registerInsertLines(reg *ToolRegistry, safety *Safety) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name: "insert_lines",
			Description: "Insert content into a file at a line position: 0 prepends, -1 appends, " +
				"1 through N+1 inserts before that line.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file.",
					},
					"line": map[string]any{
						"type":        "integer",
						"description": "Insert position: 0 = prepend, -1 = append, otherwise 1-indexed line to insert before.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Lines to insert (may be multi-line).",
					},
				},
				"required": []string{"path", "line", "content"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, ok := getStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			line, ok := getIntArg(args, "line")
			if !ok {
				return "", fmt.Errorf("line is required")
			}
			content, ok := getStringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}
			if err := safety.CheckEdit(path); err != nil {
				return "", err
			}
			abs, existing, err := readTextFile(path)
			if err != nil {
				return "", err
			}

			f := splitFileLines(existing)
			total := len(f.lines)

			var idx int
			switch {
			case line == 0:
				idx = 0
			case line == -1:
				idx = total
			case line >= 1 && line <= total+1:
				idx = line - 1
			default:
				return "", fmt.Errorf("line %d is out of range for %s (valid: 0, -1, or 1-%d)", line, abs, total+1)
			}

			inserted := strings.Split(content, "\n")
			merged := make([]string, 0, total+len(inserted))
			merged = append(merged, f.lines[:idx]...)
			merged = append(merged, inserted...)
			merged = append(merged, f.lines[idx:]...)
			f.lines = merged

			if err := os.WriteFile(abs, []byte(f.join()), 0o644); err != nil {
				return "", fmt.Errorf("cannot write %s: %v", abs, err)
			}
			return fmt.Sprintf("Inserted %d line(s) into %s; file now has %d lines", len(inserted), abs, len(f.lines)), nil
		},
	})
}

func registerDeleteLines(reg *ToolRegistry, safety *Safety) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "delete_lines",
			Description: "Delete a 1-indexed inclusive range of lines from a file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file.",
					},
					"start_line": map[string]any{
						"type":        "integer",
						"description": "First line to delete (1-indexed).",
					},
					"end_line": map[string]any{
						"type":        "integer",
						"description": "Last line to delete (inclusive; clamped to the end of file).",
					},
				},
				"required": []string{"path", "start_line", "end_line"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, ok := getStringArg(args, "path")
			if !ok || path == "" {
				return "", fmt.Errorf("path is required")
			}
			start, ok := getIntArg(args, "start_line")
			if !ok {
				return "", fmt.Errorf("start_line is required")
			}
			end, ok := getIntArg(args, "end_line")
			if !ok {
				return "", fmt.Errorf("end_line is required")
			}
			if err := safety.CheckEdit(path); err != nil {
				return "", err
			}
			abs, existing, err := readTextFile(path)
			if err != nil {
				return "", err
			}

			f := splitFileLines(existing)
			total := len(f.lines)
			if start < 1 || end < start || start > total {
				return "", fmt.Errorf("invalid line range %d-%d for %s (%d lines)", start, end, abs, total)
			}
			if end > total {
				end = total
			}

			deleted := end - start + 1
			f.lines = append(f.lines[:start-1], f.lines[end:]...)

			if err := os.WriteFile(abs, []byte(f.join()), 0o644); err != nil {
				return "", fmt.Errorf("cannot write %s: %v", abs, err)
			}
			return fmt.Sprintf("Deleted %d line(s) from %s; file now has %d lines", deleted, abs, len(f.lines)), nil
		},
	})
}
