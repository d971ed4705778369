package agent

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ConfirmationFunc asks the operator a yes/no question and reports approval.
// The loop is strictly serial, so at most one confirmation is in flight.
type ConfirmationFunc func(prompt string) bool

// DenyAll is the default ConfirmationFunc: every request is refused.
func DenyAll(string) bool { return false }

// dangerousCommandPatterns pairs each destructive shell pattern with a human
// label used in confirmation prompts and denial messages.
var dangerousCommandPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`\brm\b`), "file deletion (rm)"},
	{regexp.MustCompile(`\bunlink\b`), "file deletion (unlink)"},
	{regexp.MustCompile(`\brmdir\b`), "directory removal (rmdir)"},
	{regexp.MustCompile(`\bshred\b`), "secure file destruction (shred)"},
	{regexp.MustCompile(`\btruncate\b`), "file truncation (truncate)"},
	{regexp.MustCompile(`>\s*/dev/null`), "redirect to /dev/null"},
	{regexp.MustCompile(`>\s*\S+\.(ts|json)\b`), "redirect overwriting a source file"},
	{regexp.MustCompile(`\bgit\s+clean\b`), "git clean (removes untracked files)"},
	{regexp.MustCompile(`\bgit\s+checkout\s+--\s+\.`), "git checkout -- . (discards changes)"},
	{regexp.MustCompile(`\bgit\s+reset\s+--hard\b`), "git reset --hard (discards commits and changes)"},
}

// protectedPaths may not be blind-overwritten by write_file. Surgical edits
// are always permitted.
var protectedPaths = []string{
	"package.json",
	"package-lock.json",
	"tsconfig.json",
	".gitignore",
	".env",
	".env.example",
	"node_modules",
}

// Safety implements the three safety policies: command safety, the path
// sandbox, and protected-overwrite. Each checker returns nil to permit or an
// explanatory error to deny; a denial must have no side effects.
//
// The confirmation function is injected at construction so tests can install
// a stub and production can wire the REPL prompt.
type Safety struct {
	projectRoot string
	confirm     ConfirmationFunc
}

// NewSafety creates a Safety layer rooted at projectRoot. A nil confirm
// function denies everything.
func NewSafety(projectRoot string, confirm ConfirmationFunc) *Safety {
	if confirm == nil {
		confirm = DenyAll
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	return &Safety{projectRoot: filepath.Clean(abs), confirm: confirm}
}

// ProjectRoot returns the sandbox root captured at construction.
func (s *Safety) ProjectRoot() string { return s.projectRoot }

// CheckCommand screens a shell command against the dangerous-pattern list.
// The first matching pattern triggers a confirmation; approval permits the
// command, refusal denies it with a message naming both the command and the
// pattern.
func (s *Safety) CheckCommand(command string) error {
	for _, p := range dangerousCommandPatterns {
		if !p.re.MatchString(command) {
			continue
		}
		prompt := fmt.Sprintf("Command %q matches dangerous pattern: %s. Run it anyway?", command, p.label)
		if s.confirm(prompt) {
			return nil
		}
		return fmt.Errorf("Denied: command %q was blocked (%s)", command, p.label)
	}
	return nil
}

// CheckPath enforces the project sandbox. A path is inside the project iff,
// after absolute normalization, it equals or descends from the project root.
// Paths outside trigger a confirmation.
func (s *Safety) CheckPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("Denied: cannot resolve path %q: %v", path, err)
	}
	abs = filepath.Clean(abs)

	if s.insideProject(abs) {
		return nil
	}
	prompt := fmt.Sprintf("Path %q is outside the project root %q. Allow access?", abs, s.projectRoot)
	if s.confirm(prompt) {
		return nil
	}
	return fmt.Errorf("Denied: path %q is outside the project root %q", abs, s.projectRoot)
}

func (s *Safety) insideProject(abs string) bool {
	if abs == s.projectRoot {
		return true
	}
	return strings.HasPrefix(abs, s.projectRoot+string(filepath.Separator))
}

// CheckWrite guards write_file: the sandbox check, then the
// protected-overwrite policy.
func (s *Safety) CheckWrite(path string) error {
	if err := s.CheckPath(path); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(s.projectRoot, filepath.Clean(abs))
	if err != nil {
		return nil
	}
	for _, protected := range protectedPaths {
		if rel != protected {
			continue
		}
		prompt := fmt.Sprintf("%s is a protected file. Overwrite it completely?", rel)
		if s.confirm(prompt) {
			return nil
		}
		return fmt.Errorf("Denied: %s is protected from blind overwrite; use edit_file for targeted changes", rel)
	}
	return nil
}

// CheckEdit guards edit_file and the line-edit tools: sandbox only.
// Surgical edits of protected paths are always permitted.
func (s *Safety) CheckEdit(path string) error {
	return s.CheckPath(path)
}
