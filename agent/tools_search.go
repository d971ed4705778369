package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ashishbhutani/coding-agent/llm"
)

const (
	grepMaxMatches  = 50
	grepMaxFileSize = 1 << 20 // 1 MB
)

// grepIgnoreDirs are directory names skipped during the recursive search, in
// addition to every dot-prefixed directory.
var grepIgnoreDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".next":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".agent":       true,
}

// binaryExtensions are file extensions excluded from content search.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".pdf": true,
	".doc": true, ".docx": true, ".exe": true, ".dll": true, ".so": true,
	".dylib": true,
}

// listDirIgnore are entry names hidden from list_dir unless overridden.
var listDirIgnore = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
}

var errGrepCapped = errors.New("grep result cap reached")

func registerGrepSearch(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "grep_search",
			Description: "Search file contents recursively. Returns matching lines as path:line: text. Literal search by default; set is_regex for regular expressions.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Text or regex pattern to search for.",
					},
					"path": map[string]any{
						"type":        "string",
						"description": "Directory to search. Default: working directory.",
					},
					"is_regex": map[string]any{
						"type":        "boolean",
						"description": "Treat pattern as a regular expression. Default: false.",
					},
					"case_insensitive": map[string]any{
						"type":        "boolean",
						"description": "Ignore case. Default: false.",
					},
				},
				"required": []string{"pattern"},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			pattern, ok := getStringArg(args, "pattern")
			if !ok || pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			root, _ := getStringArg(args, "path")
			if root == "" {
				root = "."
			}
			isRegex, _ := getBoolArg(args, "is_regex")
			caseInsensitive, _ := getBoolArg(args, "case_insensitive")

			expr := pattern
			if !isRegex {
				expr = regexp.QuoteMeta(pattern)
			}
			if caseInsensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return "", fmt.Errorf("invalid pattern %q: %v", pattern, err)
			}

			absRoot, err := resolveFile(root)
			if err != nil {
				return "", err
			}
			if _, err := os.Stat(absRoot); err != nil {
				return "", fmt.Errorf("search path not found: %s", absRoot)
			}

			var matches []string
			capped := false
			walkErr := filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil // unreadable entries are skipped, not fatal
				}
				name := d.Name()
				if d.IsDir() {
					if path == absRoot {
						return nil
					}
					if grepIgnoreDirs[name] || strings.HasPrefix(name, ".") {
						return filepath.SkipDir
					}
					return nil
				}
				if binaryExtensions[strings.ToLower(filepath.Ext(name))] {
					return nil
				}
				info, err := d.Info()
				if err != nil || info.Size() > grepMaxFileSize {
					return nil
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return nil
				}
				rel, err := filepath.Rel(absRoot, path)
				if err != nil {
					rel = path
				}
				for i, line := range strings.Split(string(data), "\n") {
					if !re.MatchString(line) {
						continue
					}
					if len(matches) >= grepMaxMatches {
						capped = true
						return errGrepCapped
					}
					matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				}
				return nil
			})
			if walkErr != nil && !errors.Is(walkErr, errGrepCapped) {
				return "", fmt.Errorf("search failed: %v", walkErr)
			}

			if len(matches) == 0 {
				return fmt.Sprintf("No matches found for %q in %s", pattern, absRoot), nil
			}
			header := fmt.Sprintf("Found %d matches:", len(matches))
			if capped {
				header = fmt.Sprintf("Found 50+ matches (showing first %d):", grepMaxMatches)
			}
			return header + "\n" + strings.Join(matches, "\n"), nil
		},
	})
}

// humanSize renders a byte count as B, KB, or MB with one decimal above 1 KB.
func humanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

func registerListDir(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "list_dir",
			Description: "List a directory's entries, directories first, with file sizes. Hidden and ignored entries are filtered unless show_hidden is set.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Directory to list. Default: working directory.",
					},
					"show_hidden": map[string]any{
						"type":        "boolean",
						"description": "Include hidden and ignored entries. Default: false.",
					},
				},
			},
		},
		Executor: func(args map[string]any) (string, error) {
			path, _ := getStringArg(args, "path")
			if path == "" {
				path = "."
			}
			showHidden, _ := getBoolArg(args, "show_hidden")

			abs, err := resolveFile(path)
			if err != nil {
				return "", err
			}
			entries, err := os.ReadDir(abs)
			if err != nil {
				return "", fmt.Errorf("cannot list %s: %v", abs, err)
			}

			var dirs, files []os.DirEntry
			for _, e := range entries {
				name := e.Name()
				if !showHidden && (strings.HasPrefix(name, ".") || listDirIgnore[name]) {
					continue
				}
				if e.IsDir() {
					dirs = append(dirs, e)
				} else {
					files = append(files, e)
				}
			}
			sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
			sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

			var sb strings.Builder
			fmt.Fprintf(&sb, "Directory: %s\n", abs)
			for _, d := range dirs {
				fmt.Fprintf(&sb, "%s/\n", d.Name())
			}
			for _, f := range files {
				size := int64(0)
				if info, err := f.Info(); err == nil {
					size = info.Size()
				}
				fmt.Fprintf(&sb, "%s (%s)\n", f.Name(), humanSize(size))
			}
			if len(dirs)+len(files) == 0 {
				sb.WriteString("(empty)\n")
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
	})
}
