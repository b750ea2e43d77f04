package toolkit

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/harun/vigil/pkg/execguard"
)

const (
	maxReadBytes   = 256 * 1024
	maxFetchBytes  = 100 * 1024
	maxCommandOut  = 16 * 1024
	maxSearchLines = 200
	defaultTimeout = 60 * time.Second
)

// CommandValidator is the pre-execution hook consulted before every
// shell command. Satisfied by execguard.Allowlist.
type CommandValidator interface {
	Validate(command string) execguard.Verdict
}

// Options configures the core tool set.
type Options struct {
	// Root is the project directory. Write and edit operations are
	// confined to it; the session's shell runs inside it.
	Root string

	// Validator gates shell commands. Required when the bash tool is
	// registered.
	Validator CommandValidator

	// HTTPClient serves web_fetch. Defaults to a client with a modest
	// timeout.
	HTTPClient *http.Client
}

// CoreTools returns the baseline tool set: filesystem access, search,
// shell execution, and web fetch.
func CoreTools(opts Options) ([]Tool, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tool root: %w", err)
	}
	if opts.Validator == nil {
		return nil, fmt.Errorf("command validator is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return []Tool{
		readFileTool(root),
		writeFileTool(root),
		editFileTool(root),
		globTool(root),
		grepTool(root),
		bashTool(root, opts.Validator),
		webFetchTool(client),
	}, nil
}

// resolvePath maps a tool-supplied path onto the filesystem. Confined
// paths must stay inside root no matter how they are spelled.
func resolvePath(root, p string, confined bool) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	if confined && p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the project directory", p)
	}
	return p, nil
}

func readFileTool(root string) Tool {
	return Tool{
		Name:        "read_file",
		Description: "Read a file. Relative paths resolve against the project directory.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			target, err := resolvePath(root, stringParam(params, "path"), false)
			if err != nil {
				return "", err
			}
			f, err := os.Open(target)
			if err != nil {
				return "", err
			}
			defer f.Close()

			data, err := io.ReadAll(io.LimitReader(f, maxReadBytes+1))
			if err != nil {
				return "", err
			}
			if len(data) > maxReadBytes {
				return string(data[:maxReadBytes]) + "\n... [truncated]", nil
			}
			return string(data), nil
		},
	}
}

func writeFileTool(root string) Tool {
	return Tool{
		Name:        "write_file",
		Description: "Create or overwrite a file inside the project directory.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path inside the project", Required: true},
			{Name: "content", Type: "string", Description: "Full file content", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			target, err := resolvePath(root, stringParam(params, "path"), true)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			content := stringParam(params, "content")
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return "", err
			}
			rel, _ := filepath.Rel(root, target)
			return fmt.Sprintf("wrote %d bytes to %s", len(content), rel), nil
		},
	}
}

func editFileTool(root string) Tool {
	return Tool{
		Name:        "edit_file",
		Description: "Replace an exact text fragment in a file inside the project directory.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "File path inside the project", Required: true},
			{Name: "old", Type: "string", Description: "Exact text to replace", Required: true},
			{Name: "new", Type: "string", Description: "Replacement text", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			target, err := resolvePath(root, stringParam(params, "path"), true)
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(target)
			if err != nil {
				return "", err
			}
			old := stringParam(params, "old")
			if old == "" {
				return "", fmt.Errorf("old text is required")
			}
			text := string(data)
			if !strings.Contains(text, old) {
				return "", fmt.Errorf("text to replace not found in %s", stringParam(params, "path"))
			}
			text = strings.Replace(text, old, stringParam(params, "new"), 1)
			if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
				return "", err
			}
			return "edit applied", nil
		},
	}
}

func globTool(root string) Tool {
	return Tool{
		Name:        "glob",
		Description: "List project files matching a glob pattern. Supports ** for any number of directories.",
		Parameters: []Parameter{
			{Name: "pattern", Type: "string", Description: "Glob pattern, e.g. *.js or src/**/*.ts", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			pattern := stringParam(params, "pattern")
			if pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}

			var matches []string
			err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if skipDir(d.Name()) {
						return filepath.SkipDir
					}
					return nil
				}
				rel, _ := filepath.Rel(root, p)
				ok, matchErr := path.Match(pattern, d.Name())
				if matchErr != nil {
					return matchErr
				}
				if !ok {
					// Also try against the full relative path for
					// patterns with separators.
					ok = matchGlob(pattern, filepath.ToSlash(rel))
				}
				if ok {
					matches = append(matches, rel)
				}
				if len(matches) >= maxSearchLines {
					return fs.SkipAll
				}
				return nil
			})
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return "no matches", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

// matchGlob matches a slash-separated relative path against pattern,
// segment by segment. path.Match alone cannot express "any depth", so
// a ** segment here matches zero or more path segments.
func matchGlob(pattern, rel string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat = pat[1:]
		segs = segs[1:]
	}
	return len(segs) == 0
}

func grepTool(root string) Tool {
	return Tool{
		Name:        "grep",
		Description: "Search project files for a regular expression.",
		Parameters: []Parameter{
			{Name: "pattern", Type: "string", Description: "Regular expression", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			re, err := regexp.Compile(stringParam(params, "pattern"))
			if err != nil {
				return "", fmt.Errorf("invalid pattern: %w", err)
			}

			var lines []string
			err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if skipDir(d.Name()) {
						return filepath.SkipDir
					}
					return nil
				}
				data, err := os.ReadFile(p)
				if err != nil || isBinary(data) {
					return nil
				}
				rel, _ := filepath.Rel(root, p)
				for i, line := range strings.Split(string(data), "\n") {
					if re.MatchString(line) {
						lines = append(lines, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
						if len(lines) >= maxSearchLines {
							return fs.SkipAll
						}
					}
				}
				return nil
			})
			if err != nil {
				return "", err
			}
			if len(lines) == 0 {
				return "no matches", nil
			}
			return strings.Join(lines, "\n"), nil
		},
	}
}

func bashTool(root string, validator CommandValidator) Tool {
	return Tool{
		Name:        "bash",
		Description: "Run a shell command in the project directory. Commands are validated before execution.",
		Parameters: []Parameter{
			{Name: "command", Type: "string", Description: "Shell command", Required: true},
			{Name: "timeout", Type: "number", Description: "Timeout in seconds", Required: false},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			command := strings.TrimSpace(stringParam(params, "command"))
			if command == "" {
				return "", fmt.Errorf("command is required")
			}

			// The validation hook runs before every command attempt.
			// A denial is a transcript outcome, not a tool failure.
			if verdict := validator.Validate(command); !verdict.Allowed {
				return fmt.Sprintf("Command blocked by execution policy: %s", verdict.Reason), nil
			}

			timeout := time.Duration(numberParam(params, "timeout", defaultTimeout.Seconds())) * time.Second
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
			cmd.Dir = root
			output, err := cmd.CombinedOutput()

			text := string(output)
			if len(text) > maxCommandOut {
				text = text[:maxCommandOut] + "\n... [truncated]"
			}
			if err != nil {
				return "", fmt.Errorf("command failed: %v\n%s", err, text)
			}
			if text == "" {
				return "(no output)", nil
			}
			return text, nil
		},
	}
}

func webFetchTool(client *http.Client) Tool {
	return Tool{
		Name:        "web_fetch",
		Description: "Fetch a URL over HTTP(S) and return the response body.",
		Parameters: []Parameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (string, error) {
			rawURL := stringParam(params, "url")
			if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
				return "", fmt.Errorf("only http and https URLs are supported")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
			if err != nil {
				return "", err
			}
			text := string(body)
			if len(body) > maxFetchBytes {
				text = text[:maxFetchBytes] + "\n... [truncated]"
			}
			return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, text), nil
		},
	}
}

func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", ".vigil":
		return true
	}
	return false
}

func isBinary(data []byte) bool {
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	for _, b := range data[:limit] {
		if b == 0 {
			return true
		}
	}
	return false
}
