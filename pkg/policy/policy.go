// Package policy builds and persists the execution policy that bounds
// what an agent session's tools may do inside a project directory.
//
// The policy is a flat configuration value with three independent
// layers combined for defense in depth: an OS-level sandbox
// declaration, per-capability permission rules, and a pre-execution
// command-validation hook. The hook itself is injected at session
// construction and never persisted; this package only declares that it
// must be wired.
package policy

import "path/filepath"

// RelativeDir is where harness state lives inside a project directory.
const RelativeDir = ".vigil"

// FileName is the policy file name inside RelativeDir. First write
// wins: an existing file is never modified by the builder.
const FileName = "policy.json"

// Policy is the persisted policy document.
type Policy struct {
	Version     int              `json:"version"`
	Sandbox     SandboxPolicy    `json:"sandbox"`
	Permissions PermissionPolicy `json:"permissions"`
	ToolServers []ToolServer     `json:"tool_servers,omitempty"`
}

// SandboxPolicy declares that shell execution runs under OS-level
// isolation blocking filesystem and network access outside explicit
// grants. Enforcement belongs to the agent runtime's host layer.
type SandboxPolicy struct {
	Enabled bool `json:"enabled"`

	// AutoAllowBash skips per-command interactive approval when the
	// sandbox is active; commands still pass the validation hook.
	AutoAllowBash bool `json:"auto_allow_bash_if_sandboxed"`
}

// PermissionPolicy holds the per-capability allow rules. Filesystem
// rules use project-relative globs so that moving the directory cannot
// widen a grant.
type PermissionPolicy struct {
	DefaultMode string   `json:"default_mode"`
	Allow       []string `json:"allow"`
}

// ToolServer references an auxiliary tool server to enable for the
// session, such as browser automation.
type ToolServer struct {
	Name    string   `json:"name"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// Default returns the policy written for a fresh project. Write and
// edit grants are deliberately relative ("./**"): with the session's
// working directory pinned to the project, they cannot reach outside
// it.
func Default() Policy {
	return Policy{
		Version: 1,
		Sandbox: SandboxPolicy{
			Enabled:       true,
			AutoAllowBash: true,
		},
		Permissions: PermissionPolicy{
			DefaultMode: "acceptEdits",
			Allow: []string{
				"Read(*)",
				"Write(./**)",
				"Edit(./**)",
				"Glob(*)",
				"Grep(*)",
				// Bash is granted here; individual commands are still
				// validated by the pre-execution hook.
				"Bash(*)",
				"WebFetch(*)",
				"WebSearch(*)",
				"Browser(*)",
			},
		},
		ToolServers: []ToolServer{
			{Name: "browser"},
		},
	}
}

// PathIn returns the policy file path for a project directory.
func PathIn(projectDir string) string {
	return filepath.Join(projectDir, RelativeDir, FileName)
}
