// Package hook runs user supplied tengo scripts around an apply. Scripts can read the
// apply outcome through predefined variables and report a failure by assigning a
// non-empty string or error to err. Hook failures are reported to the caller but never
// undo an apply.
package hook

import "context"

// HookType represents the point of an apply a script runs at.
type HookType string

// Supported hook types.
const (
	PreApply  HookType = "pre-apply"
	PostApply HookType = "post-apply"
)

// Types lists the hook types in execution order.
var Types = []HookType{PreApply, PostApply}

// Hook is a script registered for one hook type.
type Hook struct {
	Type    HookType
	Content string
	// Source is the file the script was read from, empty for inline scripts.
	Source string
}

func (h Hook) name() string {
	if h.Source != "" {
		return string(h.Type) + " (" + h.Source + ")"
	}
	return string(h.Type)
}

// HookContext contains information passed to hooks. The counters are only meaningful
// for PostApply.
type HookContext struct {
	InstallDir string
	LibraryDir string
	Game       string
	Success    bool
	Added      int
	Replaced   int
	Removed    int
	Vars       map[string]interface{}
}

// HookManager defines the interface for managing hooks.
type HookManager interface {
	// Execute runs the hook of the given type, if any
	Execute(ctx context.Context, hookType HookType, hc HookContext) error

	// AddHook adds a new hook
	AddHook(hook Hook) error

	// RemoveHook removes a hook of the specified type
	RemoveHook(hookType HookType) error

	// HasHook checks if a hook of the specified type exists
	HasHook(hookType HookType) bool
}
