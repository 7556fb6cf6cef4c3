package hook

import (
	"context"
	"time"

	"github.com/cperrin88/modstack/internal/logger"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = time.Minute

// DefaultHookManager keeps one script per hook type and runs it with a timeout.
type DefaultHookManager struct {
	executor *TengoExecutor
	// Timeout for each run, zero disables it.
	Timeout time.Duration
}

// NewHookManager creates a hook manager using DefaultTimeout.
func NewHookManager() *DefaultHookManager {
	return &DefaultHookManager{
		executor: NewTengoExecutor(),
		Timeout:  DefaultTimeout,
	}
}

// Execute runs the hook of hookType, if any, and returns its failure.
func (m *DefaultHookManager) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	return m.executor.Execute(ctx, hookType, hc)
}

// Run executes a hook and logs a failure instead of returning it. It reports whether
// the hook succeeded or was absent.
func (m *DefaultHookManager) Run(ctx context.Context, hookType HookType, hc HookContext) bool {
	h, ok := m.executor.Script(hookType)
	if !ok {
		return true
	}

	start := time.Now()
	err := m.Execute(ctx, hookType, hc)
	fields := logger.Fields{"hook": string(hookType), "duration": time.Since(start).Round(time.Millisecond)}
	if h.Source != "" {
		fields["source"] = h.Source
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("Hook failed", fields)
		return false
	}
	logger.Debug("Hook finished", fields)
	return true
}

// AddHook registers a hook, replacing the previous one of the same type.
func (m *DefaultHookManager) AddHook(hook Hook) error {
	if hook.Type == "" {
		return ErrHookTypeEmpty
	}
	m.executor.AddScript(hook)
	return nil
}

// RemoveHook removes a hook of the specified type.
func (m *DefaultHookManager) RemoveHook(hookType HookType) error {
	if hookType == "" {
		return ErrHookTypeEmpty
	}
	m.executor.RemoveScript(hookType)
	return nil
}

// HasHook checks if a hook of the specified type exists.
func (m *DefaultHookManager) HasHook(hookType HookType) bool {
	_, ok := m.executor.Script(hookType)
	return ok
}

// Source returns the file a hook was loaded from, empty for inline hooks.
func (m *DefaultHookManager) Source(hookType HookType) string {
	h, _ := m.executor.Script(hookType)
	return h.Source
}
