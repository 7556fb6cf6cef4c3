package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Modules scripts can import.
var scriptModules = []string{"fmt", "os", "text", "times", "json"}

// TengoExecutor compiles and runs hook scripts.
type TengoExecutor struct {
	hooks map[HookType]Hook
	mutex sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		hooks: make(map[HookType]Hook),
	}
}

// Execute runs the script registered for hookType. It returns nil when there is none.
// The script is aborted when ctx is done.
func (e *TengoExecutor) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	e.mutex.RLock()
	h, exists := e.hooks[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	script := tengo.NewScript([]byte(h.Content))
	script.SetImports(stdlib.GetModuleMap(scriptModules...))
	for name, value := range scriptVars(hookType, hc) {
		if err := script.Add(name, value); err != nil {
			return fmt.Errorf("failed to add variable '%s' to %s: %w", name, h.name(), err)
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", h.name(), ErrHookExecution, err)
	}
	return scriptError(h, compiled)
}

func scriptVars(hookType HookType, hc HookContext) map[string]interface{} {
	vars := map[string]interface{}{
		"hookType":   string(hookType),
		"installDir": hc.InstallDir,
		"libraryDir": hc.LibraryDir,
		"game":       hc.Game,
		"success":    hc.Success,
		"added":      hc.Added,
		"replaced":   hc.Replaced,
		"removed":    hc.Removed,
	}
	for k, v := range hc.Vars {
		vars[k] = v
	}
	return vars
}

// scriptError turns the script's err global into a Go error.
func scriptError(h Hook, compiled *tengo.Compiled) error {
	if !compiled.IsDefined("err") {
		return nil
	}
	switch v := compiled.Get("err").Value().(type) {
	case error:
		return fmt.Errorf("%s: %w: %w", h.name(), ErrHookScript, v)
	case string:
		if v != "" {
			return fmt.Errorf("%s: %w: %s", h.name(), ErrHookScript, v)
		}
	}
	return nil
}

// AddScript registers h, replacing the script of the same type.
func (e *TengoExecutor) AddScript(h Hook) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.hooks[h.Type] = h
}

// RemoveScript removes the script for the specified hook type.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.hooks, hookType)
}

// Script returns the hook registered for hookType.
func (e *TengoExecutor) Script(hookType HookType) (Hook, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	h, ok := e.hooks[hookType]
	return h, ok
}
