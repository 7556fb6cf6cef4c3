package hook

import "fmt"

// Common hook errors.
var (
	// ErrHookTypeEmpty is returned when a hook type is empty.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

	// ErrHookExecution is returned when there's an error executing a hook.
	ErrHookExecution = fmt.Errorf("error executing hook")

	// ErrHookScript is returned when a hook script reports a failure through err.
	ErrHookScript = fmt.Errorf("hook script error")

	// ErrHookLoad is returned when there's an error loading a hook.
	ErrHookLoad = fmt.Errorf("failed to load hook")
)

// ErrUnsupportedHookType is returned when a hook file names an unknown hook type.
func ErrUnsupportedHookType(name string) error {
	return fmt.Errorf("%w: unsupported hook type %q", ErrHookLoad, name)
}
