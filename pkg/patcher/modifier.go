package patcher

import (
	"context"
	"fmt"

	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/history"
)

// ProgressFunc receives (current, total) ticks.
type ProgressFunc func(current, total int)

// LocationModifier applies the modifications of one location and records their undo
// information into scope. Progress is reported against a total chosen by the modifier.
type LocationModifier interface {
	Apply(ctx context.Context, scope *history.Scope, mods *LocationModifications, progress ProgressFunc) error
}

// PathTraversalError reports a path that resolves outside the install root.
type PathTraversalError struct {
	Root string
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes install root %s", e.Path, e.Root)
}

// Unwrap lets errors.Is match errutils.ErrPathTraversal.
func (e *PathTraversalError) Unwrap() error {
	return errutils.ErrPathTraversal
}
