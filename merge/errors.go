package merge

import (
	"fmt"
	"strings"
)

// ConfigError reports a user-actionable problem with the merge
// configuration: a library claimed by two different groups, a group
// mixing asset and non-asset members, an invalid pattern, or a glue
// reference that is not linkable.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// CycleError reports a dependency cycle between merge constituents.
// Path holds the constituent names in traversal order, with the first
// entry repeated at the end to close the cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle in native library merge dependencies: " + strings.Join(e.Path, " -> ")
}

// InternalError reports a violated invariant of the enhancer itself.
// It is never caused by configuration and is not user-actionable.
type InternalError struct {
	msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.msg }

func internalErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{msg: fmt.Sprintf(format, args...)}
}
