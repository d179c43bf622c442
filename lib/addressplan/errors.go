package addressplan

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid planner input. Nothing is planned when it is returned.
	ErrConfiguration = errors.New("configuration error")
	// ErrPrecondition marks a call made against the wrong topology or in the wrong order.
	ErrPrecondition = errors.New("precondition error")
)

// ConfigurationError reports a configuration value the planner refuses to work with.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid %s %v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// PreconditionError reports an operation invoked while its preconditions do not hold.
// The state the operation was called on is left untouched.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrPrecondition, e.Op, e.Reason)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }
