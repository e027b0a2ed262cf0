package errors

// NotReadyError represents spec.md §4.5/§7's "context not ready" condition:
// an API entry point was called while the process-wide context, or the
// handle's own gate, was not in a state that admits the operation.
type NotReadyError struct {
	*baseError

	// component names which state machine rejected the call, e.g.
	// "context", "set:orders", "index:orders.customer_id".
	component string
}

// NewNotReadyError creates a NotReadyError for the named component.
func NewNotReadyError(component string) *NotReadyError {
	return &NotReadyError{
		baseError: NewBaseError(nil, ErrorCodeNotReady, "operation rejected: component is not ready"),
		component: component,
	}
}

// Component returns the name of the component that rejected the call.
func (nre *NotReadyError) Component() string {
	return nre.component
}
