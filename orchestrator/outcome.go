// Package orchestrator dispatches classified intents to their handlers,
// running independent intents concurrently, and merges the per-intent
// outcomes into a single ordered result.
package orchestrator

import (
	"fmt"

	"github.com/hrygo/botweaver/intent"
)

// ErrorCode represents a specific failure class for dispatch outcomes.
type ErrorCode string

const (
	// ErrCodeHandlerFailed indicates the handler returned an error.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
	// ErrCodeHandlerPanic indicates the handler panicked.
	ErrCodeHandlerPanic ErrorCode = "HANDLER_PANIC"
	// ErrCodeHandlerMissing indicates no handler is configured for the kind.
	ErrCodeHandlerMissing ErrorCode = "HANDLER_MISSING"
	// ErrCodeFactoryFailed indicates the conversation factory failed.
	ErrCodeFactoryFailed ErrorCode = "FACTORY_FAILED"
	// ErrCodeUnknownCommand indicates an unrecognized system command.
	ErrCodeUnknownCommand ErrorCode = "UNKNOWN_COMMAND"
	// ErrCodeCanceled indicates the dispatch context was canceled.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// DispatchError is a structured failure attached to a DispatchOutcome.
type DispatchError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// DispatchOutcome is the result of executing one intent. Exactly one of
// Payload and Err is populated.
type DispatchOutcome struct {
	Kind      intent.Kind
	Succeeded bool
	Payload   string
	Err       *DispatchError
}

func successOutcome(kind intent.Kind, payload string) DispatchOutcome {
	return DispatchOutcome{Kind: kind, Succeeded: true, Payload: payload}
}

func failedOutcome(kind intent.Kind, code ErrorCode, message string, cause error) DispatchOutcome {
	return DispatchOutcome{
		Kind: kind,
		Err:  &DispatchError{Code: code, Message: message, Cause: cause},
	}
}

// AggregatedResult is the final structured reply for one inbound message.
// Outcomes appear in the same order as the originating intents.
type AggregatedResult struct {
	OverallSuccess bool
	Outcomes       []DispatchOutcome
}
