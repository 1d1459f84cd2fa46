package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ActionKind is the semantic intent of a deferred write, independent of the
// HTTP verb used to deliver it.
type ActionKind string

const (
	ActionCreate ActionKind = "CREATE"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
)

// DefaultMaxRetries is used when an action is enqueued without a cap.
const DefaultMaxRetries = 3

// Valid reports whether k is one of the known kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ValidWriteMethod reports whether m can be carried by a pending action.
func ValidWriteMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// PendingAction is a write intent recorded while offline and replayed later.
//
// Invariant: RetryCount <= MaxRetries.
type PendingAction struct {
	ID         string          `json:"id"`
	Kind       ActionKind      `json:"type"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Payload    json.RawMessage `json:"data,omitempty"`
	CreatedAt  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

// Exhausted reports whether the action has used up its retry budget.
func (a *PendingAction) Exhausted() bool {
	return a.RetryCount >= a.MaxRetries
}

// ActionDescriptor is what callers hand in to defer a write.
type ActionDescriptor struct {
	Kind       ActionKind `json:"type"`
	Endpoint   string     `json:"endpoint"`
	Method     string     `json:"method"`
	Payload    any        `json:"data,omitempty"`
	MaxRetries int        `json:"maxRetries,omitempty"`
}

// Normalize upper-cases kind and method and validates the descriptor.
func (d *ActionDescriptor) Normalize() error {
	d.Kind = ActionKind(strings.ToUpper(string(d.Kind)))
	d.Method = strings.ToUpper(d.Method)

	if !d.Kind.Valid() {
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalidAction, d.Kind)
	}
	if !ValidWriteMethod(d.Method) {
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidAction, d.Method)
	}
	if strings.TrimSpace(d.Endpoint) == "" {
		return fmt.Errorf("%w: empty endpoint", ErrInvalidAction)
	}
	if d.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max retries", ErrInvalidAction)
	}
	return nil
}
