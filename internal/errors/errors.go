// Package errors provides a lightweight structured error type (BloomError)
// for category-based classification across the build engine and adapters.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a seedbloom error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategoryRegistry ErrorCategory = "registry"
	CategoryGit      ErrorCategory = "git"
	CategoryAdapter  ErrorCategory = "adapter"

	// Build and processing errors
	CategoryOrchestrator ErrorCategory = "orchestrator"
	CategoryFileSystem   ErrorCategory = "filesystem"
	CategoryStore        ErrorCategory = "store"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// BloomError is a structured error with category, retryability, and context
type BloomError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BloomError
type ContextFields map[string]any

// Error implements the error interface
func (e *BloomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BloomError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BloomError) WithContext(key string, value any) *BloomError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BloomError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BloomError {
	return &BloomError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BloomError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BloomError {
	return &BloomError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable BloomError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *BloomError {
	return &BloomError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := err.(*BloomError); ok {
		return be.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if be, ok := err.(*BloomError); ok {
		return be.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a BloomError
func GetCategory(err error) ErrorCategory {
	if be, ok := err.(*BloomError); ok {
		return be.Category
	}
	return CategoryInternal
}

// ConfigError creates a new configuration error (fails before any node runs)
func ConfigError(message string) *BloomError {
	return &BloomError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// ValidationError creates a new validation error
func ValidationError(message string) *BloomError {
	return &BloomError{
		Category: CategoryValidation,
		Severity: SeverityError,
		Message:  message,
	}
}

// OrchestratorError creates the synthetic whole-build failure carrying the
// failing node's name and error.
func OrchestratorError(node string, cause error) *BloomError {
	return &BloomError{
		Category: CategoryOrchestrator,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf("processor %q failed", node),
		Cause:    cause,
		Context:  ContextFields{"processor": node},
	}
}

// WrapError wraps an existing error with a new BloomError at error severity
func WrapError(err error, category ErrorCategory, message string) *BloomError {
	return &BloomError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}
