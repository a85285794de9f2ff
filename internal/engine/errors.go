// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Pipeline errors
var (
	ErrBrowserNotFound     = errors.New("chrome browser not found")
	ErrSessionStart        = errors.New("browser session could not be started")
	ErrPageLoad            = errors.New("page failed to load")
	ErrNavigation          = errors.New("navigation failed")
	ErrNoListings          = errors.New("no listing elements found")
	ErrHardBlock           = errors.New("redirected to an abuse-prevention page")
	ErrChallengeUnresolved = errors.New("anti-bot challenge not resolved")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNoDocument          = errors.New("no document loaded")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
	ErrCodeValidation          ErrorCode = "VALIDATION"
	ErrCodePageLoad            ErrorCode = "PAGE_LOAD"
	ErrCodeNoListings          ErrorCode = "NO_LISTINGS"
	ErrCodeHardBlock           ErrorCode = "HARD_BLOCK"
	ErrCodeChallengeUnresolved ErrorCode = "CHALLENGE_UNRESOLVED"
	ErrCodeSessionError        ErrorCode = "SESSION_ERROR"
	ErrCodePersistence         ErrorCode = "PERSISTENCE"
)

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Retry:      false,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *EngineError) WithRetry() *EngineError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// IsSessionFailure reports whether err means the browser session itself is
// unusable: it could not start, or a challenge could not be cleared. These
// end a run with a distinct exit status.
func IsSessionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionStart) || errors.Is(err, ErrChallengeUnresolved) || errors.Is(err, ErrBrowserNotFound) {
		return true
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeSessionError || ee.Code == ErrCodeChallengeUnresolved
	}
	return false
}

// IsPageFailure reports whether err only ends pagination; records gathered so
// far remain valid.
func IsPageFailure(err error) bool {
	return errors.Is(err, ErrPageLoad) || errors.Is(err, ErrNoListings) || errors.Is(err, ErrHardBlock)
}
