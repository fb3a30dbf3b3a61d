package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "RSS1001"
	ErrCodeConnectionTimeout    ErrorCode = "RSS1002"
	ErrCodeAuthenticationFailed ErrorCode = "RSS1003"
	ErrCodeNotConnected         ErrorCode = "RSS1004"

	// Configuration errors (2xxx)
	ErrCodeConfigInvalid ErrorCode = "RSS2002"
	ErrCodeConfigMissing ErrorCode = "RSS2003"

	// Query errors (4xxx)
	ErrCodeQueryFailed    ErrorCode = "RSS4001"
	ErrCodeSQLPermission  ErrorCode = "RSS4002"
	ErrCodeResultParsing  ErrorCode = "RSS4003"
	ErrCodeCatalogFailed  ErrorCode = "RSS4004"
	ErrCodeExtractionMiss ErrorCode = "RSS4101"

	// File system errors (5xxx)
	ErrCodeFileOperation  ErrorCode = "RSS5001"
	ErrCodeFilePermission ErrorCode = "RSS5002"
	ErrCodePathEscape     ErrorCode = "RSS5003"

	// Security errors (7xxx)
	ErrCodeCredentialNotFound ErrorCode = "RSS7001"
	ErrCodeEncryptionFailed   ErrorCode = "RSS7002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "RSS9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Aborts the run
	SeverityError    ErrorSeverity = "ERROR"    // Aborts the current view
	SeverityWarning  ErrorSeverity = "WARNING"
	SeverityInfo     ErrorSeverity = "INFO"
)

// Kind groups error codes into the failure classes the generator reacts to.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnection
	KindQuery
	KindExtraction
	KindFilesystem
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	case KindExtraction:
		return "extraction"
	case KindFilesystem:
		return "filesystem"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Kind reports the failure class of the error code.
func (e *AppError) Kind() Kind {
	switch e.Code {
	case ErrCodeConnectionFailed, ErrCodeConnectionTimeout, ErrCodeAuthenticationFailed, ErrCodeNotConnected:
		return KindConnection
	case ErrCodeQueryFailed, ErrCodeSQLPermission, ErrCodeResultParsing, ErrCodeCatalogFailed:
		return KindQuery
	case ErrCodeExtractionMiss:
		return KindExtraction
	case ErrCodeFileOperation, ErrCodeFilePermission, ErrCodePathEscape:
		return KindFilesystem
	case ErrCodeConfigInvalid, ErrCodeConfigMissing:
		return KindConfig
	default:
		return KindUnknown
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Check your network connection",
			"Verify the serverless SQL endpoint name",
			"Check firewall rules on the workspace",
		)
}

// AuthenticationError creates an authentication failure
func AuthenticationError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeAuthenticationFailed, message).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Verify your username and password",
			"For interactive mode, complete the browser sign-in",
			"Run 'rowsetstats setup' to store credentials again",
		)
}

// ConnectionTimeout reports a connection attempt that ran out of time
func ConnectionTimeout(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionTimeout, message).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			"Serverless pools can take a while to resume, try again",
			"Raise engine.timeout",
		)
}

// QueryError creates a query execution error. Failures confined to one view are recoverable.
func QueryError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeQueryFailed, message).
		WithContext("query", truncateString(query, 200)).
		AsRecoverable()

	lower := strings.ToLower(fmt.Sprint(cause))
	if strings.Contains(lower, "permission") || strings.Contains(lower, "access denied") {
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check that the login can read the external data source",
			"Verify the credential used by OPENROWSET",
		)
	}

	return err
}

// CatalogError reports a failed catalog listing. Without the view list the run cannot go on.
func CatalogError(message string, query string, cause error) *AppError {
	err := QueryError(message, query, cause).WithSeverity(SeverityCritical)
	err.Recoverable = false
	if err.Code == ErrCodeQueryFailed {
		err.Code = ErrCodeCatalogFailed
	}
	return err
}

// ExtractionMiss reports that no OPENROWSET clause was found in a source text
func ExtractionMiss(view string) *AppError {
	return New(ErrCodeExtractionMiss, fmt.Sprintf("No OPENROWSET clause found for %s", view)).
		WithContext("view", view).
		WithSuggestions("Check that the view definition reads from OPENROWSET(...)").
		AsRecoverable()
}

// FilesystemError creates a file operation error
func FilesystemError(message string, path string, cause error) *AppError {
	err := Wrap(cause, ErrCodeFileOperation, message)
	if err == nil {
		err = New(ErrCodeFileOperation, message)
	}
	if errors.Is(cause, fs.ErrPermission) {
		err.Code = ErrCodeFilePermission
		_ = err.WithSuggestions("Check that the output directories are writable")
	}
	return err.WithContext("path", path).AsRecoverable()
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'rowsetstats setup' to reconfigure",
		)
}

// MissingConfig reports a required configuration value that is empty
func MissingConfig(message string, field string) *AppError {
	err := ConfigError(message, field)
	err.Code = ErrCodeConfigMissing
	return err
}

// KindOf classifies any error. Plain errors are KindUnknown.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindUnknown
}

// AsAppError returns the AppError in err's chain, if any
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
