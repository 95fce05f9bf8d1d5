package common

import (
	"errors"
	"fmt"
)

// ErrUnresolved is the soft failure returned by the entity resolver when no
// tier produces a node id. Callers skip the affected relationship; it never
// aborts a paper.
var ErrUnresolved = errors.New("endpoint name could not be resolved to a node")

// ValidationError reports malformed input to a store operation. It is fatal
// to that call only.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ParseError reports capability output that does not match the stage's
// expected structured shape. Fatal to the stage; never silently coerced.
type ParseError struct {
	Stage ExtractionStage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s output: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError reports an unexpected constraint violation or storage
// failure outside the convergent conflict path. Fatal to the stage.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExternalServiceError reports a timeout, rate limit, or server error from
// the text-analysis capability. The paper it aborts can be retried via
// reprocessing.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing required credential or connection
// setting. It prevents process startup entirely.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}
