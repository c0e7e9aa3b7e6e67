package kvbench

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistogram is returned when a percentile is requested from an
	// operation class that has not recorded any sample.
	ErrEmptyHistogram = errors.New("histogram has no samples")
	// ErrPercentileRange is returned for percentiles outside [0, 100].
	ErrPercentileRange = errors.New("percentile out of range [0, 100]")
	// ErrUnknownEngine is returned by NewEngine for unregistered names.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrInjected is the failure BasicDB reports when failure injection fires.
	ErrInjected = errors.New("injected failure")
)

// ConfigError reports an invalid workload configuration or command line
// option. It is raised before any engine is touched.
type ConfigError struct {
	Source string
	Field  string
	Err    error
}

func NewConfigError(source, field string, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Source: source,
		Field:  field,
		Err:    fmt.Errorf(format, args...),
	}
}

func (e *ConfigError) Error() string {
	switch {
	case e.Source != "" && e.Field != "":
		return fmt.Sprintf("config %s: field %s: %s", e.Source, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("config: field %s: %s", e.Field, e.Err)
	case e.Source != "":
		return fmt.Sprintf("config %s: %s", e.Source, e.Err)
	default:
		return fmt.Sprintf("config: %s", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// EngineError wraps a failure reported by a storage engine with the
// operation and key that triggered it.
type EngineError struct {
	Engine string
	Op     string
	Key    []byte
	Err    error
}

func NewEngineError(engine, op string, key []byte, err error) *EngineError {
	return &EngineError{
		Engine: engine,
		Op:     op,
		Key:    key,
		Err:    err,
	}
}

func (e *EngineError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("engine %s: %s: %s", e.Engine, e.Op, e.Err)
	}
	return fmt.Sprintf("engine %s: %s key %q: %s", e.Engine, e.Op, e.Key, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// MeasurementError reports an invalid query against the latency recorder.
type MeasurementError struct {
	Class OperationType
	Err   error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("measurement %s: %s", e.Class, e.Err)
}

func (e *MeasurementError) Unwrap() error {
	return e.Err
}

// catch and try are used by the exporters to bail out of a sequence of
// writes on the first error.
func try(err error) {
	if err != nil {
		panic(err)
	}
}

func catch(err *error) {
	if r := recover(); r != nil {
		e, ok := r.(error)
		if !ok {
			panic(r)
		}
		*err = e
	}
}
