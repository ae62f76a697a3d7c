// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidRecord  = errors.New("invalid record")
	ErrNonFinite      = errors.New("non-finite numeric value")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrDataNotFound   = errors.New("data not found")
	ErrDatabaseError  = errors.New("database error")
	ErrUnsupportedFmt = errors.New("unsupported file format")
)

// InvalidRecordError reports a trade record that violates a structural invariant.
// Analyzers skip such records and report them rather than failing the whole call.
type InvalidRecordError struct {
	RecordID string
	Field    string
	Reason   string
	Err      error
}

func (e *InvalidRecordError) Error() string {
	if e.Err != nil && e.Err != ErrInvalidRecord {
		return fmt.Sprintf("invalid record [%s] %s: %s: %v", e.RecordID, e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid record [%s] %s: %s", e.RecordID, e.Field, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidRecord
	}
	return e.Err
}

// Is lets errors.Is match ErrInvalidRecord even when a more specific cause is wrapped.
func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// NewInvalidRecordError creates a new InvalidRecordError.
func NewInvalidRecordError(recordID, field, reason string) *InvalidRecordError {
	return &InvalidRecordError{
		RecordID: recordID,
		Field:    field,
		Reason:   reason,
	}
}

// NewNonFiniteError reports a NaN or infinite numeric field.
func NewNonFiniteError(recordID, field string, value float64) *InvalidRecordError {
	return &InvalidRecordError{
		RecordID: recordID,
		Field:    field,
		Reason:   fmt.Sprintf("value %v is not finite", value),
		Err:      ErrNonFinite,
	}
}

// ConfigurationError represents an invalid analyzer parameter or configuration value.
type ConfigurationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field string, value interface{}, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a storage or import error.
type DataError struct {
	DataType string
	Source   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Source, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, source, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Source:   source,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
