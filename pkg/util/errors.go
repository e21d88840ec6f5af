// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrMalformedMapping = errors.New("malformed mapping rule")
	ErrSession          = errors.New("device session failed")
	ErrNotConnected     = errors.New("device not connected")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrValidationFailed = errors.New("validation failed")
)

// MappingError rejects a single mapping rule. Processing continues with the
// remaining rules.
type MappingError struct {
	OldVLAN string
	NewVLAN string
	Line    int
	Reason  string
}

func (e *MappingError) Error() string {
	msg := fmt.Sprintf("mapping %q -> %q rejected: %s", e.OldVLAN, e.NewVLAN, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *MappingError) Unwrap() error {
	return ErrMalformedMapping
}

// NewMappingError creates a mapping error
func NewMappingError(oldVLAN, newVLAN string, line int, reason string) *MappingError {
	return &MappingError{
		OldVLAN: oldVLAN,
		NewVLAN: newVLAN,
		Line:    line,
		Reason:  reason,
	}
}

// DeviceError is a per-device failure raised by the session layer. It
// short-circuits one device without affecting the rest of the run.
type DeviceError struct {
	Device string
	Stage  string // dial, fetch, apply, save
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Device, e.Stage, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a device error
func NewDeviceError(device, stage string, err error) *DeviceError {
	return &DeviceError{Device: device, Stage: stage, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
