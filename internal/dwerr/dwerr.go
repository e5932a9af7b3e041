// Package dwerr defines the error classes of a warehouse build.
//
// InputError is per record and collected; RangeError, IntegrityError and
// ConfigError abort the whole run.
package dwerr

import (
	"errors"
	"fmt"
)

// InputError rejects one source record before simulation.
type InputError struct {
	Row    int64
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// RangeError means a computed probability, weight, category or date fell
// outside its domain. It points at a configuration bug, not bad data.
type RangeError struct {
	What  string
	Value any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: %v", e.What, e.Value)
}

// IntegrityError is raised by warehouse validation.
type IntegrityError struct {
	Table  string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %s", e.Table, e.Detail)
}

// ConfigError is a malformed setting detected at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Fatal reports whether err belongs to a class that aborts the run.
func Fatal(err error) bool {
	var re *RangeError
	var ie *IntegrityError
	var ce *ConfigError
	return errors.As(err, &re) || errors.As(err, &ie) || errors.As(err, &ce)
}
