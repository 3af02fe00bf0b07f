//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package capability

import (
	"errors"
	"fmt"
)

// ErrorClass splits capability failures into retryable and terminal.
type ErrorClass string

const (
	// ClassTransient marks failures worth retrying (timeouts, rate limits).
	ClassTransient ErrorClass = "transient"
	// ClassFatal marks failures that retrying cannot fix.
	ClassFatal ErrorClass = "fatal"
)

// Error is a classified capability failure. Plain errors crossing the
// capability boundary are treated as fatal.
type Error struct {
	Class   ErrorClass
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capability %s error: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("capability %s error: %s", e.Class, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient wraps cause as a retryable failure.
func NewTransient(message string, cause error) *Error {
	return &Error{Class: ClassTransient, Message: message, Err: cause}
}

// NewFatal wraps cause as a terminal failure.
func NewFatal(message string, cause error) *Error {
	return &Error{Class: ClassFatal, Message: message, Err: cause}
}

// IsTransient reports whether err is a capability error classed transient.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Class == ClassTransient
}
