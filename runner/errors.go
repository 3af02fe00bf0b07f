//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"encoding/json"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-workflow-go/capability"
	"trpc.group/trpc-go/trpc-workflow-go/journal"
)

// ExecutionError reports which node a run failed at and why. The session
// state is exactly as of the last durably committed event; the session stays
// usable for a later run.
type ExecutionError struct {
	Node string
	Err  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// BranchFailure annotates one failed branch of a best-effort parallel node.
// The branch contributed no events and no state; its siblings' results were
// merged normally.
type BranchFailure struct {
	Node string `json:"node"`
	Err  error  `json:"-"`
}

// Message returns the branch error text for serialization.
func (f BranchFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// MarshalJSON emits the branch name and its error text.
func (f BranchFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Node    string `json:"node"`
		Message string `json:"message,omitempty"`
	}{Node: f.Node, Message: f.Message()})
}

// nodeError wraps err with the failing node's name unless it already carries
// one from deeper in the tree.
func nodeError(node string, err error) error {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecutionError{Node: node, Err: err}
}

// errorType names the failure class for the error event payload.
func errorType(err error) string {
	var jErr *journal.Error
	if errors.As(err, &jErr) {
		return "persistence_error"
	}
	var cErr *capability.Error
	if errors.As(err, &cErr) {
		return "capability_error"
	}
	return "execution_error"
}
