// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engerrors defines the error taxonomy the engine distinguishes
// between at the workflow boundary. Activities translate transport and
// provider failures into these kinds; the workflow body never panics or
// raises on a tool-call failure, it always produces a structured result.
package engerrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the fixed error categories from the engine's
// error-handling design.
type Kind string

const (
	KindConfigInvalid        Kind = "config_invalid"
	KindInputUnsafe          Kind = "input_unsafe"
	KindOutputUnsafe         Kind = "output_unsafe"
	KindToolUnknown          Kind = "tool_unknown"
	KindToolExecutionError   Kind = "tool_execution_error"
	KindChildAgentUnavailable Kind = "child_agent_unavailable"
	KindTransportError       Kind = "transport_error"
	KindTimeout              Kind = "timeout"
	KindMaxIterations        Kind = "max_iterations"
	KindSchemaParseError     Kind = "schema_parse_error"
	KindFatal                Kind = "fatal"
)

// EngineError is a typed error carrying one of the fixed Kinds.
type EngineError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, engerrors.KindX) style checks via a sentinel
// wrapper, see KindError below.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an EngineError of the given kind.
func New(kind Kind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message}
}

// Wrap constructs an EngineError of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: err}
}

// KindError is a zero-payload sentinel usable with errors.Is to test kind
// membership without allocating a full EngineError: errors.Is(err, KindError(KindFatal)).
func KindError(k Kind) error {
	return &EngineError{Kind: k}
}

// Retryable reports whether an error of this kind should be retried by the
// activity layer's retry policy (spec §4.9 / §7).
func Retryable(err error) bool {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return false
	}
	switch ee.Kind {
	case KindTransportError, KindTimeout:
		return true
	default:
		return false
	}
}

// AsKind returns the Kind of err if it is (or wraps) an *EngineError.
func AsKind(err error) (Kind, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}
