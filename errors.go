// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package searchconn

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidConfiguration reports a missing or malformed connection
	// string, an unparsable parameter, an unsupported scheme, or a client
	// that could not be initialized from an otherwise valid configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrIllegalState reports an operation on a manager or client that
	// has been destroyed, or that was never initialized.
	ErrIllegalState = errors.New("illegal state")
	// ErrConstructionFailure reports that a transport client or embedded
	// container could not be constructed, or that the coordination
	// handshake failed.
	ErrConstructionFailure = errors.New("construction failure")
)

// Error is the error type returned by this package. It matches one of
// ErrInvalidConfiguration, ErrIllegalState or ErrConstructionFailure
// with [errors.Is] and unwraps to its cause, if any.
type Error struct {
	// Kind is the sentinel error this error matches.
	Kind error
	// Message describes the failure.
	Message string
	// URL is the connection string involved, if any.
	URL string
	// Param and Value name the offending parameter and its raw value
	// when a parameter could not be parsed.
	Param string
	Value string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Kind.Error())
	builder.WriteString(": ")
	builder.WriteString(e.Message)
	if e.URL != "" {
		builder.WriteString(" (url \"")
		builder.WriteString(e.URL)
		builder.WriteString("\")")
	}
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	return builder.String()
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind //nolint:errorlint,err113 // sentinel comparison
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidConfiguration(url, message string) *Error {
	return &Error{Kind: ErrInvalidConfiguration, URL: url, Message: message}
}

func invalidParameter(url, param, value, message string, cause error) *Error {
	return &Error{Kind: ErrInvalidConfiguration, URL: url, Param: param, Value: value, Message: message, Cause: cause}
}

func illegalState(message string) *Error {
	return &Error{Kind: ErrIllegalState, Message: message}
}

// initializationFailure wraps a failure of any construction branch. The
// result matches both ErrInvalidConfiguration and ErrConstructionFailure.
func initializationFailure(url, message string, cause error) *Error {
	return &Error{
		Kind:    ErrInvalidConfiguration,
		URL:     url,
		Message: "an error occurred during initialization of the search client",
		Cause:   &Error{Kind: ErrConstructionFailure, Message: message, Cause: cause},
	}
}
