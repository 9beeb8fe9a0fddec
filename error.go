// Copyright 2021-2024 The Connect Authors
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

package serverfn

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// An Error pairs a Kind with an underlying Go error. Every error produced by
// this package, and every error that crosses a transport, is an *Error.
//
// Errors of KindWrapped carry an error returned by a function body. The
// original value is available to errors.As and errors.Is on the server side.
// On the client side only its text survives the trip, so clients see
// KindWrapped with an opaque underlying error.
//
// Remember that the text of an error returned by a function body is sent to
// clients verbatim. Take care not to leak sensitive information.
type Error struct {
	kind Kind
	err  error
}

// NewError annotates any Go error with a kind. A nil underlying error is
// replaced with an empty message.
func NewError(kind Kind, underlying error) *Error {
	if underlying == nil {
		underlying = errors.New("")
	}
	return &Error{kind: kind, err: underlying}
}

// Errorf calls fmt.Errorf with the supplied template and arguments, then
// wraps the resulting error.
func Errorf(kind Kind, template string, args ...any) *Error {
	return NewError(kind, fmt.Errorf(template, args...))
}

func (e *Error) Error() string {
	if e.kind == KindWrapped {
		return e.err.Error()
	}
	return e.kind.prefix() + e.err.Error()
}

// Unwrap allows errors.Is and errors.As access to the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error's kind.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the underlying error's text, without the kind's prefix.
func (e *Error) Message() string {
	return e.err.Error()
}

// WrapError converts any error into an *Error using a fixed table: nil stays
// nil, errors that already are (or wrap) an *Error are returned unchanged,
// context cancellation and deadline errors become KindRequest, and anything
// else becomes KindWrapped. Non-nil return values are always *Error.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := asError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindRequest, err)
	}
	return NewError(KindWrapped, err)
}

// KindOf returns the kind of err if it is or wraps an *Error, and
// KindWrapped for any other non-nil error. KindOf(nil) is zero, which isn't
// a valid Kind.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	if serverfnErr, ok := asError(err); ok {
		return serverfnErr.Kind()
	}
	return KindWrapped
}

// ParseError reverses Error.Error: it recognizes the prefix of each kind and
// rebuilds an *Error with the remaining text as its message. Text without a
// known prefix is treated as a wrapped function-body error.
//
// Clients use ParseError to turn the body of an internal-error response back
// into a typed error.
func ParseError(text string) *Error {
	for kind := minKind; kind <= maxKind; kind++ {
		prefix := kind.prefix()
		if prefix == "" || !strings.HasPrefix(text, prefix) {
			continue
		}
		return NewError(kind, errors.New(strings.TrimPrefix(text, prefix)))
	}
	return NewError(KindWrapped, errors.New(text))
}

// errorf calls fmt.Errorf with the supplied template and arguments, then
// wraps the resulting error. Unlike Errorf, it leaves already-classified
// errors in the arguments alone: if one of the arguments is an *Error, that
// error is returned as-is.
func errorf(kind Kind, template string, args ...any) *Error {
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			if serverfnErr, ok := asError(err); ok {
				return serverfnErr
			}
		}
	}
	return Errorf(kind, template, args...)
}

// asError uses errors.As to unwrap any error and look for a serverfn *Error.
func asError(err error) (*Error, bool) {
	var serverfnErr *Error
	ok := errors.As(err, &serverfnErr)
	return serverfnErr, ok
}
