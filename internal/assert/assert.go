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

// Package assert holds the small set of generic assertions serverfn's tests
// use. Values are compared with go-cmp; protocmp makes generated messages
// compare by value. Every failed assertion stops the test.
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
)

// An Option configures an assertion.
type Option interface {
	message() string
}

// Sprintf adds a formatted message to the assertion's failure output. If
// it's passed more than once, the last message wins.
func Sprintf(template string, args ...any) Option {
	return messageOption(fmt.Sprintf(template, args...))
}

type messageOption string

func (o messageOption) message() string { return string(o) }

// failure describes a failed assertion.
type failure struct {
	name string
	got  any
	want any
	// Some assertions, like True, have nothing useful to show as want.
	hideWant bool
}

// check reports f and stops the test unless ok.
func check(t testing.TB, ok bool, f failure, options []Option) bool {
	t.Helper()
	if ok {
		return true
	}
	var out strings.Builder
	if n := len(options); n > 0 {
		out.WriteString(options[n-1].message())
	}
	fmt.Fprintf(&out, "\nassertion:\t%s\ngot:\t%+v\n", f.name, f.got)
	if !f.hideWant {
		fmt.Fprintf(&out, "want:\t%+v\n", f.want)
	}
	if diff := f.diff(); diff != "" {
		fmt.Fprintf(&out, "diff (-want +got):\n%s", diff)
	}
	t.Fatal(out.String())
	return false
}

// diff is only worth printing for structured values.
func (f failure) diff() string {
	if f.hideWant || f.got == nil || f.want == nil {
		return ""
	}
	switch reflect.ValueOf(f.got).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Ptr:
		return cmp.Diff(f.want, f.got, protocmp.Transform())
	default:
		return ""
	}
}

func equal(got, want any) bool {
	return cmp.Equal(got, want, protocmp.Transform())
}

// Equal asserts that two values are equal.
func Equal[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	return check(t, equal(got, want), failure{name: "assert.Equal", got: got, want: want}, options)
}

// NotEqual asserts that two values differ.
func NotEqual[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	return check(t, !equal(got, want), failure{name: "assert.NotEqual", got: got, want: want}, options)
}

// Zero asserts that got is its type's zero value.
func Zero[T any](t testing.TB, got T, options ...Option) bool {
	t.Helper()
	var zero T
	return check(t, equal(got, zero), failure{name: fmt.Sprintf("assert.Zero (%T)", got), got: got, hideWant: true}, options)
}

// NotZero asserts that got isn't its type's zero value.
func NotZero[T any](t testing.TB, got T, options ...Option) bool {
	t.Helper()
	var zero T
	return check(t, !equal(got, zero), failure{name: fmt.Sprintf("assert.NotZero (%T)", got), got: got, hideWant: true}, options)
}

// Nil asserts that got is nil, including typed nils stored in an interface.
func Nil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	return check(t, isNil(got), failure{name: "assert.Nil", got: got, hideWant: true}, options)
}

// NotNil asserts that got isn't nil.
func NotNil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	return check(t, !isNil(got), failure{name: "assert.NotNil", got: got, hideWant: true}, options)
}

// True asserts that got is true.
func True(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	return check(t, got, failure{name: "assert.True", got: got, hideWant: true}, options)
}

// False asserts that got is false.
func False(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	return check(t, !got, failure{name: "assert.False", got: got, hideWant: true}, options)
}

// Len asserts that a slice, map, string, or channel has n elements.
func Len(t testing.TB, got any, n int, options ...Option) bool {
	t.Helper()
	val := reflect.ValueOf(got)
	ok := false
	switch val.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Chan, reflect.Array:
		ok = val.Len() == n
	}
	return check(t, ok, failure{name: fmt.Sprintf("assert.Len (%d)", n), got: got, hideWant: true}, options)
}

// Contains asserts that got contains the substring want.
func Contains(t testing.TB, got, want string, options ...Option) bool {
	t.Helper()
	return check(t, strings.Contains(got, want), failure{name: "assert.Contains", got: got, want: want}, options)
}

// Match asserts that got matches the regular expression want.
func Match(t testing.TB, got, want string, options ...Option) bool {
	t.Helper()
	re, err := regexp.Compile(want)
	if err != nil {
		t.Fatalf("invalid regexp %q: %v", want, err)
	}
	return check(t, re.MatchString(got), failure{name: "assert.Match", got: got, want: want}, options)
}

// ErrorIs asserts that want is in got's chain. See errors.Is.
func ErrorIs(t testing.TB, got, want error, options ...Option) bool {
	t.Helper()
	return check(t, errors.Is(got, want), failure{name: "assert.ErrorIs", got: got, want: want}, options)
}

// ErrorAs asserts that got's chain holds an error assignable to target, and
// sets target to it. See errors.As.
func ErrorAs(t testing.TB, got error, target any, options ...Option) bool {
	t.Helper()
	return check(t, errors.As(got, target), failure{name: "assert.ErrorAs", got: got, want: fmt.Sprintf("%T", target)}, options)
}

// Panics asserts that calling panicker panics.
func Panics(t testing.TB, panicker func(), options ...Option) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		check(t, r != nil, failure{name: "assert.Panics", got: r, hideWant: true}, options)
	}()
	panicker()
}

func isNil(got any) bool {
	if got == nil {
		return true
	}
	// A typed nil in an interface isn't == nil.
	val := reflect.ValueOf(got)
	switch val.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return val.IsNil()
	default:
		return false
	}
}
