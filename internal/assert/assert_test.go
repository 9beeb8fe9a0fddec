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

package assert

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type pair struct {
	First, Second int
}

func TestAssertions(t *testing.T) {
	t.Parallel()

	t.Run("equal", func(t *testing.T) {
		t.Parallel()
		Equal(t, 1, 1, Sprintf("%d isn't equal to itself", 1))
		NotEqual(t, 1, 2)
		Equal(t, pair{1, 2}, pair{1, 2})
		Equal(t, wrapperspb.String("foo"), wrapperspb.String("foo"))
		NotEqual(t, wrapperspb.String("foo"), wrapperspb.String("bar"))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		Nil(t, nil)
		Nil(t, (*chan int)(nil))
		Nil(t, (*func())(nil))
		Nil(t, (*map[int]int)(nil))
		Nil(t, (*pair)(nil))
		Nil(t, (*[]int)(nil))

		NotNil(t, make(chan int))
		NotNil(t, func() {})
		NotNil(t, any(1))
		NotNil(t, make(map[int]int))
		NotNil(t, &pair{})
		NotNil(t, make([]int, 0))
		NotNil(t, "foo")
		NotNil(t, 0)
		NotNil(t, false)
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()
		var p pair
		Zero(t, p)
		var null *pair
		Zero(t, null)
		var s []int
		Zero(t, s)
		NotZero(t, 3)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		want := errors.New("base error")
		ErrorIs(t, fmt.Errorf("context: %w", want), want)
		var pathErr *fs.PathError
		ErrorAs(t, fmt.Errorf("open: %w", &fs.PathError{Op: "open", Path: "x", Err: want}), &pathErr)
		Equal(t, pathErr.Path, "x")
	})

	t.Run("strings", func(t *testing.T) {
		t.Parallel()
		Match(t, "foobar", `^foo`)
		Contains(t, "foobar", "oba")
	})

	t.Run("len", func(t *testing.T) {
		t.Parallel()
		Len(t, []int{1, 2}, 2)
		Len(t, map[string]int{"a": 1}, 1)
		Len(t, "abc", 3)
	})

	t.Run("panics", func(t *testing.T) {
		t.Parallel()
		Panics(t, func() { panic("testing") })
	})
}

type recorder struct {
	testing.TB

	failed bool
	output string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatal(args ...any) {
	r.failed = true
	r.output = fmt.Sprint(args...)
}

func TestFailureOutput(t *testing.T) {
	t.Parallel()
	rec := &recorder{TB: t}
	ok := Equal(rec, pair{1, 2}, pair{1, 3}, Sprintf("pairs differ"))
	False(t, ok)
	True(t, rec.failed)
	True(t, strings.HasPrefix(rec.output, "pairs differ\n"))
	Contains(t, rec.output, "assertion:\tassert.Equal")
	Contains(t, rec.output, "diff (-want +got)")
}
