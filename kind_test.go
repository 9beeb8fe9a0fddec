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
	"strings"
	"testing"

	"connectrpc.com/serverfn/internal/assert"
)

func TestKindMarshaling(t *testing.T) {
	t.Parallel()
	var valid []Kind
	for kind := minKind; kind <= maxKind; kind++ {
		valid = append(valid, kind)
	}

	t.Run("round-trip", func(t *testing.T) {
		t.Parallel()
		for _, kind := range valid {
			text, err := kind.MarshalText()
			assert.Nil(t, err, assert.Sprintf("marshal kind %v", kind))
			var in Kind
			assert.Nil(t, in.UnmarshalText(text), assert.Sprintf("unmarshal %q", text))
			assert.Equal(t, in, kind)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		t.Parallel()
		const tooBig = maxKind + 1
		_, err := Kind(tooBig).MarshalText()
		assert.NotNil(t, err)
		_, err = Kind(0).MarshalText()
		assert.NotNil(t, err)
		assert.Equal(t, Kind(tooBig).String(), "Kind(10)")
		var kind Kind
		assert.NotNil(t, kind.UnmarshalText([]byte("99")))
		assert.NotNil(t, kind.UnmarshalText([]byte("0")))
		assert.NotNil(t, kind.UnmarshalText([]byte("foobar")))
	})

	t.Run("from text", func(t *testing.T) {
		t.Parallel()
		var kind Kind
		assert.Nil(t, kind.UnmarshalText([]byte("MISSING_ARG")))
		assert.Equal(t, kind, KindMissingArg)
		assert.Nil(t, kind.UnmarshalText([]byte("6")))
		assert.Equal(t, kind, KindDeserialization)
	})

	t.Run("to string", func(t *testing.T) {
		t.Parallel()
		for _, kind := range valid {
			assert.False(
				t,
				strings.Contains(kind.String(), "("),
				assert.Sprintf("add %d to Kind.String", uint8(kind)),
			)
		}
	})
}

func TestKindPrefixesAreDistinct(t *testing.T) {
	t.Parallel()
	seen := make(map[string]Kind)
	for kind := minKind; kind <= maxKind; kind++ {
		prefix := kind.prefix()
		if kind == KindWrapped {
			assert.Equal(t, prefix, "")
			continue
		}
		assert.NotEqual(t, prefix, "")
		other, ok := seen[prefix]
		assert.False(t, ok, assert.Sprintf("%v and %v share a prefix", kind, other))
		seen[prefix] = kind
	}
}
