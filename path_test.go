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

var (
	firstPath  = PathFor("", "add")
	secondPath = PathFor("", "add")
	customPath = PathFor("/rpc", "add")
)

func TestPathFor(t *testing.T) {
	t.Parallel()
	assert.True(t, strings.HasPrefix(firstPath, "/api/add"))
	assert.True(t, strings.HasPrefix(customPath, "/rpc/add"))
	assert.NotEqual(t, firstPath, secondPath)
	assert.Match(t, firstPath, `^/api/add[0-9]+$`)

	// The same call site always yields the same path.
	var paths []string
	for i := 0; i < 2; i++ {
		paths = append(paths, PathFor("", "loop"))
	}
	assert.Equal(t, paths[0], paths[1])
}

func TestPackageOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, packageOf("example.com/app/api.init.0"), "example.com/app/api")
	assert.Equal(t, packageOf("example.com/app/api.(*T).M"), "example.com/app/api")
	assert.Equal(t, packageOf("main.main"), "main")
}
