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
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultPrefix is the prefix PathFor uses when given an empty one.
const DefaultPrefix = "/api/"

// PathFor derives a stable, unique path for a server function from a
// prefix, the function's name, and the location of the call to PathFor.
// Call it once per function, usually in a package-level variable
// declaration:
//
//	var Add = serverfn.New(serverfn.PathFor("", "add"), add)
//
// The location is identified by the calling package, file name, and line,
// hashed with xxHash, so client and server builds of the same source agree
// on the path. Moving the call changes the path.
func PathFor(prefix, name string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name + strconv.FormatUint(xxhash.Sum64String(callerKey(2)), 10)
}

func callerKey(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	pkg := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg = packageOf(fn.Name())
	}
	return pkg + ":" + filepath.Base(file) + ":" + strconv.Itoa(line)
}

// packageOf trims the function from a fully-qualified name like
// "example.com/app/api.init.0" or "example.com/app/api.(*T).M".
func packageOf(funcName string) string {
	slash := strings.LastIndex(funcName, "/")
	if dot := strings.Index(funcName[slash+1:], "."); dot >= 0 {
		return funcName[:slash+1+dot]
	}
	return funcName
}
