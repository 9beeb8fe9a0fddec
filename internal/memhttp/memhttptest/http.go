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

package memhttptest

import (
	"context"
	"net/http"
	"testing"

	"connectrpc.com/serverfn/internal/memhttp"
	"go.uber.org/zap/zaptest"
)

// NewServer constructs a [memhttp.Server] with defaults suitable for tests:
// it logs server errors to tb, and it shuts the server down when the test
// completes. Shutdown errors fail the test.
func NewServer(tb testing.TB, handler http.Handler, opts ...memhttp.Option) *memhttp.Server {
	tb.Helper()
	opts = append([]memhttp.Option{memhttp.WithLogger(zaptest.NewLogger(tb))}, opts...)
	server := memhttp.NewServer(handler, opts...)
	tb.Cleanup(func() {
		if err := server.Shutdown(context.Background()); err != nil {
			tb.Error(err)
		}
	})
	return server
}
