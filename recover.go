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
	"fmt"
	"net/http"
)

// recoverCallable wraps a callable so that panics in its body become
// errors. handle receives the request context, the function's path, and the
// recovered value, and returns the error to respond with. If it returns nil,
// a KindServer error is synthesized.
type recoverCallable struct {
	Callable

	handle func(ctx context.Context, path string, panicValue any) error
}

func (c *recoverCallable) ExecuteOnServer(ctx context.Context, req Request) (_ *Body, retErr error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// net/http uses this sentinel to abort a response. Let it through.
		if r == http.ErrAbortHandler { //nolint:errorlint,goerr113
			panic(r) //nolint:forbidigo
		}
		retErr = c.handle(ctx, c.Path(), r)
		if retErr == nil {
			retErr = errorf(KindServer, "%s panicked: %v", c.Path(), r)
		}
		retErr = WrapError(retErr)
	}()
	return c.Callable.ExecuteOnServer(ctx, req)
}

// defaultRecover reports the panic value in the error sent to the client.
func defaultRecover(_ context.Context, path string, panicValue any) error {
	return NewError(KindServer, fmt.Errorf("%s panicked: %v", path, panicValue))
}
