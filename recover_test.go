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

package serverfn_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"connectrpc.com/serverfn"
	"connectrpc.com/serverfn/internal/assert"
	"connectrpc.com/serverfn/serverfntest"
)

func panicky(context.Context, struct{}) (struct{}, error) {
	panic("boom")
}

func TestWithRecover(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		registry := serverfntest.NewRegistry(serverfn.WithRecover(nil))
		fn := serverfn.New("/api/panic", panicky)
		assert.Nil(t, registry.Register(fn))
		_, err := fn.WithClient(serverfntest.NewClient(registry)).RunOnClient(ctx, struct{}{})
		assert.Equal(t, serverfn.KindOf(err), serverfn.KindServer)
		assert.Equal(t, err.Error(), "error running server function: /api/panic panicked: boom")
	})
	t.Run("handler", func(t *testing.T) {
		t.Parallel()
		var recovered atomic.Value
		registry := serverfntest.NewRegistry(serverfn.WithRecover(
			func(_ context.Context, path string, panicValue any) error {
				recovered.Store(panicValue)
				return errors.New("try again later")
			},
		))
		fn := serverfn.New("/api/panic", panicky)
		assert.Nil(t, registry.Register(fn))
		res := dispatch(registry, emptyForm(fn.Path()))
		assert.Equal(t, res.Status(), http.StatusInternalServerError)
		text, err := res.Text()
		assert.Nil(t, err)
		assert.Equal(t, text, "try again later")
		assert.Equal(t, recovered.Load(), any("boom"))
	})
	t.Run("handler_returns_nil", func(t *testing.T) {
		t.Parallel()
		registry := serverfntest.NewRegistry(serverfn.WithRecover(
			func(context.Context, string, any) error { return nil },
		))
		fn := serverfn.New("/api/panic", panicky)
		assert.Nil(t, registry.Register(fn))
		_, err := fn.WithClient(serverfntest.NewClient(registry)).RunOnClient(ctx, struct{}{})
		assert.Equal(t, serverfn.KindOf(err), serverfn.KindServer)
	})
	t.Run("abort_handler", func(t *testing.T) {
		t.Parallel()
		registry := serverfntest.NewRegistry(serverfn.WithRecover(nil))
		fn := serverfn.New("/api/abort", func(context.Context, struct{}) (struct{}, error) {
			panic(http.ErrAbortHandler)
		})
		assert.Nil(t, registry.Register(fn))
		assert.Panics(t, func() {
			dispatch(registry, emptyForm(fn.Path()))
		})
	})
}

func emptyForm(path string) *serverfn.ClientRequest {
	return &serverfn.ClientRequest{
		Method: http.MethodPost,
		Path:   path,
		Body:   serverfn.TextBody("application/x-www-form-urlencoded", ""),
	}
}
