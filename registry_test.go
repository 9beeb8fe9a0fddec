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
	"fmt"
	"net/http"
	"strings"
	"testing"

	"connectrpc.com/serverfn"
	"connectrpc.com/serverfn/internal/assert"
	"connectrpc.com/serverfn/serverfntest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func constant(value string) func(context.Context, struct{}) (string, error) {
	return func(context.Context, struct{}) (string, error) {
		return value, nil
	}
}

func dispatch(
	registry *serverfn.Registry[*serverfntest.Response],
	req *serverfn.ClientRequest,
) *serverfntest.Response {
	ctx := context.Background()
	return registry.Dispatch(ctx, serverfntest.NewRequest(ctx, req))
}

func TestRegistryRoutesByPath(t *testing.T) {
	t.Parallel()
	a := serverfn.New("/a", constant("from a"), serverfn.WithInput(serverfn.JSON))
	b := serverfn.New("/b", constant("from b"), serverfn.WithInput(serverfn.JSON))
	registry, client := newHarness(t, a, b)
	assert.Equal(t, registry.Paths(), []string{"/a", "/b"})

	got, err := a.WithClient(client).RunOnClient(context.Background(), struct{}{})
	assert.Nil(t, err)
	assert.Equal(t, got, "from a")
	got, err = b.WithClient(client).RunOnClient(context.Background(), struct{}{})
	assert.Nil(t, err)
	assert.Equal(t, got, "from b")

	callable, ok := registry.Lookup("/a")
	assert.True(t, ok)
	assert.Equal(t, callable.Path(), "/a")
	_, ok = registry.Lookup("/c")
	assert.False(t, ok)
}

func TestRegistryMiss(t *testing.T) {
	t.Parallel()
	registry, _ := newHarness(t)
	res := dispatch(registry, &serverfn.ClientRequest{Method: http.MethodPost, Path: "/api/missing123"})
	assert.Equal(t, res.Status(), http.StatusBadRequest)
	assert.Equal(t, res.ContentType(), "text/plain; charset=utf-8")
	text, err := res.Text()
	assert.Nil(t, err)
	assert.Contains(t, text, "/api/missing123")
	assert.Contains(t, text, "prefix")
	assert.Contains(t, text, "Register")

	// Clients see a miss as a request failure, not as a server error.
	fn := serverfn.New("/api/missing123", constant("x"), serverfn.WithInput(serverfn.JSON))
	_, err = fn.WithClient(serverfntest.NewClient(registry)).RunOnClient(context.Background(), struct{}{})
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRequest)
	assert.Contains(t, err.Error(), "400")
}

func TestRegistryMalformedArguments(t *testing.T) {
	t.Parallel()
	fn := serverfn.New("/api/json", echo[point], serverfn.WithInput(serverfn.JSON))
	registry, _ := newHarness(t, fn)
	res := dispatch(registry, &serverfn.ClientRequest{
		Method: http.MethodPost,
		Path:   "/api/json",
		Body:   serverfn.TextBody("application/json", `{"foo":`),
	})
	assert.Equal(t, res.Status(), http.StatusInternalServerError)
	text, err := res.Text()
	assert.Nil(t, err)
	assert.Contains(t, text, "deserializing")
	assert.Equal(t, serverfn.ParseError(text).Kind(), serverfn.KindArgs)
}

func TestRegistryRegistration(t *testing.T) {
	t.Parallel()
	registry := serverfntest.NewRegistry()

	err := registry.Register(nil)
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRegistration)
	var unset *serverfn.ServerFn[struct{}, string]
	err = registry.Register(unset)
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRegistration)
	assert.Contains(t, err.Error(), "nil callable")
	err = registry.Register(serverfn.New("", constant("x")))
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRegistration)

	// The last registration for a path wins.
	assert.Nil(t, registry.Register(
		serverfn.New("/dup", constant("first"), serverfn.WithInput(serverfn.JSON)),
		serverfn.New("/dup", constant("second"), serverfn.WithInput(serverfn.JSON)),
	))
	fn := serverfn.New("/dup", constant(""), serverfn.WithInput(serverfn.JSON))
	got, err := fn.WithClient(serverfntest.NewClient(registry)).RunOnClient(context.Background(), struct{}{})
	assert.Nil(t, err)
	assert.Equal(t, got, "second")

	// Dispatching froze the registry.
	err = registry.Register(serverfn.New("/late", constant("x")))
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRegistration)
	assert.Contains(t, err.Error(), "error while trying to register the server function")
	assert.Panics(t, func() { registry.MustRegister(serverfn.New("/late", constant("x"))) })
}

func TestRegistryFreeze(t *testing.T) {
	t.Parallel()
	registry := serverfntest.NewRegistry()
	registry.Freeze()
	err := registry.Register(serverfn.New("/a", constant("a")))
	assert.Equal(t, serverfn.KindOf(err), serverfn.KindRegistration)
	assert.Equal(t, len(registry.Paths()), 0)
}

func TestRegistryConcurrentDispatch(t *testing.T) {
	t.Parallel()
	const n = 32
	var callables []serverfn.Callable
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("/api/fn%d", i)
		callables = append(callables, serverfn.New(path, constant(path), serverfn.WithInput(serverfn.JSON)))
	}
	_, client := newHarness(t, callables...)

	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("/api/fn%d", i)
		fn := serverfn.New(path, constant(""), serverfn.WithInput(serverfn.JSON), serverfn.WithClient(client))
		group.Go(func() error {
			got, err := fn.RunOnClient(ctx, struct{}{})
			if err != nil {
				return err
			}
			if got != path {
				return fmt.Errorf("got %q from %s", got, path)
			}
			return nil
		})
	}
	assert.Nil(t, group.Wait())
}

func TestRegistryMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	registry := serverfntest.NewRegistry(serverfn.WithMetrics(reg))
	ok := serverfn.New("/ok", constant("fine"), serverfn.WithInput(serverfn.JSON))
	fail := serverfn.New("/fail", func(context.Context, struct{}) (string, error) {
		return "", serverfn.Errorf(serverfn.KindServer, "no")
	}, serverfn.WithInput(serverfn.JSON))
	assert.Nil(t, registry.Register(ok, fail))
	client := serverfntest.NewClient(registry)

	_, err := ok.WithClient(client).RunOnClient(context.Background(), struct{}{})
	assert.Nil(t, err)
	_, err = fail.WithClient(client).RunOnClient(context.Background(), struct{}{})
	assert.NotNil(t, err)
	dispatch(registry, &serverfn.ClientRequest{Method: http.MethodPost, Path: "/nope"})

	want := `
# HELP serverfn_dispatch_total Requests dispatched to server functions, by path and outcome.
# TYPE serverfn_dispatch_total counter
serverfn_dispatch_total{outcome="error",path="/fail"} 1
serverfn_dispatch_total{outcome="not_found",path=""} 1
serverfn_dispatch_total{outcome="ok",path="/ok"} 1
`
	assert.Nil(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "serverfn_dispatch_total"))

	// A second registry on the same registerer shares the collectors.
	second := serverfntest.NewRegistry(serverfn.WithMetrics(reg))
	dispatch(second, &serverfn.ClientRequest{Method: http.MethodPost, Path: "/nope"})
	count, err := testutil.GatherAndCount(reg, "serverfn_dispatch_total")
	assert.Nil(t, err)
	assert.Equal(t, count, 3)
}

func TestRegistryLogging(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	registry := serverfntest.NewRegistry(serverfn.WithLogger(zap.New(core)))
	fail := serverfn.New("/fail", func(context.Context, struct{}) (string, error) {
		return "", serverfn.Errorf(serverfn.KindServer, "no")
	}, serverfn.WithInput(serverfn.JSON))
	assert.Nil(t, registry.Register(fail))
	assert.Equal(t, logs.FilterMessage("registered server function").Len(), 1)

	dispatch(registry, &serverfn.ClientRequest{Method: http.MethodPost, Path: "/nope"})
	misses := logs.FilterMessage("no server function registered").All()
	assert.Equal(t, len(misses), 1)
	assert.Equal(t, misses[0].ContextMap()["path"], any("/nope"))

	dispatch(registry, &serverfn.ClientRequest{
		Method: http.MethodPost,
		Path:   "/fail",
		Body:   serverfn.TextBody("application/json", "{}"),
	})
	failures := logs.FilterMessage("server function failed").All()
	assert.Equal(t, len(failures), 1)
	assert.Equal(t, failures[0].ContextMap()["kind"], any("Server"))
}
