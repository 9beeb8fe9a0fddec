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

package nethttp_test

import (
	"context"
	"log"
	"net/http"
	"time"

	"connectrpc.com/serverfn"
	"connectrpc.com/serverfn/nethttp"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

type Greeting struct {
	Name string `url:"name"`
}

var greetFn = serverfn.New(
	serverfn.PathFor("", "greet"),
	func(_ context.Context, in Greeting) (string, error) {
		return "hello, " + in.Name, nil
	},
	serverfn.WithInput(serverfn.GetURL),
)

func ExampleNewHandler() {
	registry := nethttp.NewRegistry()
	registry.MustRegister(greetFn)

	router := mux.NewRouter()
	nethttp.Mount(router, serverfn.DefaultPrefix, nethttp.NewHandler(
		registry,
		nethttp.WithReadMaxBytes(1024*1024),                      // limit request size
		nethttp.WithLimiter(rate.NewLimiter(rate.Limit(100), 10)), // limit request rate
	))

	// Timeouts, TLS, and other transport details are handled by net/http.
	// Keep in mind that any timeouts you set also apply to streamed results.
	srv := &http.Server{
		Addr:              ":http",
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func ExampleNewClient() {
	greet := greetFn.WithClient(nethttp.NewClient("http://localhost:8080"))
	text, err := greet.RunOnClient(context.Background(), Greeting{Name: "gopher"})
	if err != nil {
		log.Fatal(err)
	}
	log.Print(text)
}
