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

package nethttp

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS adds Cross-Origin Resource Sharing support to a Handler, so that
// browser clients on other origins can call server functions. Pass it to
// NewHandler as a HandlerOption.
type CORS struct {
	// AllowOriginFunc validates the origin. It takes the origin as argument
	// and returns true if allowed or false otherwise.
	AllowOriginFunc func(origin string) bool

	// AllowedHeaders lists non-simple headers the client may send, in
	// addition to Content-Type and Accept.
	AllowedHeaders []string

	// ExposedHeaders lists response headers the client may read.
	ExposedHeaders []string

	// MaxAge is how long, in seconds, the results of a preflight request can
	// be cached. Zero means they aren't cached.
	MaxAge int

	// AllowCredentials indicates whether the request can include user
	// credentials like cookies or HTTP authentication.
	AllowCredentials bool
}

func (c CORS) applyToHandler(config *handlerConfig) {
	config.CORS = &c
}

// wrap builds a corsHandler for c. If c is nil, nil is returned.
func (c *CORS) wrap() *corsHandler {
	if c == nil {
		return nil
	}
	options := cors.Options{
		AllowOriginFunc:  c.AllowOriginFunc,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   append([]string{"Content-Type", "Accept"}, c.AllowedHeaders...),
		ExposedHeaders:   c.ExposedHeaders,
		MaxAge:           c.MaxAge,
		AllowCredentials: c.AllowCredentials,
	}
	return &corsHandler{cors: cors.New(options)}
}

type corsHandler struct {
	cors *cors.Cors
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// handle sets CORS headers on w, returning true if the request is complete.
func (c *corsHandler) handle(w http.ResponseWriter, r *http.Request) bool {
	c.cors.HandlerFunc(w, r)
	return isPreflight(r)
}
