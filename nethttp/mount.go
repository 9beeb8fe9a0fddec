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

	"github.com/gorilla/mux"
)

// Mount routes every request under prefix to handler. The prefix is matched
// but not stripped, since function paths include it.
func Mount(router *mux.Router, prefix string, handler http.Handler) *mux.Route {
	return router.PathPrefix(prefix).Handler(handler)
}
