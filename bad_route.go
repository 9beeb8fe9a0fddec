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
	"fmt"
	"net/http"
)

// badRoute responds to a request for a path with no registered callable.
func (r *Registry[Res]) badRoute(path string) Res {
	res, err := r.responder.Respond(http.StatusBadRequest, TextBody(contentTypePlainText, badRouteMessage(path)))
	if err != nil {
		return r.responder.Error(classify(KindResponse, err))
	}
	return res
}

func badRouteMessage(path string) string {
	return fmt.Sprintf(
		"Could not find a server function at the route %s.\n\n"+
			"It's likely that either\n"+
			" 1. the path prefix the server function was defined with doesn't match the prefix at which the handler is mounted, or\n"+
			" 2. the server function was never registered: call Register on the server's Registry with it during initialization.",
		path,
	)
}
