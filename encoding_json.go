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
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json"

// JSONEncoding sends arguments and results as JSON documents in the body of
// a POST request.
type JSONEncoding struct{}

func (JSONEncoding) ContentType() string { return contentTypeJSON }

func (JSONEncoding) Method() string { return http.MethodPost }

func (e JSONEncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(KindSerialization, err)
	}
	return newClientRequest(e, path, TextBody(e.ContentType(), string(data))), nil
}

func (JSONEncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	text, err := req.Text()
	if err != nil {
		return errorf(KindArgs, "read request body: %w", err)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return NewError(KindArgs, err)
	}
	return nil
}

func (e JSONEncoding) EncodeResponse(_ context.Context, v any) (*Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(KindSerialization, err)
	}
	return TextBody(e.ContentType(), string(data)), nil
}

func (JSONEncoding) DecodeResponse(_ context.Context, res ClientResponse, v any) error {
	text, err := res.Text()
	if err != nil {
		return errorf(KindDeserialization, "read response body: %w", err)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return NewError(KindDeserialization, err)
	}
	return nil
}
