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
	"mime/multipart"
	"net/http"
)

const contentTypeMultipart = "multipart/form-data"

// MultipartEncoding sends a MultipartData argument as a multipart/form-data
// POST body. The body is streamed in both directions: the client writes
// fields as the transport reads them, and the server yields fields to the
// function body as they arrive.
//
// MultipartEncoding is an input encoding only.
type MultipartEncoding struct{}

func (MultipartEncoding) ContentType() string { return contentTypeMultipart }

func (MultipartEncoding) Method() string { return http.MethodPost }

func (e MultipartEncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	var form *MultipartForm
	switch data := v.(type) {
	case *MultipartData:
		if data != nil {
			form = data.form
		}
	case *MultipartForm:
		form = data
	default:
		return nil, Errorf(KindSerialization, "can't send %T as multipart data", v)
	}
	if form == nil {
		return nil, Errorf(KindSerialization, "multipart data has no form to send")
	}
	return newClientRequest(e, path, MultipartBody(form)), nil
}

// DecodeRequest validates the boundary before touching the body, so a
// request without one fails without reading anything.
func (MultipartEncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	boundary, err := parseBoundary(req.ContentType())
	if err != nil {
		return err
	}
	stream, err := req.Stream()
	if err != nil {
		return errorf(KindArgs, "read request body: %w", err)
	}
	body := newStreamReader(stream)
	data := &MultipartData{
		reader: multipart.NewReader(body, boundary),
		body:   body,
	}
	// Only *MultipartData is accepted: a copy would leave nobody to close
	// the body.
	if err := assignPointer(v, data, false); err != nil {
		_ = body.Close()
		return NewError(KindArgs, err)
	}
	return nil
}
