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
)

// EncodeRequest encodes v into a client request for the callable at path.
// Failures are KindSerialization errors unless the encoding classified them
// itself.
func EncodeRequest[T any](enc RequestEncoder, path string, v T) (*ClientRequest, error) {
	req, err := enc.EncodeRequest(path, v)
	if err != nil {
		return nil, classify(KindSerialization, err)
	}
	return req, nil
}

// DecodeRequest decodes a server request into a new T. Failures are
// KindArgs errors unless the encoding classified them itself.
func DecodeRequest[T any](ctx context.Context, enc RequestDecoder, req Request) (T, error) {
	var v T
	if err := enc.DecodeRequest(ctx, req, &v); err != nil {
		var zero T
		return zero, classify(KindArgs, err)
	}
	return v, nil
}

// EncodeResponse encodes v into a response body. Failures are
// KindSerialization errors unless the encoding classified them itself.
func EncodeResponse[T any](ctx context.Context, enc ResponseEncoder, v T) (*Body, error) {
	body, err := enc.EncodeResponse(ctx, v)
	if err != nil {
		return nil, classify(KindSerialization, err)
	}
	return body, nil
}

// DecodeResponse decodes a client response into a new T. Failures are
// KindDeserialization errors unless the encoding classified them itself.
func DecodeResponse[T any](ctx context.Context, enc ResponseDecoder, res ClientResponse) (T, error) {
	var v T
	if err := enc.DecodeResponse(ctx, res, &v); err != nil {
		var zero T
		return zero, classify(KindDeserialization, err)
	}
	return v, nil
}

// classify leaves *Errors alone and gives anything else the supplied kind.
func classify(kind Kind, err error) *Error {
	if serverfnErr, ok := asError(err); ok {
		return serverfnErr
	}
	return NewError(kind, err)
}
