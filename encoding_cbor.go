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
	"net/http"

	"github.com/fxamacker/cbor/v2"
)

const contentTypeCBOR = "application/cbor"

var (
	cborEncMode = mustEncMode(cbor.CanonicalEncOptions())
	cborDecMode = mustDecMode(cbor.DecOptions{})
)

// CBOREncoding sends arguments and results as CBOR (RFC 8949) in the body of
// a POST request. Values are encoded canonically, so equal values always
// produce identical bytes.
type CBOREncoding struct{}

func (CBOREncoding) ContentType() string { return contentTypeCBOR }

func (CBOREncoding) Method() string { return http.MethodPost }

func (e CBOREncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	data, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, NewError(KindSerialization, err)
	}
	return newClientRequest(e, path, BytesBody(e.ContentType(), data)), nil
}

func (CBOREncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	data, err := req.Bytes()
	if err != nil {
		return errorf(KindArgs, "read request body: %w", err)
	}
	if err := cborDecMode.Unmarshal(data, v); err != nil {
		return NewError(KindArgs, err)
	}
	return nil
}

func (e CBOREncoding) EncodeResponse(_ context.Context, v any) (*Body, error) {
	data, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, NewError(KindSerialization, err)
	}
	return BytesBody(e.ContentType(), data), nil
}

func (CBOREncoding) DecodeResponse(_ context.Context, res ClientResponse, v any) error {
	data, err := res.Bytes()
	if err != nil {
		return errorf(KindDeserialization, "read response body: %w", err)
	}
	if err := cborDecMode.Unmarshal(data, v); err != nil {
		return NewError(KindDeserialization, err)
	}
	return nil
}

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	mode, err := opts.EncMode()
	if err != nil {
		panic("serverfn: invalid CBOR encoding options: " + err.Error())
	}
	return mode
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	mode, err := opts.DecMode()
	if err != nil {
		panic("serverfn: invalid CBOR decoding options: " + err.Error())
	}
	return mode
}
