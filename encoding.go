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
	"fmt"
)

// An Encoding is a wire format: a fixed content type and HTTP method plus
// the logic to move typed values in and out of request and response bodies.
// Encodings are stateless.
//
// The content type is advisory. Which encoding decodes a body is decided by
// the callable's definition, never by inspecting the Content-Type header.
type Encoding interface {
	ContentType() string
	Method() string
}

// A RequestEncoder encodes a value into an outbound client request.
type RequestEncoder interface {
	Encoding
	EncodeRequest(path string, v any) (*ClientRequest, error)
}

// A RequestDecoder decodes an inbound server request into v, which is always
// a non-nil pointer.
type RequestDecoder interface {
	Encoding
	DecodeRequest(ctx context.Context, req Request, v any) error
}

// A ResponseEncoder encodes a value into a server response body.
type ResponseEncoder interface {
	Encoding
	EncodeResponse(ctx context.Context, v any) (*Body, error)
}

// A ResponseDecoder decodes a response received by a client into v, which
// is always a non-nil pointer.
type ResponseDecoder interface {
	Encoding
	DecodeResponse(ctx context.Context, res ClientResponse, v any) error
}

// An InputEncoding codes a callable's arguments.
type InputEncoding interface {
	RequestEncoder
	RequestDecoder
}

// An OutputEncoding codes a callable's result.
type OutputEncoding interface {
	ResponseEncoder
	ResponseDecoder
}

// The built-in encodings.
var (
	JSON          = JSONEncoding{}
	CBOR          = CBOREncoding{}
	GetURL        = GetURLEncoding{}
	PostURL       = PostURLEncoding{}
	Multipart     = MultipartEncoding{}
	Streaming     = StreamingEncoding{}
	StreamingText = StreamingTextEncoding{}
	Protobuf      = ProtobufEncoding{}
)

var (
	_ InputEncoding  = JSON
	_ OutputEncoding = JSON
	_ InputEncoding  = CBOR
	_ OutputEncoding = CBOR
	_ InputEncoding  = GetURL
	_ InputEncoding  = PostURL
	_ InputEncoding  = Multipart
	_ OutputEncoding = Streaming
	_ OutputEncoding = StreamingText
	_ InputEncoding  = Protobuf
	_ OutputEncoding = Protobuf
)

func newClientRequest(enc Encoding, path string, body *Body) *ClientRequest {
	return &ClientRequest{
		Method: enc.Method(),
		Path:   path,
		Body:   body,
	}
}

// assignPointer stores value in the target of a decoder, which is either a
// pointer to T's pointer or, when copying T is safe, a pointer to T.
func assignPointer[T any](v any, value *T, allowCopy bool) error {
	switch target := v.(type) {
	case **T:
		*target = value
		return nil
	case *T:
		if allowCopy {
			*target = *value
			return nil
		}
	}
	return fmt.Errorf("can't decode %T into %T", value, v)
}
