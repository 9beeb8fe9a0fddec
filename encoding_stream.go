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
	"io"
	"net/http"
)

const (
	contentTypeOctetStream = "application/octet-stream"
	contentTypeTextStream  = "text/plain; charset=utf-8"
)

// StreamingEncoding sends a *ByteStream result as a streamed
// application/octet-stream body. Chunks reach the client as the function
// produces them; the client's stream yields them as they arrive, though
// transports may merge or split chunks along the way.
//
// StreamingEncoding is an output encoding only.
type StreamingEncoding struct{}

func (StreamingEncoding) ContentType() string { return contentTypeOctetStream }

func (StreamingEncoding) Method() string { return http.MethodPost }

func (e StreamingEncoding) EncodeResponse(_ context.Context, v any) (*Body, error) {
	stream, ok := v.(*ByteStream)
	if !ok || stream == nil {
		return nil, Errorf(KindSerialization, "can't stream %T as bytes", v)
	}
	return StreamBody(e.ContentType(), stream), nil
}

func (StreamingEncoding) DecodeResponse(_ context.Context, res ClientResponse, v any) error {
	stream, err := res.Stream()
	if err != nil {
		return errorf(KindDeserialization, "read response body: %w", err)
	}
	if err := assignPointer(v, stream, false); err != nil {
		_ = stream.Close()
		return NewError(KindDeserialization, err)
	}
	return nil
}

// StreamingTextEncoding sends a *TextStream result as a streamed text/plain
// body. The client's stream re-joins UTF-8 sequences split in transit.
//
// StreamingTextEncoding is an output encoding only.
type StreamingTextEncoding struct{}

func (StreamingTextEncoding) ContentType() string { return contentTypeTextStream }

func (StreamingTextEncoding) Method() string { return http.MethodPost }

func (e StreamingTextEncoding) EncodeResponse(_ context.Context, v any) (*Body, error) {
	text, ok := v.(*TextStream)
	if !ok || text == nil {
		return nil, Errorf(KindSerialization, "can't stream %T as text", v)
	}
	bytes := NewStream(func() ([]byte, error) {
		if !text.Receive() {
			if err := text.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return []byte(text.Msg()), nil
	}, text.Close)
	return StreamBody(e.ContentType(), bytes), nil
}

func (StreamingTextEncoding) DecodeResponse(_ context.Context, res ClientResponse, v any) error {
	stream, err := res.Stream()
	if err != nil {
		return errorf(KindDeserialization, "read response body: %w", err)
	}
	text := TextStreamFromBytes(stream)
	if err := assignPointer(v, text, false); err != nil {
		_ = text.Close()
		return NewError(KindDeserialization, err)
	}
	return nil
}
