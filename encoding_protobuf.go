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
	"net/http"
	"reflect"

	"google.golang.org/protobuf/proto"
)

const contentTypeProtobuf = "application/x-protobuf"

// ProtobufEncoding sends arguments and results as binary Protocol Buffers in
// the body of a POST request. Arguments and results must be generated
// message types, such as *wrapperspb.StringValue.
type ProtobufEncoding struct{}

func (ProtobufEncoding) ContentType() string { return contentTypeProtobuf }

func (ProtobufEncoding) Method() string { return http.MethodPost }

func (e ProtobufEncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	data, err := marshalProto(v)
	if err != nil {
		return nil, err
	}
	return newClientRequest(e, path, BytesBody(e.ContentType(), data)), nil
}

func (ProtobufEncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	msg, err := protoTarget(v)
	if err != nil {
		return NewError(KindArgs, err)
	}
	data, err := req.Bytes()
	if err != nil {
		return errorf(KindArgs, "read request body: %w", err)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return NewError(KindArgs, err)
	}
	return nil
}

func (e ProtobufEncoding) EncodeResponse(_ context.Context, v any) (*Body, error) {
	data, err := marshalProto(v)
	if err != nil {
		return nil, err
	}
	return BytesBody(e.ContentType(), data), nil
}

func (ProtobufEncoding) DecodeResponse(_ context.Context, res ClientResponse, v any) error {
	msg, err := protoTarget(v)
	if err != nil {
		return NewError(KindDeserialization, err)
	}
	data, err := res.Bytes()
	if err != nil {
		return errorf(KindDeserialization, "read response body: %w", err)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return NewError(KindDeserialization, err)
	}
	return nil
}

func marshalProto(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, NewError(KindSerialization, errNotProtobuf(v))
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, NewError(KindSerialization, err)
	}
	return data, nil
}

// protoTarget finds the message to unmarshal into. Decoders receive a
// pointer to the callable's argument or result type, and generated messages
// are themselves pointers, so the target is usually a pointer to a nil
// message pointer that must be allocated first.
func protoTarget(v any) (proto.Message, error) {
	if msg, ok := v.(proto.Message); ok {
		return msg, nil
	}
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() || ptr.Elem().Kind() != reflect.Pointer {
		return nil, errNotProtobuf(v)
	}
	elem := ptr.Elem()
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	msg, ok := elem.Interface().(proto.Message)
	if !ok {
		return nil, errNotProtobuf(v)
	}
	return msg, nil
}

func errNotProtobuf(m any) error {
	return fmt.Errorf("%T doesn't implement proto.Message", m)
}
