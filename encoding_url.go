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
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/mitchellh/mapstructure"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	urlTag          = "url"
)

// GetURLEncoding sends arguments as the query string of a GET request.
// Arguments must be structs whose fields carry `url` tags, as understood by
// github.com/google/go-querystring. Fields without the omitempty option are
// required: a scalar field missing from the query is a KindMissingArg
// error. Pointer fields are optional, and nil pointers aren't sent. Times
// are sent in RFC 3339 format with nanoseconds unless the field asks for
// another format.
//
// GetURLEncoding is an input encoding only.
type GetURLEncoding struct{}

func (GetURLEncoding) ContentType() string { return contentTypeForm }

func (GetURLEncoding) Method() string { return http.MethodGet }

func (e GetURLEncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	encoded, err := encodeForm(v)
	if err != nil {
		return nil, err
	}
	req := newClientRequest(e, path, nil)
	req.Query = encoded
	return req, nil
}

func (GetURLEncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	return decodeForm(req.Query(), v)
}

// PostURLEncoding sends arguments URL-encoded in the body of a POST request.
// It's otherwise identical to GetURLEncoding.
//
// PostURLEncoding is an input encoding only.
type PostURLEncoding struct{}

func (PostURLEncoding) ContentType() string { return contentTypeForm }

func (PostURLEncoding) Method() string { return http.MethodPost }

func (e PostURLEncoding) EncodeRequest(path string, v any) (*ClientRequest, error) {
	encoded, err := encodeForm(v)
	if err != nil {
		return nil, err
	}
	return newClientRequest(e, path, TextBody(e.ContentType(), encoded)), nil
}

func (PostURLEncoding) DecodeRequest(_ context.Context, req Request, v any) error {
	text, err := req.Text()
	if err != nil {
		return errorf(KindArgs, "read request body: %w", err)
	}
	return decodeForm(text, v)
}

func encodeForm(v any) (string, error) {
	values, err := query.Values(v)
	if err != nil {
		return "", NewError(KindSerialization, err)
	}
	normalizeForm(values, v)
	return values.Encode(), nil
}

// normalizeForm adjusts go-querystring's output so that it decodes back to
// the same value: nil pointers are left out rather than sent empty, and
// times keep their sub-second precision.
func normalizeForm(values url.Values, v any) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name, optional := parseURLTag(field)
		if name == "-" {
			continue
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				values.Del(name)
				continue
			}
			fv = fv.Elem()
		}
		if fv.Type() != timeType || hasTimeFormat(field) {
			continue
		}
		when, _ := fv.Interface().(time.Time)
		if optional && when.IsZero() {
			continue
		}
		values.Set(name, when.Format(time.RFC3339Nano))
	}
}

// hasTimeFormat reports whether a time field asks go-querystring for a
// format of its own.
func hasTimeFormat(field reflect.StructField) bool {
	if field.Tag.Get("layout") != "" {
		return true
	}
	_, opts, _ := strings.Cut(field.Tag.Get(urlTag), ",")
	for _, opt := range strings.Split(opts, ",") {
		switch opt {
		case "unix", "unixmilli", "unixnano":
			return true
		}
	}
	return false
}

func decodeForm(raw string, v any) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Errorf(KindArgs, "parse form: %w", err)
	}
	if err := checkRequiredFields(values, v); err != nil {
		return err
	}
	input := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			input[key] = vals[0]
			continue
		}
		input[key] = vals
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		TagName:          urlTag,
		Result:           v,
	})
	if err != nil {
		return NewError(KindArgs, err)
	}
	if err := decoder.Decode(input); err != nil {
		return NewError(KindArgs, err)
	}
	return nil
}

// checkRequiredFields reports the first required scalar field of v's struct
// type that's absent from values. Pointer fields are always optional: a nil
// pointer isn't sent at all.
func checkRequiredFields(values url.Values, v any) error {
	typ := reflect.TypeOf(v)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name, optional := parseURLTag(field)
		if name == "-" || optional || field.Type.Kind() == reflect.Pointer || !isScalar(field.Type) {
			continue
		}
		if _, ok := values[name]; !ok {
			return Errorf(KindMissingArg, "%s", name)
		}
	}
	return nil
}

func parseURLTag(field reflect.StructField) (name string, optional bool) {
	tag := field.Tag.Get(urlTag)
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			optional = true
		}
	}
	return name, optional
}

var timeType = reflect.TypeOf(time.Time{})

// isScalar reports whether a field encodes as exactly one query parameter.
// Slices, maps, and nested structs may legitimately encode as nothing.
func isScalar(typ reflect.Type) bool {
	if typ == timeType {
		return true
	}
	switch typ.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Interface:
		return false
	default:
		return true
	}
}
