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
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"connectrpc.com/serverfn/internal/assert"
)

func TestMultipartRoundTrip(t *testing.T) {
	t.Parallel()
	form := NewMultipartForm().
		AddField("a", "abc").
		AddFile("b", "b.txt", strings.NewReader("hello"))
	var encoded bytes.Buffer
	n, err := form.WriteTo(&encoded)
	assert.Nil(t, err)
	assert.Equal(t, n, int64(encoded.Len()))

	req := &testRequest{contentType: form.ContentType(), body: encoded.Bytes()}
	var data *MultipartData
	assert.Nil(t, Multipart.DecodeRequest(context.Background(), req, &data))
	defer data.Close()
	assert.Nil(t, data.Form())

	field, err := data.NextField()
	assert.Nil(t, err)
	assert.Equal(t, field.Name(), "a")
	assert.Equal(t, field.FileName(), "")
	value, err := field.Bytes()
	assert.Nil(t, err)
	assert.Equal(t, len(value), 3)

	field, err = data.NextField()
	assert.Nil(t, err)
	assert.Equal(t, field.Name(), "b")
	assert.Equal(t, field.FileName(), "b.txt")
	var total []byte
	chunks := field.Chunks()
	for chunks.Receive() {
		total = append(total, chunks.Msg()...)
	}
	assert.Nil(t, chunks.Err())
	assert.Equal(t, len(total), 5)

	_, err = data.NextField()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultipartStreamMatchesWriteTo(t *testing.T) {
	t.Parallel()
	form := NewMultipartForm().AddField("greeting", "hi").AddField("name", "gopher")
	var want bytes.Buffer
	_, err := form.WriteTo(&want)
	assert.Nil(t, err)
	got, err := io.ReadAll(newStreamReader(form.Stream(context.Background())))
	assert.Nil(t, err)
	assert.Equal(t, string(got), want.String())
}

func TestMultipartMissingBoundary(t *testing.T) {
	t.Parallel()
	for _, contentType := range []string{"", "multipart/form-data", "application/json", "multipart/form-data; boundary"} {
		req := &testRequest{contentType: contentType, body: []byte("--x\r\n")}
		var data *MultipartData
		err := Multipart.DecodeRequest(context.Background(), req, &data)
		assert.Equal(t, KindOf(err), KindRequest, assert.Sprintf("content type %q", contentType))
		assert.False(t, req.guard.Taken(), assert.Sprintf("content type %q", contentType))
		assert.Nil(t, data)
	}
}

func TestMultipartEncodeRequest(t *testing.T) {
	t.Parallel()
	form := NewMultipartForm().AddField("a", "b")
	req, err := Multipart.EncodeRequest("/api/upload", NewMultipartData(form))
	assert.Nil(t, err)
	assert.Equal(t, req.Method, "POST")
	assert.Equal(t, req.Body.Kind(), BodyMultipart)
	assert.True(t, strings.HasPrefix(req.ContentType(), "multipart/form-data; boundary="))

	_, err = Multipart.EncodeRequest("/api/upload", &MultipartData{})
	assert.Equal(t, KindOf(err), KindSerialization)
	_, err = Multipart.EncodeRequest("/api/upload", "not a form")
	assert.Equal(t, KindOf(err), KindSerialization)
}
