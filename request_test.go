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
	"io"
	"net/http"
	"testing"

	"connectrpc.com/serverfn/internal/assert"
)

// testRequest is a Request backed by a byte slice.
type testRequest struct {
	path        string
	query       string
	contentType string
	body        []byte
	guard       BodyGuard
}

var _ Request = (*testRequest)(nil)

func (r *testRequest) Path() string        { return r.path }
func (r *testRequest) Query() string       { return r.query }
func (r *testRequest) ContentType() string { return r.contentType }

func (r *testRequest) Header(key string) string {
	if http.CanonicalHeaderKey(key) == headerContentType {
		return r.contentType
	}
	return ""
}

func (r *testRequest) Text() (string, error) {
	data, err := r.Bytes()
	return string(data), err
}

func (r *testRequest) Bytes() ([]byte, error) {
	r.guard.Take()
	return r.body, nil
}

func (r *testRequest) Stream() (*ByteStream, error) {
	r.guard.Take()
	return ByteStreamFromReader(io.NopCloser(bytes.NewReader(r.body))), nil
}

func TestBodyGuard(t *testing.T) {
	t.Parallel()
	req := &testRequest{body: []byte("once")}
	text, err := req.Text()
	assert.Nil(t, err)
	assert.Equal(t, text, "once")
	assert.True(t, req.guard.Taken())
	assert.Panics(t, func() { _, _ = req.Bytes() })
}
