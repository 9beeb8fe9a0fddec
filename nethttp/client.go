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

package nethttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"connectrpc.com/serverfn"
)

// A Client sends server function calls over net/http.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ serverfn.Client = (*Client)(nil)

// NewClient constructs a Client for the server at baseURL, which includes
// the scheme and host (for example, "https://example.com"). Function paths
// are appended to it.
func NewClient(baseURL string, options ...ClientOption) *Client {
	config := clientConfig{HTTPClient: http.DefaultClient}
	for _, opt := range options {
		opt.applyToClient(&config)
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: config.HTTPClient,
	}
}

// Send implements serverfn.Client.
func (c *Client) Send(ctx context.Context, req *serverfn.ClientRequest) (serverfn.ClientResponse, error) {
	body := requestBody(ctx, req.Body)
	request, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.URL(), body)
	if err != nil {
		// Streamed and multipart bodies own a producer that must be stopped.
		if closer, ok := body.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, serverfn.Errorf(serverfn.KindRequest, "build request: %w", err)
	}
	if contentType := req.ContentType(); contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if req.Accept != "" {
		request.Header.Set("Accept", req.Accept)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, serverfn.NewError(serverfn.KindRequest, err)
	}
	return &clientResponse{response: response}, nil
}

// requestBody picks a reader net/http can size up front where possible.
func requestBody(ctx context.Context, body *serverfn.Body) io.Reader {
	switch body.Kind() {
	case serverfn.BodyEmpty:
		return http.NoBody
	case serverfn.BodyText:
		return strings.NewReader(body.Text())
	case serverfn.BodyBytes:
		return bytes.NewReader(body.Bytes())
	default:
		return body.Reader(ctx)
	}
}

type clientResponse struct {
	response *http.Response
	guard    serverfn.BodyGuard
}

var _ serverfn.ClientResponse = (*clientResponse)(nil)

func (r *clientResponse) Status() int { return r.response.StatusCode }

func (r *clientResponse) ContentType() string { return r.response.Header.Get("Content-Type") }

func (r *clientResponse) Header(key string) string { return r.response.Header.Get(key) }

func (r *clientResponse) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *clientResponse) Bytes() ([]byte, error) {
	r.guard.Take()
	defer r.response.Body.Close()
	data, err := io.ReadAll(r.response.Body)
	if err != nil {
		return nil, serverfn.Errorf(serverfn.KindRequest, "read response body: %w", err)
	}
	return data, nil
}

func (r *clientResponse) Stream() (*serverfn.ByteStream, error) {
	r.guard.Take()
	return serverfn.ByteStreamFromReader(r.response.Body), nil
}
