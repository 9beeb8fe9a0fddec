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

// Package demo defines the server functions served and called by the
// serverfn-demo binary.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"connectrpc.com/serverfn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AddArgs are the operands of API.Add, sent in the query string.
type AddArgs struct {
	A int `url:"a"`
	B int `url:"b"`
}

// Sum is the result of API.Add and API.Divide.
type Sum struct {
	Value int `json:"value"`
}

// DivideArgs are the operands of API.Divide.
type DivideArgs struct {
	Dividend int `url:"dividend"`
	Divisor  int `url:"divisor"`
}

// Note is echoed back by API.Echo.
type Note struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// CountArgs controls API.Count.
type CountArgs struct {
	To       int           `cbor:"to"`
	Interval time.Duration `cbor:"interval"`
}

// FieldSummary describes one field received by API.Upload.
type FieldSummary struct {
	Name     string `json:"name"`
	FileName string `json:"file_name,omitempty"`
	Size     int    `json:"size"`
}

// ErrDivideByZero is returned by API.Divide.
var ErrDivideByZero = errors.New("division by zero")

// API is the demo's set of server functions.
type API struct {
	Add    *serverfn.ServerFn[AddArgs, Sum]
	Divide *serverfn.ServerFn[DivideArgs, Sum]
	Echo   *serverfn.ServerFn[Note, Note]
	Shout  *serverfn.ServerFn[*wrapperspb.StringValue, *wrapperspb.StringValue]
	Upload *serverfn.ServerFn[*serverfn.MultipartData, []FieldSummary]
	Count  *serverfn.ServerFn[CountArgs, *serverfn.TextStream]
}

// NewAPI builds the functions with paths under prefix. Servers and clients
// must use the same prefix.
func NewAPI(prefix string) *API {
	return &API{
		Add: serverfn.New(
			serverfn.PathFor(prefix, "add"),
			add,
			serverfn.WithInput(serverfn.GetURL),
		),
		Divide: serverfn.New(serverfn.PathFor(prefix, "divide"), divide),
		Echo: serverfn.New(
			serverfn.PathFor(prefix, "echo"),
			echo,
			serverfn.WithInput(serverfn.JSON),
		),
		Shout: serverfn.New(
			serverfn.PathFor(prefix, "shout"),
			shout,
			serverfn.WithInput(serverfn.Protobuf),
			serverfn.WithOutput(serverfn.Protobuf),
		),
		Upload: serverfn.New(
			serverfn.PathFor(prefix, "upload"),
			upload,
			serverfn.WithInput(serverfn.Multipart),
		),
		Count: serverfn.New(
			serverfn.PathFor(prefix, "count"),
			count,
			serverfn.WithInput(serverfn.CBOR),
			serverfn.WithOutput(serverfn.StreamingText),
		),
	}
}

// Callables lists the functions for registration.
func (a *API) Callables() []serverfn.Callable {
	return []serverfn.Callable{a.Add, a.Divide, a.Echo, a.Shout, a.Upload, a.Count}
}

// WithClient returns a copy of the API whose functions call through client.
func (a *API) WithClient(client serverfn.Client) *API {
	return &API{
		Add:    a.Add.WithClient(client),
		Divide: a.Divide.WithClient(client),
		Echo:   a.Echo.WithClient(client),
		Shout:  a.Shout.WithClient(client),
		Upload: a.Upload.WithClient(client),
		Count:  a.Count.WithClient(client),
	}
}

func add(_ context.Context, args AddArgs) (Sum, error) {
	return Sum{Value: args.A + args.B}, nil
}

func divide(_ context.Context, args DivideArgs) (Sum, error) {
	if args.Divisor == 0 {
		return Sum{}, ErrDivideByZero
	}
	return Sum{Value: args.Dividend / args.Divisor}, nil
}

func echo(_ context.Context, note Note) (Note, error) {
	if note.At.IsZero() {
		note.At = time.Now().UTC()
	}
	return note, nil
}

func shout(_ context.Context, msg *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(strings.ToUpper(msg.GetValue()) + "!"), nil
}

func upload(_ context.Context, data *serverfn.MultipartData) ([]FieldSummary, error) {
	var fields []FieldSummary
	for {
		field, err := data.NextField()
		if errors.Is(err, io.EOF) {
			return fields, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read field: %w", err)
		}
		size, err := io.Copy(io.Discard, field)
		if err != nil {
			return nil, fmt.Errorf("read field %s: %w", field.Name(), err)
		}
		fields = append(fields, FieldSummary{
			Name:     field.Name(),
			FileName: field.FileName(),
			Size:     int(size),
		})
	}
}

func count(ctx context.Context, args CountArgs) (*serverfn.TextStream, error) {
	if args.To < 0 {
		return nil, fmt.Errorf("can't count to %d", args.To)
	}
	return serverfn.Produce(ctx, func(ctx context.Context, send func(string) error) error {
		for i := 1; i <= args.To; i++ {
			if i > 1 && args.Interval > 0 {
				timer := time.NewTimer(args.Interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
			if err := send(fmt.Sprintf("%d\n", i)); err != nil {
				return err
			}
		}
		return nil
	}), nil
}
