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
	"fmt"
	"strconv"
	"strings"
)

// A Kind classifies an *Error by the stage of a remote call that failed.
// Kinds are flat: none of them is a refinement of another.
type Kind uint8

const (
	KindWrapped         Kind = 1 // error returned by the function body
	KindRegistration    Kind = 2 // registry misconfiguration
	KindRequest         Kind = 3 // request could not be built, sent, or read
	KindResponse        Kind = 4 // server could not build a response
	KindServer          Kind = 5 // server-side execution failure
	KindDeserialization Kind = 6 // decoding failed
	KindSerialization   Kind = 7 // encoding failed
	KindArgs            Kind = 8 // malformed arguments
	KindMissingArg      Kind = 9 // required argument absent

	minKind Kind = KindWrapped
	maxKind Kind = KindMissingArg
)

var strToKind = map[string]Kind{
	"wrapped":         KindWrapped,
	"registration":    KindRegistration,
	"request":         KindRequest,
	"response":        KindResponse,
	"server":          KindServer,
	"deserialization": KindDeserialization,
	"serialization":   KindSerialization,
	"args":            KindArgs,
	"missing_arg":     KindMissingArg,
}

// prefix is the human-readable text that precedes an error's message when
// it's displayed. ParseError relies on these being distinct.
func (k Kind) prefix() string {
	switch k {
	case KindRegistration:
		return "error while trying to register the server function: "
	case KindRequest:
		return "error reaching server to call server function: "
	case KindResponse:
		return "error generating HTTP response: "
	case KindServer:
		return "error running server function: "
	case KindDeserialization:
		return "error deserializing server function results: "
	case KindSerialization:
		return "error serializing server function arguments: "
	case KindArgs:
		return "error deserializing server function arguments: "
	case KindMissingArg:
		return "missing argument "
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler. Kinds are marshaled as
// lower-case names.
func (k Kind) MarshalText() ([]byte, error) {
	if k < minKind || k > maxKind {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(k.name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts both the
// names produced by MarshalText and numeric representations.
func (k *Kind) UnmarshalText(b []byte) error {
	if n, ok := strToKind[strings.ToLower(string(b))]; ok {
		*k = n
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10 /* base */, 8 /* bitsize */)
	if err != nil {
		return fmt.Errorf("invalid kind %q", string(b))
	}
	kind := Kind(n)
	if kind < minKind || kind > maxKind {
		return fmt.Errorf("invalid kind %d", n)
	}
	*k = kind
	return nil
}

func (k Kind) name() string {
	for name, kind := range strToKind {
		if kind == k {
			return name
		}
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case KindWrapped:
		return "Wrapped"
	case KindRegistration:
		return "Registration"
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindServer:
		return "Server"
	case KindDeserialization:
		return "Deserialization"
	case KindSerialization:
		return "Serialization"
	case KindArgs:
		return "Args"
	case KindMissingArg:
		return "MissingArg"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}
