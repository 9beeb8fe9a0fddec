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

package serverfn_test

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/serverfn"
	"connectrpc.com/serverfn/serverfntest"
)

type AddArgs struct {
	A int `url:"a"`
	B int `url:"b"`
}

// Add is shared by the client and server builds of a program. The path
// would usually come from PathFor.
var Add = serverfn.New(
	"/api/add",
	func(_ context.Context, args AddArgs) (int, error) {
		if args.A < 0 || args.B < 0 {
			return 0, errors.New("only non-negative numbers, please")
		}
		return args.A + args.B, nil
	},
	serverfn.WithInput(serverfn.GetURL),
)

func Example() {
	// Servers register functions with a registry for their transport. The
	// nethttp package serves a registry over net/http; here, the in-memory
	// transport from serverfntest stands in for it.
	registry := serverfntest.NewRegistry()
	registry.MustRegister(Add)

	// Clients call the same value, configured with a client transport.
	add := Add.WithClient(serverfntest.NewClient(registry))
	sum, err := add.RunOnClient(context.Background(), AddArgs{A: 2, B: 40})
	if err != nil {
		panic(err)
	}
	fmt.Println(sum)

	// Errors from the function body reach the client as KindWrapped errors.
	_, err = add.RunOnClient(context.Background(), AddArgs{A: -1, B: 1})
	fmt.Println(serverfn.KindOf(err), err)
	// Output:
	// 42
	// Wrapped only non-negative numbers, please
}

func ExamplePathFor() {
	path := serverfn.PathFor("/rpc", "add")
	fmt.Println(len(path) > len("/rpc/add"))
	// Output: true
}
