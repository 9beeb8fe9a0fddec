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

package memhttp

import (
	"time"

	"go.uber.org/zap"
)

type config struct {
	Logger         *zap.Logger
	CleanupTimeout time.Duration
	DisableHTTP2   bool
}

// An Option configures a Server.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) { f(cfg) }

// WithLogger routes the server's internal errors, such as aborted
// connections, to logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.Logger = logger
	})
}

// WithCleanupTimeout customizes the default five-second timeout for the
// server's Cleanup method.
func WithCleanupTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.CleanupTimeout = d
	})
}

// WithoutHTTP2 disables h2c, so the server only speaks HTTP/1.1.
func WithoutHTTP2() Option {
	return optionFunc(func(cfg *config) {
		cfg.DisableHTTP2 = true
	})
}
