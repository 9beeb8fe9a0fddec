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

// Package observability builds the demo server's zap logger.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"connectrpc.com/serverfn/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger builds a logger from c, installs it as zap's global logger, and
// redirects the standard library's log package to it. Callers should defer
// the returned cleanup, which syncs the logger and closes any files.
func SetupLogger(c config.LogConfig) (*zap.Logger, func(), error) {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "warning" {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	encoder := newEncoder(c)

	var (
		cores   []zapcore.Core
		closers []func() error
	)
	for _, out := range c.Outputs {
		var ws zapcore.WriteSyncer
		switch strings.ToLower(out) {
		case "stdout":
			ws = zapcore.Lock(os.Stdout)
		case "stderr":
			ws = zapcore.Lock(os.Stderr)
		default:
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, nil, fmt.Errorf("log output %s: %w", out, err)
				}
			}
			if c.Rotation.Enable {
				rotating := &lumberjack.Logger{
					Filename:   out,
					MaxSize:    max(c.Rotation.MaxSizeMB, 1),
					MaxBackups: max(c.Rotation.MaxBackups, 1),
					MaxAge:     max(c.Rotation.MaxAgeDays, 1),
					Compress:   c.Rotation.Compress,
				}
				ws = zapcore.AddSync(rotating)
				closers = append(closers, rotating.Close)
				break
			}
			f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("log output %s: %w", out, err)
			}
			ws = zapcore.AddSync(f)
			closers = append(closers, f.Close)
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}
	logger := zap.New(zapcore.NewTee(cores...), opts...)
	restoreGlobals := zap.ReplaceGlobals(logger)
	restoreLog, err := zap.RedirectStdLogAt(logger, zap.InfoLevel)
	if err != nil {
		restoreGlobals()
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
		restoreLog()
		restoreGlobals()
		for _, closeFile := range closers {
			_ = closeFile()
		}
	}
	return logger, cleanup, nil
}

func newEncoder(c config.LogConfig) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	if c.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if strings.EqualFold(c.Format, "json") {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	if c.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}
