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

package observability

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/serverfn/internal/assert"
	"connectrpc.com/serverfn/internal/config"
	"go.uber.org/zap"
)

func TestSetupLogger(t *testing.T) {
	t.Run("json_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "server.log")
		logger, cleanup, err := SetupLogger(config.LogConfig{
			Level:   "info",
			Format:  "json",
			Outputs: []string{path},
		})
		assert.Nil(t, err)
		logger.Debug("dropped")
		logger.Info("dispatched", zap.String("path", "/api/add"))
		zap.L().Warn("global")
		log.Print("from stdlib")
		cleanup()

		data, err := os.ReadFile(path)
		assert.Nil(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Equal(t, len(lines), 3)
		var entry map[string]any
		assert.Nil(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, entry["msg"], any("dispatched"))
		assert.Equal(t, entry["path"], any("/api/add"))
		assert.Contains(t, lines[1], `"msg":"global"`)
		assert.Contains(t, lines[2], "from stdlib")
	})
	t.Run("rotated_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rotated.log")
		logger, cleanup, err := SetupLogger(config.LogConfig{
			Level:    "debug",
			Format:   "console",
			Outputs:  []string{path},
			Rotation: config.RotationConfig{Enable: true, MaxSizeMB: 1},
		})
		assert.Nil(t, err)
		logger.Debug("kept")
		cleanup()

		data, err := os.ReadFile(path)
		assert.Nil(t, err)
		assert.Contains(t, string(data), "kept")
	})
	t.Run("cleanup_restores_globals", func(t *testing.T) {
		before := zap.L()
		_, cleanup, err := SetupLogger(config.LogConfig{Level: "warn", Outputs: []string{"stderr"}})
		assert.Nil(t, err)
		assert.True(t, zap.L() != before)
		cleanup()
		assert.True(t, zap.L() == before)
	})
	t.Run("bad_level", func(t *testing.T) {
		_, _, err := SetupLogger(config.LogConfig{Level: "loud"})
		assert.NotNil(t, err)
	})
}
