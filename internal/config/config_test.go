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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/serverfn/internal/assert"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	assert.Nil(t, err)
	assert.Nil(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	assert.Nil(t, err)
	assert.Equal(t, cfg, Default())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	yaml := []byte(`
addr: ":9090"
prefix: /rpc/
log:
  level: debug
  outputs: [stdout]
rate_limit:
  per_second: 5
`)
	assert.Nil(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("SERVERFN_READ_MAX_BYTES", "1024")
	t.Setenv("SERVERFN_METRICS_PATH", "/internal/metrics")

	cfg, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, cfg.Addr, ":9090")
	assert.Equal(t, cfg.Prefix, "/rpc/")
	assert.Equal(t, cfg.Log.Level, "debug")
	assert.Equal(t, cfg.Log.Outputs, []string{"stdout"})
	assert.Equal(t, cfg.ReadMaxBytes, int64(1024))
	assert.Equal(t, cfg.Metrics.Path, "/internal/metrics")
	assert.Equal(t, cfg.RateLimit.PerSecond, 5.0)
	assert.Equal(t, cfg.RateLimit.Burst, 1)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	for name, yaml := range map[string]string{
		"level":  "log:\n  level: loud\n",
		"prefix": "prefix: api\n",
		"limit":  "read_max_bytes: -1\n",
	} {
		path := filepath.Join(dir, name+".yaml")
		assert.Nil(t, os.WriteFile(path, []byte(yaml), 0o600))
		_, err := Load(path)
		assert.NotNil(t, err, assert.Sprintf("config %s", name))
	}
}
