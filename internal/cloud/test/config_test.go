// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigLayersRuntimeOverBase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(`
[application]
name = "base"

[pipeline]
seconds_per_frame = 4.0
width = 640

[topic_subscriptions.AssemblyRequests]
name = "assembly-requests-sub"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(`
[pipeline]
width = 320
`), 0o644))

	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))

	assert.Equal(t, "base", config.Application.Name)
	assert.Equal(t, 4.0, config.Pipeline.SecondsPerFrame)
	assert.Equal(t, 320, config.Pipeline.Width)
	// untouched keys keep their defaults
	assert.Equal(t, 720, config.Pipeline.Height)
	assert.Equal(t, cloud.OnImageFailureAbort, config.Pipeline.OnImageFailure)
	assert.Equal(t, "assembly-requests-sub", config.TopicSubscriptions["AssemblyRequests"].Name)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[pipeline\nwidth = "), 0o644))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}
