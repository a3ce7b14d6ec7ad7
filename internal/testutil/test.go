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

// Package test provides helpers shared by the test suites: configuration
// loading, sample payloads, synthetic images and a scriptable engine.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
)

// StateManager caches the loaded test configuration across tests.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is set.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ConfigDir is the repository's configs directory, located from this file so
// tests find it whatever package they run from.
func ConfigDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// SetupOS points the configuration loader at the test overlay.
func SetupOS() (err error) {
	if err = os.Setenv(cloud.EnvConfigFilePrefix, ConfigDir()); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads configs/.env.toml plus configs/.env.test.toml once.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	return state.config
}

// LocalConfig returns a copy of the test configuration whose directories all
// live under a fresh temporary directory.
func LocalConfig(t *testing.T) *cloud.Config {
	t.Helper()
	config := *GetConfig()
	dir := t.TempDir()
	config.Pipeline.ScratchDir = filepath.Join(dir, "scratch")
	config.Storage.OutputDir = filepath.Join(dir, "videos")
	config.Storage.FSRoot = filepath.Join(dir, "blobs")
	config.Catalog.SQLitePath = filepath.Join(dir, "catalog.db")
	config.Application.GoogleProjectId = ""
	config.Storage.S3Bucket = ""
	config.Storage.MirrorTarget = ""
	config.TopicSubscriptions = map[string]cloud.TopicSubscription{}
	return &config
}

// GetTestManifestNotification is a GCS finalize notification for an assembly
// manifest uploaded to the request bucket.
func GetTestManifestNotification() string {
	return `{
  "kind": "storage#object",
  "id": "media_assembly_requests/requests/trip-001.json/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/media_assembly_requests/o/requests%2Ftrip-001.json",
  "name": "requests/trip-001.json",
  "bucket": "media_assembly_requests",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "application/json",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "512",
  "metadata": { "touch": "1" }
}`
}
