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

// Package workflow_test runs the workflows end to end against the local blob
// store, a SQLite catalog and a scripted engine.
package workflow_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/workflow"
	"github.com/jaycherian/gcp-go-media-assembly/internal/telemetry"
	test "github.com/jaycherian/gcp-go-media-assembly/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const tName = "github.com/jaycherian/gcp-go-media-assembly/tests/workflow"

var (
	ctx    context.Context
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())

	config := test.GetConfig()
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		panic(err)
	}
	logger.Info("completed test setup")

	exitCode := m.Run()

	_ = shutdown(ctx)
	cancel()
	os.Exit(exitCode)
}

// harness is one isolated set of workflows over temporary directories.
type harness struct {
	config  *cloud.Config
	fs      *cloud.FSStore
	engine  *test.FakeEngine
	scratch *scratch.Manager
	catalog *services.SQLiteCatalog
	deps    *workflow.Dependencies
}

func newHarness(t *testing.T, tweak ...func(*cloud.Config)) *harness {
	t.Helper()
	config := test.LocalConfig(t)
	for _, fn := range tweak {
		fn(config)
	}

	fs, err := cloud.NewFSStore(config.Storage.FSRoot)
	require.NoError(t, err)
	mgr, err := scratch.NewManager(config.Pipeline.ScratchDir)
	require.NoError(t, err)
	catalog, err := services.NewSQLiteCatalog(config.Catalog.SQLitePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	eng := test.NewFakeEngine()
	clients := &cloud.ServiceClients{FSStore: fs, Blobs: cloud.NewBlobRouter(fs)}
	deps, err := workflow.NewDependencies(config, clients, eng, mgr, catalog)
	require.NoError(t, err)

	return &harness{config: config, fs: fs, engine: eng, scratch: mgr, catalog: catalog, deps: deps}
}

// put stores data in the local blob store and returns its locator.
func (h *harness) put(t *testing.T, name string, data []byte) string {
	t.Helper()
	locator, err := h.fs.Store(context.Background(), bytes.NewReader(data), name, "")
	require.NoError(t, err)
	return locator
}

// scratchEntries lists what is left in the scratch root.
func (h *harness) scratchEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(h.scratch.Root())
	require.NoError(t, err)
	return entries
}

func (h *harness) outputEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(h.deps.Resolver.OutputDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
