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

// Package main contains the setup and initialization logic for the application's state.
// It loads configuration, creates the cloud clients and the transcoding
// engine, selects the artifact catalog, and starts the background workers
// (scratch janitor and Pub/Sub listeners).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/engine"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/workflow"
)

// StateManager holds the shared dependencies of the running server.
type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	catalog   services.Catalog
	deps      *workflow.Dependencies
	artifacts *services.ArtifactService
	janitor   *workflow.ScratchJanitor
}

var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory. The
// runtime overlay defaults to "local" unless GCP_RUNTIME is already set.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// NewCatalog opens the catalog selected by [catalog] driver.
func NewCatalog(config *cloud.Config, clients *cloud.ServiceClients) (services.Catalog, error) {
	switch config.Catalog.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(config.Catalog.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		return services.NewSQLiteCatalog(config.Catalog.SQLitePath)
	case "bigquery":
		if clients.BiqQueryClient == nil {
			return nil, fmt.Errorf("bigquery catalog needs application.google_project_id")
		}
		return services.NewBigQueryCatalog(
			clients.BiqQueryClient,
			config.BigQueryDataSource.DatasetName,
			config.BigQueryDataSource.ArtifactTable), nil
	case "", "none":
		return services.NopCatalog{}, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", config.Catalog.Driver)
	}
}

// InitState creates every client and service and starts the background
// workers. Background work stops when ctx is cancelled.
func InitState(ctx context.Context) error {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	eng, err := engine.NewSubprocess(engine.Config{
		FFMpegPath:    config.Engine.FFMpegPath,
		FFProbePath:   config.Engine.FFProbePath,
		MaxConcurrent: config.Engine.MaxConcurrent,
		Timeout:       config.Engine.Timeout(),
		Logger:        slog.Default().With("component", "engine"),
	})
	if err != nil {
		return err
	}

	scratchManager, err := scratch.NewManager(config.Pipeline.ScratchDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(config.Storage.OutputDir, 0o755); err != nil {
		return err
	}

	catalog, err := NewCatalog(config, cloudClients)
	if err != nil {
		return err
	}
	state.catalog = catalog

	state.deps, err = workflow.NewDependencies(config, cloudClients, eng, scratchManager, catalog)
	if err != nil {
		return err
	}
	state.artifacts = &services.ArtifactService{
		Catalog:       catalog,
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
		SignedURLTTL:  config.Storage.SignedURLTTL(),
	}

	state.janitor = workflow.NewScratchJanitor(scratchManager, config.Pipeline.ScratchMaxAge(), config.Pipeline.JanitorInterval())
	state.janitor.StartTimer()

	SetupListeners(config, cloudClients, state.deps, ctx)
	return nil
}

// CloseState releases what InitState opened.
func CloseState() {
	if state.janitor != nil {
		state.janitor.Stop()
	}
	if state.catalog != nil {
		if err := state.catalog.Close(); err != nil {
			slog.Warn("failed to close catalog", "error", err)
		}
	}
	if state.cloud != nil {
		state.cloud.Close()
	}
}
