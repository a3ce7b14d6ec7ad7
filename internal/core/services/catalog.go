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

package services

import (
	"context"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// Catalog records produced artifacts and their lineage. Put never updates an
// existing row; artifacts are immutable.
type Catalog interface {
	Put(ctx context.Context, rec *model.ArtifactRecord) error
	// Get fails with NotFound for an unknown id.
	Get(ctx context.Context, id string) (*model.ArtifactRecord, error)
	Close() error
}

// NopCatalog is used when cataloging is disabled.
type NopCatalog struct{}

var _ Catalog = NopCatalog{}

func (NopCatalog) Put(context.Context, *model.ArtifactRecord) error { return nil }

func (NopCatalog) Get(_ context.Context, id string) (*model.ArtifactRecord, error) {
	return nil, model.Errorf(model.KindNotFound, "catalog-get", "artifact %s not found (catalog disabled)", id)
}

func (NopCatalog) Close() error { return nil }
