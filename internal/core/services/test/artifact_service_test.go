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

package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/services"
	"github.com/zeebo/assert"
)

func TestArtifactService(t *testing.T) {
	ctx := context.Background()
	catalog, err := services.NewSQLiteCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	assert.NoError(t, err)
	defer catalog.Close()

	local := &model.Artifact{
		Id: "local", Operation: model.OpAssemble, Locator: "/videos/video_1_local.mp4",
		LocalPath: "/srv/videos/video_1_local.mp4", CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	mirrored := &model.Artifact{
		Id: "mirrored", Operation: model.OpOverlay, ParentId: "local", Locator: "/videos/overlay_2_mirrored.mp4",
		LocalPath: "/srv/videos/overlay_2_mirrored.mp4", RemoteLocator: "gs://out/artifacts/mirrored.mp4",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	assert.NoError(t, catalog.Put(ctx, model.NewArtifactRecord(local)))
	assert.NoError(t, catalog.Put(ctx, model.NewArtifactRecord(mirrored)))

	svc := &services.ArtifactService{Catalog: catalog, SignedURLTTL: time.Minute}

	got, err := svc.Get(ctx, "mirrored")
	assert.NoError(t, err)
	assert.Equal(t, got.ParentId, "local")
	assert.Equal(t, got.RemoteLocator, "gs://out/artifacts/mirrored.mp4")

	_, err = svc.Get(ctx, "missing")
	assert.That(t, model.IsKind(err, model.KindNotFound))

	// no mirrored copy to sign
	_, _, err = svc.SignedURL(ctx, "local")
	assert.That(t, model.IsKind(err, model.KindNotFound))

	// mirrored, but no storage client configured
	_, _, err = svc.SignedURL(ctx, "mirrored")
	assert.That(t, model.IsKind(err, model.KindInternal))
}

func TestNopCatalog(t *testing.T) {
	svc := &services.ArtifactService{Catalog: services.NopCatalog{}}
	_, err := svc.Get(context.Background(), "anything")
	assert.That(t, model.IsKind(err, model.KindNotFound))
}
