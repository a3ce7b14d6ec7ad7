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

package commands_test

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
	test "github.com/jaycherian/gcp-go-media-assembly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactIdFromName(t *testing.T) {
	id := uuid.NewString()
	a := &model.Artifact{Id: id, CreatedAt: time.UnixMilli(1712345678901)}

	name := commands.PublishedName("trimmed", a)
	assert.Equal(t, "trimmed_1712345678901_"+id+".mp4", name)

	got, ok := commands.ArtifactIdFromName(name)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	// mirrored objects are stored as <unique>-<artifact id>.mp4
	mirrored := "artifacts/" + uuid.NewString() + "-" + id + ".mp4"
	got, ok = commands.ArtifactIdFromName(path.Base(mirrored))
	assert.True(t, ok, mirrored)
	assert.Equal(t, id, got)

	got, ok = commands.ArtifactIdFromName(id + ".mp4")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	for _, bad := range []string{"video.mp4", "video_123.mp4", "", "clip_not-a-uuid.mp4", "x" + id + ".mp4"} {
		_, ok := commands.ArtifactIdFromName(bad)
		assert.False(t, ok, bad)
	}
}

func TestLocatorResolver(t *testing.T) {
	r := commands.LocatorResolver{OutputDir: "/srv/public/videos", PublicPrefix: "/videos", PublicBaseURL: "https://media.example.com"}

	src, err := r.Resolve("/videos/video_1_x.mp4")
	require.NoError(t, err)
	assert.Equal(t, model.LocalFile("/srv/public/videos/video_1_x.mp4"), src)

	src, err = r.Resolve("https://media.example.com/videos/video_1_x.mp4")
	require.NoError(t, err)
	assert.Equal(t, model.LocalFile("/srv/public/videos/video_1_x.mp4"), src)

	src, err = r.Resolve("/srv/public/videos/video_1_x.mp4")
	require.NoError(t, err)
	assert.Equal(t, model.SourceLocalFile, src.Kind)

	src, err = r.Resolve("gs://bucket/clips/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, model.Remote("gs://bucket/clips/a.mp4"), src)

	_, err = r.Resolve("  ")
	assert.True(t, model.IsKind(err, model.KindValidation))
	_, err = r.Resolve("/srv/public/other/a.mp4")
	assert.True(t, model.IsKind(err, model.KindValidation))

	assert.Equal(t, "/videos/a.mp4", r.PublicPath("a.mp4"))
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scratch", "out.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o600))

	dst := filepath.Join(dir, "public", "videos", "video_1_a.mp4")
	require.NoError(t, commands.MoveFile(src, dst))
	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))

	err = commands.MoveFile(filepath.Join(dir, "missing.mp4"), dst)
	assert.True(t, model.IsKind(err, model.KindInternal), "got %v", err)
}

func TestAssemblyRequestReader(t *testing.T) {
	reader := commands.NewAssemblyRequestReader("reader", nil)

	chCtx := cor.NewBaseContextWith(context.Background())
	chCtx.Add(cor.CtxIn, `{"albums":[{"title":"t","coverImage":"fs://c.jpg","images":[{"uri":"fs://a.jpg","timestamp":"2024-01-01"}]}]}`)
	require.True(t, reader.IsExecutable(chCtx))
	reader.Execute(chCtx)
	require.NoError(t, chCtx.Err())
	req := chCtx.Get(commands.ParamRequest).(*model.AssemblyRequest)
	require.Len(t, req.Albums, 1)
	assert.Equal(t, "fs://a.jpg", req.Albums[0].Images[0].URI)

	bad := cor.NewBaseContextWith(context.Background())
	bad.Add(cor.CtxIn, "{not json")
	reader.Execute(bad)
	assert.True(t, model.IsKind(bad.Err(), model.KindValidation))

	// notifications need a store to read the manifest from
	notify := cor.NewBaseContextWith(context.Background())
	notify.Add(cor.CtxIn, test.GetTestManifestNotification())
	reader.Execute(notify)
	assert.True(t, model.IsKind(notify.Err(), model.KindInternal))
}

func TestFrameStagerKeepsSlotOrder(t *testing.T) {
	mgr, err := scratch.NewManager(t.TempDir())
	require.NoError(t, err)
	session, err := mgr.Begin()
	require.NoError(t, err)
	defer session.End()

	// slots complete out of order and slot 1 was skipped
	p2, err := session.WritePending(2, []byte("two"))
	require.NoError(t, err)
	p0, err := session.WritePending(0, []byte("zero"))
	require.NoError(t, err)

	chCtx := cor.NewBaseContextWith(context.Background())
	chCtx.Add(commands.ParamSession, session)
	chCtx.Add(commands.ParamPending, []string{p0, "", p2})

	stager := commands.NewFrameStager("stager")
	require.True(t, stager.IsExecutable(chCtx))
	stager.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	staged := chCtx.Get(commands.ParamStaged).([]model.StagedFrame)
	require.Len(t, staged, 2)
	for i, want := range []string{"zero", "two"} {
		assert.Equal(t, i, staged[i].SequenceIndex)
		data, err := os.ReadFile(staged[i].LocalPath)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	empty := cor.NewBaseContextWith(context.Background())
	empty.Add(commands.ParamSession, session)
	empty.Add(commands.ParamPending, []string{"", ""})
	stager.Execute(empty)
	assert.True(t, model.IsKind(empty.Err(), model.KindEmptyInput))
}

func TestDurationProbeIsBestEffort(t *testing.T) {
	eng := test.NewFakeEngine()
	eng.ProbeErr = model.Errorf(model.KindProbeFailed, "probe", "corrupt")
	probe := commands.NewDurationProbe("probe", eng)

	chCtx := cor.NewBaseContextWith(context.Background())
	chCtx.Add(commands.ParamArtifact, &model.Artifact{Id: "a", LocalPath: "/nowhere.mp4"})
	probe.Execute(chCtx)
	assert.NoError(t, chCtx.Err())
	assert.Nil(t, commands.ArtifactOf(chCtx).DurationSeconds)

	eng.ProbeErr = nil
	probe.Execute(chCtx)
	require.NotNil(t, commands.ArtifactOf(chCtx).DurationSeconds)
	assert.Equal(t, 10.0, *commands.ArtifactOf(chCtx).DurationSeconds)
}
