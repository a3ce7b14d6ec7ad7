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

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
)

// ArtifactPublisher moves the finished artifact out of scratch into the
// public output directory under a time-stamped name and assigns its locator.
// This is the only step that makes an output visible.
type ArtifactPublisher struct {
	cor.BaseCommand
	resolver   LocatorResolver
	namePrefix string
}

func NewArtifactPublisher(name string, resolver LocatorResolver, namePrefix string) *ArtifactPublisher {
	out := &ArtifactPublisher{BaseCommand: *cor.NewBaseCommand(name), resolver: resolver, namePrefix: namePrefix}
	out.InputParamName = ParamArtifact
	out.OutputParamName = ParamArtifact
	return out
}

// PublishedName is "<prefix>_<unix-ms>_<artifact-id>.mp4".
func PublishedName(prefix string, a *model.Artifact) string {
	return fmt.Sprintf("%s_%d_%s.mp4", prefix, a.CreatedAt.UnixMilli(), a.Id)
}

func (p *ArtifactPublisher) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	artifact := chCtx.Get(p.GetInputParam()).(*model.Artifact)

	name := PublishedName(p.namePrefix, artifact)
	dst := filepath.Join(p.resolver.OutputDir, name)
	if err := MoveFile(artifact.LocalPath, dst); err != nil {
		p.Fail(chCtx, err)
		return
	}
	artifact.LocalPath = dst
	artifact.Locator = p.resolver.PublicPath(name)
	SetState(chCtx, model.StateReady)

	p.Log.InfoContext(ctx, "artifact published", "artifact_id", artifact.Id, "operation", artifact.Operation, "locator", artifact.Locator)
	p.Succeeded(ctx, attribute.String("operation", string(artifact.Operation)))
	chCtx.Add(p.GetOutputParam(), artifact)
}

// MoveFile renames sourcePath to destPath. Across file systems it copies to a
// hidden partial file first so destPath only ever appears complete.
func MoveFile(sourcePath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return publishError(err)
	}
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	} else if !errors.Is(err, syscall.EXDEV) {
		return publishError(err)
	}

	partial := filepath.Join(filepath.Dir(destPath), "."+filepath.Base(destPath)+".partial")
	if err := copyFile(sourcePath, partial); err != nil {
		_ = os.Remove(partial)
		return publishError(err)
	}
	if err := os.Rename(partial, destPath); err != nil {
		_ = os.Remove(partial)
		return publishError(err)
	}
	return os.Remove(sourcePath)
}

func copyFile(sourcePath, destPath string) error {
	in, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("could not open source file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open dest file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("could not copy to dest from source: %w", err)
	}
	return out.Close()
}

func publishError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return model.NewError(model.KindDiskFull, "publish", err)
	}
	return model.NewError(model.KindInternal, "publish", err)
}
