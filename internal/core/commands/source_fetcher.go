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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
)

// SourceFetcher makes a media source available as a local file. Local files
// must already live inside one of the allowed roots (the published output
// directory) or the session; inline and remote sources are written into the
// scratch session.
type SourceFetcher struct {
	cor.BaseCommand
	blobs        cloud.BlobStore
	allowedRoots []string
	baseName     string
	recordParent bool
}

// NewSourceFetcher reads a model.Source from inputParam and writes the local
// path to outputParam. When recordParent is set, the artifact id encoded in
// the source's file name is stored as the parent of whatever is produced next.
func NewSourceFetcher(
	name string,
	blobs cloud.BlobStore,
	inputParam string,
	outputParam string,
	baseName string,
	recordParent bool,
	allowedRoots ...string) *SourceFetcher {

	out := &SourceFetcher{
		BaseCommand:  *cor.NewBaseCommand(name),
		blobs:        blobs,
		allowedRoots: allowedRoots,
		baseName:     baseName,
		recordParent: recordParent,
	}
	out.InputParamName = inputParam
	out.OutputParamName = outputParam
	return out
}

func (f *SourceFetcher) Execute(chCtx cor.Context) {
	ctx := chCtx.GetContext()
	src := chCtx.Get(f.GetInputParam()).(model.Source)
	session, err := SessionOf(chCtx)
	if err != nil {
		f.Fail(chCtx, err)
		return
	}

	var local string
	switch src.Kind {
	case model.SourceLocalFile:
		local, err = f.local(session, src.Path)
	case model.SourceInline:
		local, err = f.write(session, bytes.NewReader(src.Data))
	case model.SourceRemote:
		local, err = f.download(ctx, session, src.Locator)
	default:
		err = model.Errorf(model.KindValidation, "fetch source", "empty source")
	}
	if err != nil {
		f.Fail(chCtx, err)
		return
	}

	if f.recordParent {
		if id, ok := ArtifactIdFromName(sourceName(src)); ok {
			chCtx.Add(ParamParentId, id)
		}
	}
	f.Log.InfoContext(ctx, "source ready", "source", src.String(), "path", local)
	f.Succeeded(ctx)
	chCtx.Add(f.GetOutputParam(), local)
}

func (f *SourceFetcher) local(session *scratch.Session, p string) (string, error) {
	p = filepath.Clean(p)
	if !session.Contains(p) && !within(f.allowedRoots, p) {
		return "", model.Errorf(model.KindValidation, "fetch source", "%s is outside the artifact directory", p)
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", model.NewError(model.KindNotFound, "fetch source", err)
		}
		return "", model.NewError(model.KindInternal, "fetch source", err)
	}
	if info.IsDir() {
		return "", model.Errorf(model.KindValidation, "fetch source", "%s is a directory", p)
	}
	return p, nil
}

func (f *SourceFetcher) download(ctx context.Context, session *scratch.Session, locator string) (string, error) {
	if f.blobs == nil {
		return "", model.Errorf(model.KindInternal, "fetch source", "no blob store configured")
	}
	obj, err := f.blobs.Open(ctx, locator)
	if err != nil {
		return "", err
	}
	defer obj.Body.Close()
	return f.write(session, obj.Body)
}

// write copies r into the session and names the file after its detected type
// so the engine never has to guess the container.
func (f *SourceFetcher) write(session *scratch.Session, r io.Reader) (string, error) {
	p := session.Path(f.baseName)
	file, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", model.NewError(model.KindInternal, "fetch source", err)
	}
	written, err := io.Copy(file, r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", model.NewError(model.KindTransientIO, "fetch source", fmt.Errorf("%d bytes written: %w", written, err))
	}
	if written == 0 {
		return "", model.Errorf(model.KindValidation, "fetch source", "source is empty")
	}

	kind, _ := filetype.MatchFile(p)
	if kind == filetype.Unknown {
		return p, nil
	}
	named := p + "." + kind.Extension
	if err := os.Rename(p, named); err != nil {
		return "", model.NewError(model.KindInternal, "fetch source", err)
	}
	return named, nil
}

func sourceName(src model.Source) string {
	switch src.Kind {
	case model.SourceLocalFile:
		return filepath.Base(src.Path)
	case model.SourceRemote:
		return src.Locator[strings.LastIndex(src.Locator, "/")+1:]
	default:
		return ""
	}
}

func within(roots []string, p string) bool {
	for _, root := range roots {
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
