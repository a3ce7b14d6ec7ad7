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
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// LocatorResolver maps the video and audio references clients send back into
// sources. Published artifacts are addressed by their public path, optionally
// prefixed with the public base URL, or by their absolute local path.
type LocatorResolver struct {
	OutputDir     string
	PublicPrefix  string
	PublicBaseURL string
}

func (r LocatorResolver) Resolve(raw string) (model.Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Source{}, model.Errorf(model.KindValidation, "resolve", "empty locator")
	}
	if base := strings.TrimRight(r.PublicBaseURL, "/"); base != "" && strings.HasPrefix(raw, base+"/") {
		raw = strings.TrimPrefix(raw, base)
	}

	prefix := "/" + strings.Trim(r.PublicPrefix, "/") + "/"
	if strings.HasPrefix(raw, prefix) {
		name := path.Clean("/" + strings.TrimPrefix(raw, prefix))
		if name == "/" || strings.Contains(raw[len(prefix):], "..") {
			return model.Source{}, model.Errorf(model.KindValidation, "resolve", "invalid artifact path %q", raw)
		}
		return model.LocalFile(filepath.Join(r.OutputDir, filepath.FromSlash(name))), nil
	}

	if filepath.IsAbs(raw) {
		p := filepath.Clean(raw)
		if !within([]string{r.OutputDir}, p) {
			return model.Source{}, model.Errorf(model.KindValidation, "resolve", "%s is outside the artifact directory", raw)
		}
		return model.LocalFile(p), nil
	}

	return model.ParseSource(raw)
}

// PublicPath is the server relative path a published file is served under.
func (r LocatorResolver) PublicPath(name string) string {
	return path.Join("/", r.PublicPrefix, name)
}

// ArtifactIdFromName recovers the artifact id from an output file name such
// as "trimmed_1712345678901_<uuid>.mp4", or from a mirrored object name such
// as "<uuid>-<uuid>.mp4" where the id is the trailing uuid.
func ArtifactIdFromName(name string) (string, bool) {
	name = strings.TrimSuffix(name, path.Ext(name))
	const idLen = 36
	if len(name) < idLen {
		return "", false
	}
	head, tail := name[:len(name)-idLen], name[len(name)-idLen:]
	if head != "" && !strings.HasSuffix(head, "_") && !strings.HasSuffix(head, "-") {
		return "", false
	}
	id, err := uuid.Parse(tail)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
