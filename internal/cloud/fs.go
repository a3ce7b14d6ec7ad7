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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const FSScheme = "fs"

// FSStore keeps blobs under a local root directory. Locators look like
// fs://<key>; keys never escape the root.
type FSStore struct {
	root string
}

var _ BlobStore = (*FSStore)(nil)

func NewFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root %s: %w", abs, err)
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) Scheme() string { return FSScheme }

func (s *FSStore) Root() string { return s.root }

func (s *FSStore) path(locator string) (string, error) {
	key := strings.TrimPrefix(locator, FSScheme+"://")
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if p != s.root && !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return "", model.Errorf(model.KindValidation, "fs", "key %q escapes the store root", key)
	}
	return p, nil
}

func (s *FSStore) Open(ctx context.Context, locator string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.NewError(model.KindCanceled, "fs-open", err)
	}
	p, err := s.path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewError(model.KindNotFound, "fs-open", err)
		}
		return nil, model.NewError(model.KindTransientIO, "fs-open", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, model.Errorf(model.KindNotFound, "fs-open", "%s is not a regular file", locator)
	}
	return &Object{Body: f, ContentType: mime.TypeByExtension(filepath.Ext(p)), Size: info.Size()}, nil
}

func (s *FSStore) Store(ctx context.Context, r io.Reader, keyHint string, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", model.NewError(model.KindCanceled, "fs-store", err)
	}
	key := UniqueKey("", keyHint)
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", storeError("fs-store", err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", storeError("fs-store", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", storeError("fs-store", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", storeError("fs-store", err)
	}
	return FSScheme + "://" + key, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return model.NewError(model.KindStorageFull, op, err)
	}
	return model.NewError(model.KindTransientIO, op, err)
}
