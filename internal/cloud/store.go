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
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// Object is an opened blob. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore is the gateway to one object store. Locators are opaque strings
// produced by Store (or supplied by a client); a store also accepts a bare
// key relative to its default bucket or root.
//
// Open fails with NotFound when the locator does not resolve and TransientIO
// on transport failure. Store never overwrites: every call creates a new
// object under a unique key derived from keyHint and returns its locator.
type BlobStore interface {
	Scheme() string
	Open(ctx context.Context, locator string) (*Object, error)
	Store(ctx context.Context, r io.Reader, keyHint string, contentType string) (string, error)
}

// Fetch reads the whole object at locator into memory.
func Fetch(ctx context.Context, store BlobStore, locator string) ([]byte, string, error) {
	return FetchLimited(ctx, store, locator, 0)
}

// FetchLimited is Fetch with a cap on the object size. An object larger than
// maxBytes fails with a Validation error without being read past the cap.
// A maxBytes of zero or less reads without a cap.
func FetchLimited(ctx context.Context, store BlobStore, locator string, maxBytes int64) ([]byte, string, error) {
	obj, err := store.Open(ctx, locator)
	if err != nil {
		return nil, "", err
	}
	defer obj.Body.Close()
	if maxBytes > 0 && obj.Size > maxBytes {
		return nil, "", tooLarge(locator, maxBytes)
	}
	var body io.Reader = obj.Body
	if maxBytes > 0 {
		body = io.LimitReader(obj.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", model.NewError(model.KindTransientIO, "fetch", fmt.Errorf("reading %s: %w", locator, err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", tooLarge(locator, maxBytes)
	}
	return data, obj.ContentType, nil
}

func tooLarge(locator string, maxBytes int64) error {
	return model.Errorf(model.KindValidation, "fetch", "%s exceeds the %d byte limit", locator, maxBytes)
}

// UniqueKey turns a key hint such as "videos/out.mp4" into
// "videos/<uuid>-out.mp4".
func UniqueKey(prefix, keyHint string) string {
	keyHint = strings.TrimLeft(path.Clean("/"+keyHint), "/")
	dir, base := path.Split(keyHint)
	if base == "" || base == "." {
		base = "blob"
	}
	return strings.TrimLeft(path.Join(prefix, dir, uuid.NewString()+"-"+base), "/")
}

// splitLocator splits "<scheme>://<bucket>/<key>" into its parts. A locator
// without a scheme returns an empty scheme and bucket and the whole input as
// the key.
func splitLocator(locator string) (scheme, bucket, key string) {
	scheme, rest, ok := strings.Cut(locator, "://")
	if !ok {
		return "", "", strings.TrimLeft(locator, "/")
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return scheme, bucket, key
}

// BlobRouter dispatches locators to the store registered for their scheme.
// Bare keys go to the default store. Store writes to the default store.
type BlobRouter struct {
	stores map[string]BlobStore
	def    BlobStore
}

var _ BlobStore = (*BlobRouter)(nil)

func NewBlobRouter(def BlobStore, others ...BlobStore) *BlobRouter {
	r := &BlobRouter{stores: make(map[string]BlobStore), def: def}
	for _, s := range append([]BlobStore{def}, others...) {
		if s != nil {
			r.Register(s)
		}
	}
	return r
}

func (r *BlobRouter) Register(s BlobStore) {
	r.stores[s.Scheme()] = s
}

// Lookup returns the store registered for scheme, if any. "gcs" is accepted
// as an alias of "gs".
func (r *BlobRouter) Lookup(scheme string) (BlobStore, bool) {
	if scheme == "gcs" {
		scheme = GCSScheme
	}
	s, ok := r.stores[scheme]
	return s, ok
}

func (r *BlobRouter) Scheme() string {
	if r.def == nil {
		return ""
	}
	return r.def.Scheme()
}

func (r *BlobRouter) resolve(locator string) (BlobStore, error) {
	scheme, _, _ := splitLocator(locator)
	if scheme == "" {
		if r.def == nil {
			return nil, model.Errorf(model.KindValidation, "route", "no default store for bare key %q", locator)
		}
		return r.def, nil
	}
	if scheme == "https" {
		scheme = "http"
	}
	s, ok := r.stores[scheme]
	if !ok {
		return nil, model.Errorf(model.KindValidation, "route", "no store configured for scheme %q", scheme)
	}
	return s, nil
}

func (r *BlobRouter) Open(ctx context.Context, locator string) (*Object, error) {
	s, err := r.resolve(locator)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, locator)
}

func (r *BlobRouter) Store(ctx context.Context, rd io.Reader, keyHint string, contentType string) (string, error) {
	if r.def == nil {
		return "", model.Errorf(model.KindInternal, "store", "no default store configured")
	}
	return r.def.Store(ctx, rd, keyHint, contentType)
}
