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
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"google.golang.org/api/googleapi"
)

const GCSScheme = "gs"

// GCSObjectNotification is the subset of a Cloud Storage Pub/Sub
// notification payload the service reads. A finalized request manifest in
// the watched bucket triggers an assembly run.
type GCSObjectNotification struct {
	Kind        string            `json:"kind"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Bucket      string            `json:"bucket"`
	Generation  string            `json:"generation"`
	ContentType string            `json:"contentType"`
	TimeCreated string            `json:"timeCreated"`
	Size        string            `json:"size"`
	MetaData    map[string]string `json:"metadata"`
}

// Locator returns the gs:// locator of the notified object.
func (n *GCSObjectNotification) Locator() string {
	return fmt.Sprintf("%s://%s/%s", GCSScheme, n.Bucket, n.Name)
}

// GCSStore reads from any bucket and writes to a single output bucket.
// Bare keys are resolved against the input bucket.
type GCSStore struct {
	client       *storage.Client
	inputBucket  string
	outputBucket string
}

var _ BlobStore = (*GCSStore)(nil)

func NewGCSStore(client *storage.Client, inputBucket, outputBucket string) *GCSStore {
	return &GCSStore{client: client, inputBucket: inputBucket, outputBucket: outputBucket}
}

func (s *GCSStore) Scheme() string { return GCSScheme }

func (s *GCSStore) object(locator string) (*storage.ObjectHandle, error) {
	scheme, bucket, key := splitLocator(locator)
	if scheme == "" {
		bucket = s.inputBucket
	} else if scheme != GCSScheme {
		return nil, model.Errorf(model.KindValidation, "gcs", "not a gs:// locator: %q", locator)
	}
	if bucket == "" || key == "" {
		return nil, model.Errorf(model.KindValidation, "gcs", "incomplete locator %q", locator)
	}
	return s.client.Bucket(bucket).Object(key), nil
}

func (s *GCSStore) Open(ctx context.Context, locator string) (*Object, error) {
	obj, err := s.object(locator)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, gcsError("gcs-open", err)
	}
	return &Object{Body: r, ContentType: r.Attrs.ContentType, Size: r.Attrs.Size}, nil
}

func (s *GCSStore) Store(ctx context.Context, r io.Reader, keyHint string, contentType string) (string, error) {
	if s.outputBucket == "" {
		return "", model.Errorf(model.KindInternal, "gcs-store", "no output bucket configured")
	}
	key := UniqueKey("", keyHint)
	obj := s.client.Bucket(s.outputBucket).Object(key).If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", gcsError("gcs-store", err)
	}
	if err := w.Close(); err != nil {
		return "", gcsError("gcs-store", err)
	}
	return fmt.Sprintf("%s://%s/%s", GCSScheme, s.outputBucket, key), nil
}

// SplitGCSLocator returns bucket and object name of a gs:// locator.
func SplitGCSLocator(locator string) (bucket, name string, ok bool) {
	scheme, bucket, name := splitLocator(locator)
	return bucket, name, scheme == GCSScheme && bucket != "" && name != ""
}

func gcsError(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return model.NewError(model.KindNotFound, op, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return model.NewError(model.KindNotFound, op, err)
		case http.StatusInsufficientStorage:
			return model.NewError(model.KindStorageFull, op, err)
		}
	}
	return model.NewError(model.KindTransientIO, op, err)
}
