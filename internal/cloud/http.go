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
	"net/http"
	"time"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const HTTPScheme = "http"

// HTTPStore fetches http:// and https:// locators. It is read only.
type HTTPStore struct {
	client *http.Client
}

var _ BlobStore = (*HTTPStore)(nil)

func NewHTTPStore(timeout time.Duration) *HTTPStore {
	return &HTTPStore{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPStore) Scheme() string { return HTTPScheme }

func (s *HTTPStore) Open(ctx context.Context, locator string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "http-open", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, model.NewError(model.KindTransientIO, "http-open", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		kind := model.KindNotFound
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			kind = model.KindTransientIO
		}
		return nil, model.Errorf(kind, "http-open", "GET %s: %s", locator, resp.Status)
	}
	return &Object{Body: resp.Body, ContentType: resp.Header.Get("Content-Type"), Size: resp.ContentLength}, nil
}

func (s *HTTPStore) Store(context.Context, io.Reader, string, string) (string, error) {
	return "", model.NewError(model.KindInternal, "http-store", fmt.Errorf("http store is read only"))
}
