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
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// ArtifactService answers artifact lookups for the HTTP layer and signs
// download URLs for artifacts mirrored to Cloud Storage.
type ArtifactService struct {
	Catalog       Catalog
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string
	SignedURLTTL  time.Duration
}

func (s *ArtifactService) Get(ctx context.Context, id string) (*model.Artifact, error) {
	rec, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Artifact(), nil
}

// SignedURL returns a V4 signed GET URL for the mirrored copy of artifact id.
func (s *ArtifactService) SignedURL(ctx context.Context, id string) (string, time.Time, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if a.RemoteLocator == "" {
		return "", time.Time{}, model.Errorf(model.KindNotFound, "signed-url", "artifact %s has no mirrored copy", id)
	}
	expires := time.Now().Add(s.SignedURLTTL)
	u, err := s.GenerateSignedURL(ctx, a.RemoteLocator, expires)
	return u, expires, err
}

// GenerateSignedURL signs a gs:// locator. When a signer service account is
// configured the signature comes from the IAM credentials API; otherwise the
// storage client signs with its own credentials.
func (s *ArtifactService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Time) (string, error) {
	if s.StorageClient == nil {
		return "", model.Errorf(model.KindInternal, "signed-url", "cloud storage is not configured")
	}
	bucketName, objectName, ok := cloud.SplitGCSLocator(gcsURI)
	if !ok {
		return "", model.Errorf(model.KindValidation, "signed-url", "not a gs:// locator: %s", gcsURI)
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	}
	if s.SignerEmail != "" && s.IAMClient != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = func(b []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", model.NewError(model.KindInternal, "signed-url", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", bucketName, objectName, err))
	}
	return u, nil
}
