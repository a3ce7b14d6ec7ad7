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
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ServiceClients owns the remote clients and the blob store gateway. Google
// Cloud clients are only created when a project id is configured; the S3
// store only when a bucket is configured.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient
	FSStore         *FSStore
	GCSStore        *GCSStore
	S3Store         *S3Store
	Blobs           *BlobRouter
	Mirror          BlobStore
	PubSubListeners map[string]*PubSubListener
}

func (c *ServiceClients) Close() {
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	log := slog.Default().With("component", "cloud")
	clients := &ServiceClients{PubSubListeners: make(map[string]*PubSubListener)}
	cloud = clients
	defer func() {
		if err != nil {
			clients.Close()
		}
	}()

	if cloud.FSStore, err = NewFSStore(config.Storage.FSRoot); err != nil {
		return nil, err
	}
	rps := config.Storage.RequestsPerSecond
	httpStore := NewQuotaAwareStore(NewHTTPStore(time.Duration(config.Storage.HTTPTimeoutSeconds)*time.Second), rps)

	var remote []BlobStore
	if projectID := config.Application.GoogleProjectId; projectID != "" {
		var opts []option.ClientOption
		if config.Storage.GCSEndpoint != "" {
			opts = append(opts, option.WithEndpoint(config.Storage.GCSEndpoint))
		}
		if cloud.StorageClient, err = storage.NewClient(ctx, opts...); err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, projectID); err != nil {
			return nil, fmt.Errorf("creating pubsub client: %w", err)
		}
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, projectID); err != nil {
			return nil, fmt.Errorf("creating bigquery client: %w", err)
		}
		if config.Application.SignerServiceAccountEmail != "" {
			if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
				return nil, fmt.Errorf("creating iam credentials client: %w", err)
			}
		}
		cloud.GCSStore = NewGCSStore(cloud.StorageClient, config.Storage.GCSInputBucket, config.Storage.GCSOutputBucket)
		remote = append(remote, NewQuotaAwareStore(cloud.GCSStore, rps))
		log.Info("google cloud clients ready", "project", projectID, "location", config.Application.GoogleLocation)
	}

	if config.Storage.S3Bucket != "" {
		if cloud.S3Store, err = NewS3Store(ctx, config.Storage); err != nil {
			return nil, err
		}
		remote = append(remote, NewQuotaAwareStore(cloud.S3Store, rps))
		log.Info("s3 store ready", "bucket", config.Storage.S3Bucket)
	}

	cloud.Blobs = NewBlobRouter(cloud.FSStore, append(remote, httpStore)...)
	def, ok := cloud.Blobs.Lookup(config.Storage.DefaultStore)
	if !ok {
		return nil, fmt.Errorf("default store %q is not configured", config.Storage.DefaultStore)
	}
	cloud.Blobs.def = def

	if target := config.Storage.MirrorTarget; target != "" {
		mirror, ok := cloud.Blobs.Lookup(target)
		if !ok {
			return nil, fmt.Errorf("mirror target %q is not configured", target)
		}
		cloud.Mirror = mirror
	}

	for subKey, values := range config.TopicSubscriptions {
		if cloud.PubsubClient == nil {
			log.Warn("skipping subscription, no google project configured", "subscription", subKey)
			continue
		}
		listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
		if err != nil {
			return nil, err
		}
		if values.TimeoutInSeconds > 0 {
			listener.SetTimeout(time.Duration(values.TimeoutInSeconds) * time.Second)
		}
		cloud.PubSubListeners[subKey] = listener
	}

	return cloud, nil
}
