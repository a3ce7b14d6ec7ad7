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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

const S3Scheme = "s3"

// S3Store is the BlobStore for s3:// locators. Bare keys resolve against the
// configured bucket, which is also where Store writes.
type S3Store struct {
	client *s3.Client
	bucket string
}

var _ BlobStore = (*S3Store)(nil)

// NewS3Store loads the default AWS credential chain. A non-empty endpoint
// points the client at an S3 compatible service.
func NewS3Store(ctx context.Context, cfg Storage) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return &S3Store{client: client, bucket: cfg.S3Bucket}, nil
}

func (s *S3Store) Scheme() string { return S3Scheme }

func (s *S3Store) location(locator string) (string, string, error) {
	scheme, bucket, key := splitLocator(locator)
	if scheme == "" {
		bucket = s.bucket
	} else if scheme != S3Scheme {
		return "", "", model.Errorf(model.KindValidation, "s3", "not an s3:// locator: %q", locator)
	}
	if bucket == "" || key == "" {
		return "", "", model.Errorf(model.KindValidation, "s3", "incomplete locator %q", locator)
	}
	return bucket, key, nil
}

func (s *S3Store) Open(ctx context.Context, locator string) (*Object, error) {
	bucket, key, err := s.location(locator)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3Error("s3-open", err)
	}
	return &Object{Body: out.Body, ContentType: aws.ToString(out.ContentType), Size: aws.ToInt64(out.ContentLength)}, nil
}

func (s *S3Store) Store(ctx context.Context, r io.Reader, keyHint string, contentType string) (string, error) {
	if s.bucket == "" {
		return "", model.Errorf(model.KindInternal, "s3-store", "no bucket configured")
	}
	// the SDK needs a seekable body to sign the payload.
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", model.NewError(model.KindTransientIO, "s3-store", err)
		}
		body = bytes.NewReader(data)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := UniqueKey("", keyHint)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s3Error("s3-store", err)
	}
	return fmt.Sprintf("%s://%s/%s", S3Scheme, s.bucket, key), nil
}

func s3Error(op string, err error) error {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return model.NewError(model.KindNotFound, op, err)
	}
	return model.NewError(model.KindTransientIO, op, err)
}
