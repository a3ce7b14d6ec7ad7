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
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"google.golang.org/api/iterator"
)

// BigQueryCatalog stores artifact rows in a BigQuery table through the
// streaming inserter.
type BigQueryCatalog struct {
	client      *bigquery.Client
	datasetName string
	tableName   string
}

var _ Catalog = (*BigQueryCatalog)(nil)

func NewBigQueryCatalog(client *bigquery.Client, datasetName, tableName string) *BigQueryCatalog {
	return &BigQueryCatalog{client: client, datasetName: datasetName, tableName: tableName}
}

// GetFQN returns the project.dataset.table name usable in standard SQL.
func (c *BigQueryCatalog) GetFQN() string {
	fqn := c.client.Dataset(c.datasetName).Table(c.tableName).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", 1)
}

func (c *BigQueryCatalog) Put(ctx context.Context, rec *model.ArtifactRecord) error {
	inserter := c.client.Dataset(c.datasetName).Table(c.tableName).Inserter()
	if err := inserter.Put(ctx, rec); err != nil {
		return model.NewError(model.KindTransientIO, "catalog-put", err)
	}
	return nil
}

func (c *BigQueryCatalog) Get(ctx context.Context, id string) (*model.ArtifactRecord, error) {
	q := c.client.Query(fmt.Sprintf(QryFindArtifactById, c.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, model.NewError(model.KindTransientIO, "catalog-get", err)
	}
	rec := &model.ArtifactRecord{}
	err = itr.Next(rec)
	if errors.Is(err, iterator.Done) {
		return nil, model.Errorf(model.KindNotFound, "catalog-get", "artifact %s not found", id)
	}
	if err != nil {
		return nil, model.NewError(model.KindTransientIO, "catalog-get", err)
	}
	return rec, nil
}

func (c *BigQueryCatalog) Close() error { return nil }
