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

package model

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ArtifactRecord is the catalog row for an Artifact. The bigquery tags are
// used by the BigQuery inserter and the column names are shared with the
// SQLite catalog.
type ArtifactRecord struct {
	Id              string               `json:"id" bigquery:"id"`
	Operation       string               `json:"operation" bigquery:"operation"`
	ParentId        bigquery.NullString  `json:"parent_id" bigquery:"parent_id"`
	Locator         string               `json:"locator" bigquery:"locator"`
	LocalPath       string               `json:"local_path" bigquery:"local_path"`
	RemoteLocator   bigquery.NullString  `json:"remote_locator" bigquery:"remote_locator"`
	DurationSeconds bigquery.NullFloat64 `json:"duration_seconds" bigquery:"duration_seconds"`
	CreateDate      time.Time            `json:"create_date" bigquery:"create_date"`
}

func NewArtifactRecord(a *Artifact) *ArtifactRecord {
	r := &ArtifactRecord{
		Id:         a.Id,
		Operation:  string(a.Operation),
		Locator:    a.Locator,
		LocalPath:  a.LocalPath,
		CreateDate: a.CreatedAt,
	}
	if a.ParentId != "" {
		r.ParentId = bigquery.NullString{StringVal: a.ParentId, Valid: true}
	}
	if a.RemoteLocator != "" {
		r.RemoteLocator = bigquery.NullString{StringVal: a.RemoteLocator, Valid: true}
	}
	if a.DurationSeconds != nil {
		r.DurationSeconds = bigquery.NullFloat64{Float64: *a.DurationSeconds, Valid: true}
	}
	return r
}

// Artifact converts the row back into the in-memory form.
func (r *ArtifactRecord) Artifact() *Artifact {
	a := &Artifact{
		Id:            r.Id,
		Operation:     Operation(r.Operation),
		ParentId:      r.ParentId.StringVal,
		Locator:       r.Locator,
		LocalPath:     r.LocalPath,
		RemoteLocator: r.RemoteLocator.StringVal,
		CreatedAt:     r.CreateDate,
	}
	if r.DurationSeconds.Valid {
		d := r.DurationSeconds.Float64
		a.DurationSeconds = &d
	}
	return a
}
