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

// Package services holds the artifact catalog implementations and the
// artifact lookup / signed URL service used by the HTTP layer.
package services

const (
	// QryFindArtifactById looks up one artifact row in BigQuery. The table
	// name is injected with fmt; the id is bound as the @id parameter.
	QryFindArtifactById = "SELECT * FROM `%s` WHERE id = @id LIMIT 1"

	sqliteInsertArtifact = `INSERT INTO artifacts
		(id, operation, parent_id, locator, local_path, remote_locator, duration_seconds, create_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteFindArtifactById = `SELECT id, operation, parent_id, locator, local_path, remote_locator, duration_seconds, create_date
		FROM artifacts WHERE id = ?`

	sqliteFindChildren = `SELECT id FROM artifacts WHERE parent_id = ? ORDER BY create_date`
)
