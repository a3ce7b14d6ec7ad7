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
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteCatalog is the local artifact catalog.
type SQLiteCatalog struct {
	conn *sql.DB
	log  *slog.Logger
}

var _ Catalog = (*SQLiteCatalog)(nil)

func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	c := &SQLiteCatalog{conn: conn, log: slog.Default().With("component", "catalog", "driver", "sqlite")}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) migrate() error {
	if _, err := c.conn.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return err
	}
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		var applied int
		err := c.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", m.Name()).Scan(&applied)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		content, err := migrationsFS.ReadFile("migrations/" + m.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.Name(), err)
		}
		if _, err := c.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Name(), err)
		}
		if _, err := c.conn.Exec("INSERT INTO _migrations (name, applied_at) VALUES (?, ?)", m.Name(), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.Name(), err)
		}
		c.log.Info("applied migration", "name", m.Name())
	}
	return nil
}

func (c *SQLiteCatalog) Close() error {
	return c.conn.Close()
}

func (c *SQLiteCatalog) Put(ctx context.Context, rec *model.ArtifactRecord) error {
	_, err := c.conn.ExecContext(ctx, sqliteInsertArtifact,
		rec.Id,
		rec.Operation,
		nullString(rec.ParentId),
		rec.Locator,
		rec.LocalPath,
		nullString(rec.RemoteLocator),
		nullFloat(rec.DurationSeconds),
		rec.CreateDate.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.NewError(model.KindInternal, "catalog-put", err)
	}
	return nil
}

func (c *SQLiteCatalog) Get(ctx context.Context, id string) (*model.ArtifactRecord, error) {
	var (
		rec                     model.ArtifactRecord
		parent, remote, created sql.NullString
		duration                sql.NullFloat64
	)
	err := c.conn.QueryRowContext(ctx, sqliteFindArtifactById, id).Scan(
		&rec.Id, &rec.Operation, &parent, &rec.Locator, &rec.LocalPath, &remote, &duration, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "catalog-get", "artifact %s not found", id)
	}
	if err != nil {
		return nil, model.NewError(model.KindInternal, "catalog-get", err)
	}
	rec.ParentId = bigquery.NullString{StringVal: parent.String, Valid: parent.Valid}
	rec.RemoteLocator = bigquery.NullString{StringVal: remote.String, Valid: remote.Valid}
	rec.DurationSeconds = bigquery.NullFloat64{Float64: duration.Float64, Valid: duration.Valid}
	if rec.CreateDate, err = time.Parse(time.RFC3339Nano, created.String); err != nil {
		return nil, model.NewError(model.KindInternal, "catalog-get", err)
	}
	return &rec, nil
}

// Children lists the ids of artifacts derived directly from id.
func (c *SQLiteCatalog) Children(ctx context.Context, id string) ([]string, error) {
	rows, err := c.conn.QueryContext(ctx, sqliteFindChildren, id)
	if err != nil {
		return nil, model.NewError(model.KindInternal, "catalog-children", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, model.NewError(model.KindInternal, "catalog-children", err)
		}
		out = append(out, child)
	}
	return out, rows.Err()
}

func nullString(v bigquery.NullString) sql.NullString {
	return sql.NullString{String: v.StringVal, Valid: v.Valid}
}

func nullFloat(v bigquery.NullFloat64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Float64, Valid: v.Valid}
}
