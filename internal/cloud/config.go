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

// Package cloud holds configuration, the blob store gateway and the Google
// Cloud / AWS client plumbing shared by the rest of the service.
//
// Configuration is read from TOML files (see LoadConfig). NewConfig returns a
// Config populated with defaults that let the service run locally with only
// a filesystem store and a SQLite catalog.
package cloud

import "time"

// BigQueryDataSource names the dataset and table used by the BigQuery
// artifact catalog.
type BigQueryDataSource struct {
	DatasetName   string `toml:"dataset"`
	ArtifactTable string `toml:"artifact_table"`
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

type Server struct {
	Port                   int      `toml:"port"`
	ReadTimeoutSeconds     int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
	MaxUploadMB            int64    `toml:"max_upload_mb"`
	CORSAllowOrigins       []string `toml:"cors_allow_origins"`
	// PublicBaseURL, when set, is prefixed to artifact locators returned to
	// callers (e.g. https://media.example.com).
	PublicBaseURL string `toml:"public_base_url"`
}

// Pipeline tunes the assembly pipeline. SecondsPerFrame is the fixed display
// time of each image.
type Pipeline struct {
	SecondsPerFrame        float64 `toml:"seconds_per_frame"`
	Width                  int     `toml:"width"`
	Height                 int     `toml:"height"`
	FrameRate              int     `toml:"frame_rate"`
	Preset                 string  `toml:"preset"`
	CRF                    int     `toml:"crf"`
	MaxLongSide            int     `toml:"max_long_side"`
	JpegQuality            int     `toml:"jpeg_quality"`
	FetchWorkers           int     `toml:"fetch_workers"`
	MaxFrames              int     `toml:"max_frames"`
	MaxImageMB             int     `toml:"max_image_mb"`
	OnImageFailure         string  `toml:"on_image_failure"` // "abort" or "skip"
	ScratchDir             string  `toml:"scratch_dir"`
	ScratchMaxAgeMinutes   int     `toml:"scratch_max_age_minutes"`
	JanitorIntervalMinutes int     `toml:"janitor_interval_minutes"`
}

const (
	OnImageFailureAbort = "abort"
	OnImageFailureSkip  = "skip"
)

type Engine struct {
	FFMpegPath     string `toml:"ffmpeg_path"`
	FFProbePath    string `toml:"ffprobe_path"`
	MaxConcurrent  int64  `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage configures where sources are read from and where artifacts go.
// DefaultStore ("fs", "gcs" or "s3") resolves bare keys. OutputDir is served
// under PublicPathPrefix. MirrorTarget ("", "fs", "gcs" or "s3") additionally
// copies every artifact to a blob store.
type Storage struct {
	DefaultStore       string `toml:"default_store"`
	OutputDir          string `toml:"output_dir"`
	PublicPathPrefix   string `toml:"public_path_prefix"`
	FSRoot             string `toml:"fs_root"`
	GCSInputBucket     string `toml:"gcs_input_bucket"`
	GCSOutputBucket    string `toml:"gcs_output_bucket"`
	GCSEndpoint        string `toml:"gcs_endpoint"`
	S3Bucket           string `toml:"s3_bucket"`
	S3Region           string `toml:"s3_region"`
	S3Endpoint         string `toml:"s3_endpoint"`
	S3UsePathStyle     bool   `toml:"s3_use_path_style"`
	MirrorTarget       string `toml:"mirror_target"`
	MirrorPrefix       string `toml:"mirror_prefix"`
	RequestsPerSecond  int    `toml:"requests_per_second"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	SignedURLMinutes   int    `toml:"signed_url_minutes"`
}

// Catalog selects the artifact catalog: "sqlite", "bigquery" or "none".
type Catalog struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
}

// Telemetry selects the exporter ("gcp" or "none") and log settings.
type Telemetry struct {
	Exporter              string `toml:"exporter"`
	MetricIntervalSeconds int    `toml:"metric_interval_seconds"`
	LogLevel              string `toml:"log_level"`
	LogFile               string `toml:"log_file"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	} `toml:"application"`
	Server             Server                       `toml:"server"`
	Pipeline           Pipeline                     `toml:"pipeline"`
	Engine             Engine                       `toml:"engine"`
	Storage            Storage                      `toml:"storage"`
	Catalog            Catalog                      `toml:"catalog"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	Telemetry          Telemetry                    `toml:"telemetry"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
}

// NewConfig returns a Config with defaults for every section. Values read by
// LoadConfig override these field by field.
func NewConfig() *Config {
	c := &Config{TopicSubscriptions: make(map[string]TopicSubscription)}
	c.Application.Name = "media-assembly"
	c.Server = Server{
		Port:                   8080,
		ReadTimeoutSeconds:     20,
		WriteTimeoutSeconds:    600,
		ShutdownTimeoutSeconds: 5,
		MaxUploadMB:            200,
	}
	c.Pipeline = Pipeline{
		SecondsPerFrame:        5,
		Width:                  1280,
		Height:                 720,
		FrameRate:              30,
		Preset:                 "veryfast",
		MaxLongSide:            1920,
		JpegQuality:            85,
		FetchWorkers:           4,
		MaxFrames:              500,
		MaxImageMB:             50,
		OnImageFailure:         OnImageFailureAbort,
		ScratchDir:             "tmp/scratch",
		ScratchMaxAgeMinutes:   120,
		JanitorIntervalMinutes: 15,
	}
	c.Engine = Engine{FFMpegPath: "ffmpeg", FFProbePath: "ffprobe", MaxConcurrent: 2, TimeoutSeconds: 900}
	c.Storage = Storage{
		DefaultStore:       "fs",
		OutputDir:          "public/videos",
		PublicPathPrefix:   "/videos",
		FSRoot:             "data/blobs",
		RequestsPerSecond:  20,
		HTTPTimeoutSeconds: 30,
		SignedURLMinutes:   60,
	}
	c.Catalog = Catalog{Driver: "sqlite", SQLitePath: "data/catalog.db"}
	c.BigQueryDataSource = BigQueryDataSource{DatasetName: "media_assembly", ArtifactTable: "artifacts"}
	c.Telemetry = Telemetry{Exporter: "none", MetricIntervalSeconds: 60, LogLevel: "info"}
	return c
}

// MaxImageBytes caps a single fetched image. Zero disables the cap.
func (p Pipeline) MaxImageBytes() int64 {
	if p.MaxImageMB <= 0 {
		return 0
	}
	return int64(p.MaxImageMB) << 20
}

func (p Pipeline) ScratchMaxAge() time.Duration {
	return time.Duration(p.ScratchMaxAgeMinutes) * time.Minute
}

func (p Pipeline) JanitorInterval() time.Duration {
	return time.Duration(p.JanitorIntervalMinutes) * time.Minute
}

func (e Engine) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (s Storage) SignedURLTTL() time.Duration {
	return time.Duration(s.SignedURLMinutes) * time.Minute
}
