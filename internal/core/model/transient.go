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
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

// SourceKind tags the variant held by a Source.
type SourceKind int

const (
	SourceInline SourceKind = iota + 1
	SourceRemote
	SourceLocalFile
)

// Source is where the bytes of an image, video or audio track come from. It
// is resolved once at the request boundary and never re-sniffed downstream.
type Source struct {
	Kind        SourceKind
	Data        []byte // SourceInline
	ContentType string // SourceInline, optional
	Locator     string // SourceRemote: gs://, s3://, http(s)://, file:// or a bare key in the default store
	Path        string // SourceLocalFile
}

func Inline(data []byte, contentType string) Source {
	return Source{Kind: SourceInline, Data: data, ContentType: contentType}
}

func Remote(locator string) Source {
	return Source{Kind: SourceRemote, Locator: locator}
}

func LocalFile(path string) Source {
	return Source{Kind: SourceLocalFile, Path: path}
}

func (s Source) String() string {
	switch s.Kind {
	case SourceInline:
		return fmt.Sprintf("inline(%d bytes)", len(s.Data))
	case SourceRemote:
		return s.Locator
	case SourceLocalFile:
		return "file:" + s.Path
	default:
		return "empty"
	}
}

// ParseSource resolves a client supplied image string. Data URIs and bare
// base64 payloads that decode to a recognisable image become Inline, the
// rest are treated as locators.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, Errorf(KindValidation, "parse-source", "empty image reference")
	}

	if strings.HasPrefix(raw, "data:") {
		header, payload, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Source{}, Errorf(KindValidation, "parse-source", "malformed data uri")
		}
		data, err := decodeBase64(payload)
		if err != nil {
			return Source{}, NewError(KindValidation, "parse-source", fmt.Errorf("data uri payload: %w", err))
		}
		contentType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		return Inline(data, contentType), nil
	}

	if strings.Contains(raw, "://") || strings.Contains(raw, ".") {
		return Remote(raw), nil
	}

	// object keys without an extension can look like base64; only accept the
	// payload when it actually carries an image signature.
	if data, err := decodeBase64(raw); err == nil && filetype.IsImage(data) {
		return Inline(data, ""), nil
	}
	return Remote(raw), nil
}

func decodeBase64(in string) ([]byte, error) {
	in = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, in)
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		out, err := enc.DecodeString(in)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ImageInput is one image entry of an album payload. Mobile clients send the
// locator under either "url" or "uri"; inline payloads may use "data".
type ImageInput struct {
	URL       string `json:"url,omitempty"`
	URI       string `json:"uri,omitempty"`
	Data      string `json:"data,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (i ImageInput) reference() string {
	for _, v := range []string{i.URL, i.URI, i.Data} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// AlbumInput is the album reference as received from a caller.
type AlbumInput struct {
	Title      string       `json:"title"`
	CoverImage string       `json:"coverImage,omitempty"`
	Images     []ImageInput `json:"images"`
}

// AssemblyRequest is the inbound pipeline trigger payload.
type AssemblyRequest struct {
	RequestId string       `json:"requestId,omitempty"`
	Albums    []AlbumInput `json:"albums"`
}

// Image is a resolved album image.
type Image struct {
	Source    Source
	Timestamp string
}

// Album is a resolved album reference. Cover is nil when the caller sent none.
type Album struct {
	Title  string
	Cover  *Source
	Images []Image
}

// Resolve validates the request shape and converts every image reference
// into a Source. It performs no I/O.
func (r *AssemblyRequest) Resolve() ([]Album, error) {
	if r == nil || len(r.Albums) == 0 {
		return nil, Errorf(KindEmptyInput, "validate", "no albums supplied")
	}
	out := make([]Album, 0, len(r.Albums))
	for ai, in := range r.Albums {
		if len(in.Images) == 0 {
			return nil, Errorf(KindEmptyInput, "validate", "album %d (%q) has no images", ai, in.Title)
		}
		album := Album{Title: in.Title, Images: make([]Image, 0, len(in.Images))}
		if strings.TrimSpace(in.CoverImage) != "" {
			cover, err := ParseSource(in.CoverImage)
			if err != nil {
				return nil, NewError(KindValidation, "validate", fmt.Errorf("album %d cover: %w", ai, err))
			}
			album.Cover = &cover
		}
		for ii, img := range in.Images {
			src, err := ParseSource(img.reference())
			if err != nil {
				return nil, NewError(KindValidation, "validate", fmt.Errorf("album %d image %d: %w", ai, ii, err))
			}
			album.Images = append(album.Images, Image{Source: src, Timestamp: img.Timestamp})
		}
		out = append(out, album)
	}
	return out, nil
}

// FrameSpec is one slot of the output sequence before any bytes are fetched.
type FrameSpec struct {
	Index      int
	AlbumTitle string
	Source     Source
}

// FlattenFrames lays albums out in display order: each album's cover first,
// then its images, album by album. Duplicates are kept.
func FlattenFrames(albums []Album) []FrameSpec {
	var out []FrameSpec
	for _, a := range albums {
		if a.Cover != nil {
			out = append(out, FrameSpec{Index: len(out), AlbumTitle: a.Title, Source: *a.Cover})
		}
		for _, img := range a.Images {
			out = append(out, FrameSpec{Index: len(out), AlbumTitle: a.Title, Source: img.Source})
		}
	}
	return out
}

// StagedFrame is a normalized frame written to scratch storage.
type StagedFrame struct {
	SequenceIndex int
	LocalPath     string
}

// Operation names the step that produced an artifact.
type Operation string

const (
	OpAssemble Operation = "assemble"
	OpTrim     Operation = "trim"
	OpOverlay  Operation = "overlay"
)

// Artifact is a produced video file. It is immutable once created; edits
// produce a new Artifact whose ParentId points back at the source.
type Artifact struct {
	Id              string
	Operation       Operation
	ParentId        string
	Locator         string
	LocalPath       string
	RemoteLocator   string
	DurationSeconds *float64
	CreatedAt       time.Time
}

// TrimRange is a half-open [StartSeconds, EndSeconds) window.
type TrimRange struct {
	StartSeconds float64
	EndSeconds   float64
}

// Validate rejects ranges the engine must never see. Ranges are not clamped.
func (t TrimRange) Validate() error {
	for _, v := range []float64{t.StartSeconds, t.EndSeconds} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Errorf(KindInvalidRange, "trim", "range bounds must be finite")
		}
	}
	if t.StartSeconds < 0 {
		return Errorf(KindInvalidRange, "trim", "start %.3f is negative", t.StartSeconds)
	}
	if t.EndSeconds <= t.StartSeconds {
		return Errorf(KindInvalidRange, "trim", "end %.3f must be greater than start %.3f", t.EndSeconds, t.StartSeconds)
	}
	return nil
}

func (t TrimRange) Duration() float64 {
	return t.EndSeconds - t.StartSeconds
}

// TrimRequest is the trim trigger payload. Bounds are pointers so a missing
// field is distinguishable from zero.
type TrimRequest struct {
	Video string   `json:"video" form:"video"`
	Start *float64 `json:"start" form:"start"`
	End   *float64 `json:"end" form:"end"`
}

// OverlayRequest is the JSON form of the audio overlay trigger; multipart
// callers upload the audio file instead of naming a locator.
type OverlayRequest struct {
	Video string `json:"video" form:"video"`
	Audio string `json:"audio" form:"audio"`
}

// EditRequest combines an optional trim with an optional audio overlay.
type EditRequest struct {
	Video string   `json:"video" form:"video"`
	Start *float64 `json:"start" form:"start"`
	End   *float64 `json:"end" form:"end"`
	Audio string   `json:"audio" form:"audio"`
}

type AssemblyResponse struct {
	VideoUrl          string   `json:"videoUrl"`
	LocalArtifactPath string   `json:"localArtifactPath"`
	OutputVideoPath   string   `json:"outputVideoPath"`
	Duration          *float64 `json:"duration"`
	ArtifactId        string   `json:"artifactId"`
}

func NewAssemblyResponse(a *Artifact) AssemblyResponse {
	return AssemblyResponse{
		VideoUrl:          a.Locator,
		LocalArtifactPath: a.LocalPath,
		OutputVideoPath:   a.LocalPath,
		Duration:          a.DurationSeconds,
		ArtifactId:        a.Id,
	}
}

type TrimResponse struct {
	TrimmedVideoUrl string `json:"trimmedVideoUrl"`
	ArtifactId      string `json:"artifactId,omitempty"`
}

type OverlayResponse struct {
	OutputVideoPath string `json:"outputVideoPath"`
	VideoUrl        string `json:"videoUrl"`
	ArtifactId      string `json:"artifactId,omitempty"`
}

type EditResponse struct {
	VideoUrl   string `json:"videoUrl"`
	ArtifactId string `json:"artifactId,omitempty"`
}

type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  ErrorKind `json:"kind"`
}

// PipelineState is the orchestrator state recorded on the chain context.
type PipelineState string

const (
	StateValidating PipelineState = "Validating"
	StateStaging    PipelineState = "Staging"
	StateAssembling PipelineState = "Assembling"
	StateProbing    PipelineState = "Probing"
	StateReady      PipelineState = "Ready"
	StateTrimming   PipelineState = "Trimming"
	StateOverlaying PipelineState = "Overlaying"
	StateFailed     PipelineState = "Failed"
)
