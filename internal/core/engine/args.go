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

package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// Encoding parameters shared by every produced artifact.
const (
	VideoCodec  = "libx264"
	PixelFormat = "yuv420p"
	AudioCodec  = "aac"
	MovFlags    = "+faststart"
)

// AssembleSpec describes an image-sequence encode.
type AssembleSpec struct {
	FramePattern    string // printf pattern, e.g. /scratch/x/frame-%05d.jpg
	SecondsPerFrame float64
	Width           int
	Height          int
	FrameRate       int
	Preset          string
	CRF             int
	Output          string
}

// AssembleArgs builds the ffmpeg invocation that turns the staged frames into
// an mp4. Frames of differing size are letterboxed onto Width x Height and a
// silent stereo track is muxed in so every artifact carries audio.
func AssembleArgs(s AssembleSpec) []string {
	w, h := even(s.Width), even(s.Height)
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,format=%s",
		w, h, w, h, PixelFormat)

	args := []string{
		"-y", "-hide_banner",
		"-framerate", inputRate(s.SecondsPerFrame),
		"-start_number", "0",
		"-i", s.FramePattern,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-vf", vf,
		"-r", strconv.Itoa(s.FrameRate),
		"-c:v", VideoCodec,
	}
	args = append(args, encoderTuning(s.Preset, s.CRF)...)
	return append(args,
		"-pix_fmt", PixelFormat,
		"-c:a", AudioCodec,
		"-shortest",
		"-movflags", MovFlags,
		s.Output,
	)
}

// TrimArgs re-encodes the [start, end) window of in. Input seeking keeps the
// cut fast; re-encoding keeps it frame accurate.
func TrimArgs(in, out string, r model.TrimRange) []string {
	return []string{
		"-y", "-hide_banner",
		"-ss", seconds(r.StartSeconds),
		"-i", in,
		"-t", seconds(r.Duration()),
		"-c:v", VideoCodec,
		"-pix_fmt", PixelFormat,
		"-c:a", AudioCodec,
		"-movflags", MovFlags,
		out,
	}
}

// OverlayArgs replaces the audio of video with the first audio stream of
// audio, ending at whichever input is shorter.
func OverlayArgs(video, audio, out string) []string {
	return []string{
		"-y", "-hide_banner",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", VideoCodec,
		"-pix_fmt", PixelFormat,
		"-c:a", AudioCodec,
		"-shortest",
		"-movflags", MovFlags,
		out,
	}
}

func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type",
		"-of", "json",
		path,
	}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe decodes the json written by ffprobe for ProbeArgs.
func ParseProbe(data []byte) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeResult{}, model.NewError(model.KindProbeFailed, "probe", fmt.Errorf("decoding ffprobe output: %w", err))
	}
	var res ProbeResult
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			res.HasVideo = true
		case "audio":
			res.HasAudio = true
		}
	}
	if out.Format.Duration == "" || out.Format.Duration == "N/A" {
		return res, model.Errorf(model.KindProbeFailed, "probe", "container reports no duration")
	}
	d, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || math.IsNaN(d) || d < 0 {
		return res, model.Errorf(model.KindProbeFailed, "probe", "invalid duration %q", out.Format.Duration)
	}
	res.DurationSeconds = d
	return res, nil
}

func encoderTuning(preset string, crf int) []string {
	var out []string
	if preset != "" {
		out = append(out, "-preset", preset)
	}
	if crf > 0 {
		out = append(out, "-crf", strconv.Itoa(crf))
	}
	return out
}

// inputRate expresses one frame per secondsPerFrame as an ffmpeg rate.
func inputRate(secondsPerFrame float64) string {
	if secondsPerFrame == math.Trunc(secondsPerFrame) && secondsPerFrame >= 1 {
		return "1/" + strconv.Itoa(int(secondsPerFrame))
	}
	return strconv.FormatFloat(1/secondsPerFrame, 'f', -1, 64)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// libx264 with yuv420p rejects odd dimensions.
func even(v int) int {
	if v%2 != 0 {
		return v + 1
	}
	return v
}
