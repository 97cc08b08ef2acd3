package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

const degToRad = math.Pi / 180

// Loader opens an asset by path and returns its duration and typed tracks.
type Loader interface {
	Load(ctx context.Context, path string) (*Asset, error)
}

// FFProbeLoader reads asset metadata by shelling out to ffprobe.
type FFProbeLoader struct {
	ffprobePath string
}

func NewFFProbeLoader(ffprobePath string) *FFProbeLoader {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFProbeLoader{ffprobePath: ffprobePath}
}

// probeResult matches ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
		SideData  []struct {
			Rotation int `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

// Load probes the file and builds an immutable Asset handle.
func (l *FFProbeLoader) Load(ctx context.Context, path string) (*Asset, error) {
	if path == "" {
		return nil, fmt.Errorf("asset path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, l.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	asset := &Asset{Path: path}
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		asset.Duration = FromSeconds(dur, DefaultTimescale)
	}

	for _, stream := range probe.Streams {
		trackDur := asset.Duration
		if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
			trackDur = FromSeconds(d, DefaultTimescale)
		}
		track := Track{
			Range:     NewTimeRange(Zero, trackDur),
			Transform: Identity,
		}
		switch stream.CodecType {
		case "video":
			track.Kind = TrackVideo
			track.NaturalWidth = float64(stream.Width)
			track.NaturalHeight = float64(stream.Height)
			for _, sd := range stream.SideData {
				if sd.Rotation != 0 {
					track.Transform = Rotation(float64(sd.Rotation) * degToRad)
				}
			}
		case "audio":
			track.Kind = TrackAudio
		default:
			continue
		}
		asset.Tracks = append(asset.Tracks, track)
	}

	return asset, nil
}
