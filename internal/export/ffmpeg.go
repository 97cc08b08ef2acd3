package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cliptake/api/internal/media"
)

// FFmpegEncoder renders a composition by shelling out to ffmpeg.
type FFmpegEncoder struct {
	ffmpegPath string
	log        zerolog.Logger
}

func NewFFmpegEncoder(ffmpegPath string, log zerolog.Logger) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath, log: log}
}

// Encode turns the composition into an ffmpeg invocation. A single-track
// back-to-back layout with the passthrough preset uses the concat demuxer
// with stream copy; everything else re-encodes with per-preset quality.
func (e *FFmpegEncoder) Encode(ctx context.Context, comp *media.Composition, preset Preset, container Container, dest string) error {
	if comp.Video == nil || len(comp.Video.Segments) == 0 {
		return fmt.Errorf("composition has no video segments")
	}

	var args []string
	var cleanup func()
	var err error

	if preset == PresetPassthrough && len(comp.Audio) <= 1 && isSequentialConcat(comp) {
		args, cleanup, err = e.concatArgs(comp, container, dest)
	} else {
		args, err = e.mergeArgs(comp, preset, container, dest)
	}
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	args = append([]string{"-y"}, args...)

	e.log.Debug().Strs("args", args).Msg("running ffmpeg")
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(output), 400))
	}
	return nil
}

// isSequentialConcat reports whether every track lays full source files
// back to back, which the concat demuxer can express without re-encoding.
func isSequentialConcat(comp *media.Composition) bool {
	for _, seg := range comp.Video.Segments {
		if !seg.Source.Start.IsZero() {
			return false
		}
	}
	// A separate voice-over track needs a filter graph.
	for _, tr := range comp.Audio {
		for _, seg := range tr.Segments {
			if seg.AssetPath != segmentAssetAt(comp.Video, seg.Target.Start) {
				return false
			}
		}
	}
	return true
}

func segmentAssetAt(tr *media.CompositionTrack, at media.TimeValue) string {
	for _, seg := range tr.Segments {
		if seg.Target.Start.Cmp(at) == 0 {
			return seg.AssetPath
		}
	}
	return ""
}

func (e *FFmpegEncoder) concatArgs(comp *media.Composition, container Container, dest string) ([]string, func(), error) {
	listFile, err := writeConcatList(comp.Video.Segments)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.Remove(listFile) }

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
	}
	if len(comp.Audio) == 0 {
		args = append(args, "-an")
	}
	// Stream copy cannot run filters; like a passthrough export the
	// transform travels as container rotation metadata.
	if comp.Video.Transform.Equal(media.Rotate90) {
		args = append(args, "-metadata:s:v:0", "rotate=90")
	}
	args = append(args, muxerFlags(container)...)
	args = append(args, dest)
	return args, cleanup, nil
}

func (e *FFmpegEncoder) mergeArgs(comp *media.Composition, preset Preset, container Container, dest string) ([]string, error) {
	inputs := comp.SourcePaths()
	inputIndex := make(map[string]int, len(inputs))
	var args []string
	for i, in := range inputs {
		inputIndex[in] = i
		args = append(args, "-i", in)
	}

	videoIn := inputIndex[comp.Video.Segments[0].AssetPath]
	args = append(args, "-map", fmt.Sprintf("%d:v:0", videoIn))
	for _, tr := range comp.Audio {
		if len(tr.Segments) == 0 {
			continue
		}
		args = append(args, "-map", fmt.Sprintf("%d:a:0?", inputIndex[tr.Segments[0].AssetPath]))
	}

	crf := "23"
	if preset == PresetHigh {
		crf = "18"
	}
	args = append(args, "-c:v", "libx264", "-crf", crf, "-c:a", "aac")
	args = append(args, filterFlags(comp.Video.Transform)...)

	// The composition ends at the video's duration; sources that run
	// longer are trimmed here.
	args = append(args, "-t", fmt.Sprintf("%.3f", comp.Duration().Seconds()))
	args = append(args, muxerFlags(container)...)
	args = append(args, dest)
	return args, nil
}

// muxerFlags pins the output muxer so a dest path with an odd extension
// still produces the requested container.
func muxerFlags(container Container) []string {
	switch container {
	case ContainerMP4, ContainerMOV:
		return []string{"-f", string(container)}
	default:
		return nil
	}
}

// filterFlags maps the composition's video transform onto ffmpeg filters.
func filterFlags(t media.Transform) []string {
	var filters []string
	if t.IsMirrored() {
		filters = append(filters, "hflip")
	}
	if t.Equal(media.Rotate90) {
		filters = append(filters, "transpose=1")
	}
	if len(filters) == 0 {
		return nil
	}
	return []string{"-vf", strings.Join(filters, ",")}
}

func writeConcatList(segments []media.Segment) (string, error) {
	tmp, err := os.CreateTemp("", "cliptake-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	for _, seg := range segments {
		abs, err := filepath.Abs(seg.AssetPath)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmp, "file '%s'\n", abs); err != nil {
			return "", err
		}
	}
	return tmp.Name(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
