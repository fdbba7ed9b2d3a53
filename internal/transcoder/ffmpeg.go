package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Options mirrors model.EditOptions without importing the domain package,
// keeping the transcoder a standalone subprocess wrapper.
type Options struct {
	CutStartTime           *float64
	CutEndTime             *float64
	Mute                   bool
	TargetResolutionHeight *int
}

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary. If empty, "ffmpeg" is
	// used (assumes it's in PATH).
	FFmpegPath string
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{FFmpegPath: "ffmpeg"}
}

// FFmpegTranscoder implements Transcoder using the FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
func NewFFmpegTranscoder(cfg FFmpegConfig) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{config: cfg}
}

// Transcode applies opts to inputPath and writes the single-file MP4 result
// to outputPath, running ffmpeg as a subprocess under ctx's deadline.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string, opts Options) error {
	if err := t.validateInput(inputPath); err != nil {
		return err
	}
	if err := t.validateOutputDir(outputPath); err != nil {
		return err
	}

	args := t.buildFFmpegArgs(inputPath, outputPath, opts)

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcoding cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	return nil
}

func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}
	return nil
}

func (t *FFmpegTranscoder) validateOutputDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", dir)
	}
	return nil
}

// buildFFmpegArgs constructs the FFmpeg command line per the cut/mute/scale
// pipeline: input-side -ss start offset iff requested, -t duration iff a
// valid positive window exists, scale filter iff a target height was
// requested, -c:a copy unless mute requests -an, and a fixed libx265/hvc1
// encode at CRF 23, preset medium.
func (t *FFmpegTranscoder) buildFFmpegArgs(inputPath, outputPath string, opts Options) []string {
	var args []string

	if hasCutStart(opts) {
		args = append(args, "-ss", fmt.Sprintf("%f", effectiveCutStart(opts)))
	}

	args = append(args, "-i", inputPath)

	if duration, ok := durationOf(opts); ok {
		args = append(args, "-t", fmt.Sprintf("%f", duration))
	}

	if hasScale(opts) {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", *opts.TargetResolutionHeight))
	}

	if opts.Mute {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", "copy")
	}

	args = append(args,
		"-c:v", "libx265",
		"-tag:v", "hvc1",
		"-preset", "medium",
		"-crf", "23",
		"-y",
		outputPath,
	)

	return args
}

func effectiveCutStart(opts Options) float64 {
	if opts.CutStartTime == nil || *opts.CutStartTime < 0 {
		return 0
	}
	return *opts.CutStartTime
}

func hasCutStart(opts Options) bool {
	return opts.CutStartTime != nil && *opts.CutStartTime >= 0
}

func hasScale(opts Options) bool {
	return opts.TargetResolutionHeight != nil && *opts.TargetResolutionHeight > 0
}

// durationOf returns the output duration and whether it is valid. A
// non-positive window (cutEndTime <= effective start) is invalid and must
// be ignored (no -t flag emitted); the caller is warned so the ignored
// request isn't silent.
func durationOf(opts Options) (float64, bool) {
	if opts.CutEndTime == nil {
		return 0, false
	}
	start := effectiveCutStart(opts)
	d := *opts.CutEndTime - start
	if d <= 0 {
		slog.Warn("ignoring cutEndTime: not after effective cut start",
			"cut_end_time", *opts.CutEndTime,
			"effective_cut_start", start,
		)
		return 0, false
	}
	return d, true
}
