package transcoder

import (
	"context"
)

// Transcoder defines the interface for video editing/transcoding operations.
// Implementations invoke an external FFmpeg binary as an opaque subprocess.
type Transcoder interface {
	// Transcode applies opts to the video at inputPath and writes a single
	// MP4 output to outputPath. The output directory must already exist.
	Transcode(ctx context.Context, inputPath, outputPath string, opts Options) error
}
