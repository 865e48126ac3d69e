package media

import (
	"fmt"
	"time"
)

const (
	// DefaultSegmentSeconds is the nominal chunk length in seconds.
	DefaultSegmentSeconds = 900

	// DefaultAudioFilter is the ffmpeg filter chain applied during
	// segmentation. Band-pass plus gain and dynamic normalization keeps
	// low-energy speech inside the model's useful range.
	DefaultAudioFilter = "highpass=f=200,lowpass=f=3000,volume=1.5,dynaudnorm"

	// DefaultMinArtifactBytes is the smallest segment file considered a
	// real audio artifact. Anything below is a truncated or empty write.
	DefaultMinArtifactBytes = 1000
)

// Config holds configuration for the segmenter and normalizer.
type Config struct {
	FFmpegBin      string        `json:"ffmpeg_bin" yaml:"ffmpeg_bin" mapstructure:"ffmpeg_bin"`
	FFprobeBin     string        `json:"ffprobe_bin" yaml:"ffprobe_bin" mapstructure:"ffprobe_bin"`
	SegmentSeconds int           `json:"segment_seconds" yaml:"segment_seconds" mapstructure:"segment_seconds" validate:"gte=0"`
	AudioFilter    string        `json:"audio_filter" yaml:"audio_filter" mapstructure:"audio_filter"`
	MinArtifact    int64         `json:"min_artifact_bytes" yaml:"min_artifact_bytes" mapstructure:"min_artifact_bytes"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpegBin == "" {
		c.FFmpegBin = "ffmpeg"
	}
	if c.FFprobeBin == "" {
		c.FFprobeBin = "ffprobe"
	}
	if c.SegmentSeconds == 0 {
		c.SegmentSeconds = DefaultSegmentSeconds
	}
	if c.AudioFilter == "" {
		c.AudioFilter = DefaultAudioFilter
	}
	if c.MinArtifact == 0 {
		c.MinArtifact = DefaultMinArtifactBytes
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Minute
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SegmentSeconds < 0 {
		return fmt.Errorf("media: segment_seconds must not be negative")
	}
	if c.MinArtifact < 0 {
		return fmt.Errorf("media: min_artifact_bytes must not be negative")
	}
	return nil
}
