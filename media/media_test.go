package media

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/plenumlabs/scribe/errors"
)

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.FFmpegBin != "ffmpeg" || cfg.FFprobeBin != "ffprobe" {
		t.Errorf("unexpected binaries: %q %q", cfg.FFmpegBin, cfg.FFprobeBin)
	}
	if cfg.SegmentSeconds != DefaultSegmentSeconds {
		t.Errorf("SegmentSeconds = %d, want %d", cfg.SegmentSeconds, DefaultSegmentSeconds)
	}
	if cfg.MinArtifact != DefaultMinArtifactBytes {
		t.Errorf("MinArtifact = %d, want %d", cfg.MinArtifact, DefaultMinArtifactBytes)
	}
}

func TestValidArtifact(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.wav")
	if err := os.WriteFile(small, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	big := filepath.Join(dir, "big.wav")
	if err := os.WriteFile(big, make([]byte, 2000), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidArtifact(big, 1000); err != nil {
		t.Errorf("valid artifact rejected: %v", err)
	}
	if err := ValidArtifact(small, 1000); !apperrors.IsCode(err, apperrors.ErrCodeAudioInvalid) {
		t.Errorf("undersized artifact: got %v, want AUDIO_INVALID", err)
	}
	if err := ValidArtifact(filepath.Join(dir, "missing.wav"), 1000); !apperrors.IsCode(err, apperrors.ErrCodeAudioInvalid) {
		t.Errorf("missing artifact: got %v, want AUDIO_INVALID", err)
	}
}

func TestTailTruncatesStderr(t *testing.T) {
	out := tail([]byte("line1\nline2\nline3\nline4\nline5\n"))
	if out != "line3 | line4 | line5" {
		t.Errorf("tail = %q", out)
	}

	out = tail([]byte("only line\n"))
	if out != "only line" {
		t.Errorf("tail = %q", out)
	}
}
