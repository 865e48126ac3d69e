package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/process"
)

// normalizeFilter resamples and re-filters audio whose shape confuses the
// model. Re-encoding to a clean mono 16 kHz PCM stream is the remedy for
// tensor-shape mismatches during decoding.
const normalizeFilter = "aresample=16000,asetrate=16000," + DefaultAudioFilter

// Normalizer re-encodes audio artifacts into the model's expected layout.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	cfg.ApplyDefaults()
	return &Normalizer{cfg: cfg}
}

// Normalize re-encodes path into a sibling file with a "fixed_" prefix and
// returns the new path. The original file is left in place.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, error) {
	fixed := filepath.Join(filepath.Dir(path), "fixed_"+filepath.Base(path))

	runCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	_, err := process.Run(runCtx, process.Command{
		Binary: n.cfg.FFmpegBin,
		Args: []string{
			"-y", "-i", path,
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			"-af", normalizeFilter,
			fixed,
		},
	})
	if err != nil {
		return "", fmt.Errorf("normalize audio: %w", err)
	}
	return fixed, nil
}

// ValidArtifact reports whether path exists and is at least minBytes long.
// A nil error means the artifact is usable.
func ValidArtifact(path string, minBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.AudioInvalid(path).WithCause(err)
	}
	if info.Size() < minBytes {
		return apperrors.AudioInvalid(path).WithDetail("size_bytes", info.Size())
	}
	return nil
}
