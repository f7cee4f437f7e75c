package web

import (
	"bytes"
	"sync"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/Dreta/Beacon/internal/clock"
	"github.com/Dreta/Beacon/pkg/perception"
)

// PreviewConfig tunes the camera preview stream.
type PreviewConfig struct {
	Width       int           // Preview width; height keeps the aspect ratio
	Quality     int           // JPEG quality 1-100
	MinChange   int           // Hamming distance between hashes that counts as a new scene
	MinInterval time.Duration // Never send faster than this
	MaxInterval time.Duration // Always send at least this often
}

// DefaultPreviewConfig returns preview defaults.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:       480,
		Quality:     70,
		MinChange:   4,
		MinInterval: 100 * time.Millisecond,
		MaxInterval: time.Second,
	}
}

// Preview downsizes frames and skips ones that look like the last one sent.
type Preview struct {
	config PreviewConfig
	clock  clock.Clock

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
	lastSent time.Time
}

// NewPreview creates a preview encoder.
func NewPreview(cfg PreviewConfig) *Preview {
	return &Preview{config: cfg, clock: clock.Real{}}
}

// Encode returns a JPEG for f, or false when the frame should be skipped.
func (p *Preview) Encode(f perception.Frame) ([]byte, bool) {
	if f.Image == nil || f.Bounds().Empty() {
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	elapsed := now.Sub(p.lastSent)
	if !p.lastSent.IsZero() && elapsed < p.config.MinInterval {
		return nil, false
	}

	img := f.Image
	if p.config.Width > 0 && f.Bounds().Dx() > p.config.Width {
		img = imaging.Resize(img, p.config.Width, 0, imaging.Linear)
	}

	hash, hashErr := goimagehash.DifferenceHash(img)
	if hashErr == nil && p.lastHash != nil && elapsed < p.config.MaxInterval {
		if d, err := hash.Distance(p.lastHash); err == nil && d < p.config.MinChange {
			return nil, false
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.config.Quality)); err != nil {
		return nil, false
	}
	if hashErr == nil {
		p.lastHash = hash
	}
	p.lastSent = now
	return buf.Bytes(), true
}
