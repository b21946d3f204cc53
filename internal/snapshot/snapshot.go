// Package snapshot exports rendered frames as PNG images.
package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
)

// DefaultPrefix names screenshots when no prefix is configured.
const DefaultPrefix = "model-screenshot"

const timeLayout = "2006-01-02_15-04-05"

// Encode returns img as PNG bytes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales img to fit within width x height, keeping its aspect
// ratio. Images already small enough are returned unscaled.
func Thumbnail(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || b.Empty() {
		return img
	}
	if b.Dx() <= width && b.Dy() <= height {
		return img
	}

	w, h := width, b.Dy()*width/b.Dx()
	if h > height {
		w, h = b.Dx()*height/b.Dy(), height
	}
	w, h = max(w, 1), max(h, 1)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Capture writes timestamped PNG files into a directory.
type Capture struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewCapture creates a capture writing to outputDir. An empty prefix uses
// DefaultPrefix.
func NewCapture(outputDir, prefix string) *Capture {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Capture{outputDir: outputDir, prefix: prefix, now: time.Now}
}

// GenerateFilename returns the path the next capture would use.
func (c *Capture) GenerateFilename() string {
	name := fmt.Sprintf("%s_%s.png", c.prefix, c.now().Format(timeLayout))
	if c.outputDir != "" {
		name = filepath.Join(c.outputDir, name)
	}
	return name
}

// Save writes img and returns the file path.
func (c *Capture) Save(img image.Image) (string, error) {
	data, err := Encode(img)
	if err != nil {
		return "", err
	}
	if c.outputDir != "" {
		if err := os.MkdirAll(c.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := c.GenerateFilename()
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return filename, nil
}
