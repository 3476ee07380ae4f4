// Package e2e drives the HTTP API over a real index built from generated
// image files.
package e2e

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// WritePNG writes a small solid-color PNG to dir/name and returns its path.
// The files are real decodable images so the full preprocessing path works
// against them.
func WritePNG(dir, name string, c color.RGBA) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}

// Palette of distinct fixture colors.
var (
	Red   = color.RGBA{R: 230, G: 30, B: 30, A: 255}
	Green = color.RGBA{R: 30, G: 200, B: 60, A: 255}
	Blue  = color.RGBA{R: 40, G: 70, B: 220, A: 255}
)
