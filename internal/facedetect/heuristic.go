package facedetect

import (
	"fmt"
	"image"
)

// minSkinFraction is the share of skin-like pixels below which the
// heuristic reports no face.
const minSkinFraction = 0.02

// HeuristicDetector is the built-in capability implementation: a skin-color
// heuristic that locates the dominant skin-like region and returns an
// octagonal boundary around it. It reuses an internal scratch buffer
// between calls, so a handle must not be shared across goroutines.
type HeuristicDetector struct {
	scratch []bool
	closed  bool
}

// NewHeuristicFactory returns a Factory producing independent heuristic
// detector handles.
func NewHeuristicFactory() Factory {
	return FactoryFunc(func() (Detector, error) {
		return &HeuristicDetector{}, nil
	})
}

// Detect locates the dominant skin-like region in the image.
func (d *HeuristicDetector) Detect(img image.Image) (Detection, error) {
	if d.closed {
		return Detection{}, fmt.Errorf("detector is closed")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return Detection{}, fmt.Errorf("empty image %dx%d", width, height)
	}

	if cap(d.scratch) < width*height {
		d.scratch = make([]bool, width*height)
	}
	d.scratch = d.scratch[:width*height]

	minX, minY := width, height
	maxX, maxY := -1, -1
	skin := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			isSkin := skinLike(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			d.scratch[y*width+x] = isSkin
			if !isSkin {
				continue
			}
			skin++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if float64(skin) < minSkinFraction*float64(width*height) {
		return Detection{}, nil
	}

	return Detection{
		Found:        true,
		FaceBoundary: octagon(minX, minY, maxX, maxY),
	}, nil
}

// Close releases the handle. Further Detect calls fail.
func (d *HeuristicDetector) Close() error {
	d.closed = true
	d.scratch = nil
	return nil
}

// skinLike is the classic RGB skin rule: warm, not too dark, red-dominant.
func skinLike(r, g, b uint8) bool {
	if r <= 95 || g <= 40 || b <= 20 {
		return false
	}
	maxC, minC := r, r
	for _, c := range []uint8{g, b} {
		if c > maxC {
			maxC = c
		}
		if c < minC {
			minC = c
		}
	}
	if maxC-minC <= 15 {
		return false
	}
	return r > g && r > b
}

// octagon returns the bounding box of the skin region with its corners cut,
// a rough approximation of a face outline.
func octagon(minX, minY, maxX, maxY int) []image.Point {
	cutX := (maxX - minX) / 4
	cutY := (maxY - minY) / 4
	return []image.Point{
		{X: minX + cutX, Y: minY},
		{X: maxX - cutX, Y: minY},
		{X: maxX, Y: minY + cutY},
		{X: maxX, Y: maxY - cutY},
		{X: maxX - cutX, Y: maxY},
		{X: minX + cutX, Y: maxY},
		{X: minX, Y: maxY - cutY},
		{X: minX, Y: minY + cutY},
	}
}
