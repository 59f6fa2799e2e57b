// Package region turns the face detection capability's landmark polygons
// into a binary pixel mask selecting analyzable skin, with the excluded
// sub-regions (eyes, eyebrows, lips) punched out.
package region

import (
	"image"
	"sort"

	"github.com/facetone/facetone-go/internal/facedetect"
)

// Mask is a binary pixel selection over an image of Width x Height pixels.
type Mask struct {
	Width  int
	Height int
	bits   []bool
	count  int
}

// NewMask creates an all-false mask of the given dimensions.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is selected. Out-of-range
// coordinates are never selected.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set selects or deselects the pixel at (x, y).
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	idx := y*m.Width + x
	if m.bits[idx] == v {
		return
	}
	m.bits[idx] = v
	if v {
		m.count++
	} else {
		m.count--
	}
}

// Count returns the number of selected pixels.
func (m *Mask) Count() int {
	return m.count
}

// Extractor builds skin masks from detection results. It holds no state of
// its own; the non-shareable state lives in the Detector the worker owns.
type Extractor struct{}

// NewExtractor returns a mask extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract produces the analyzable-pixel mask for a detection. When the
// capability found no face it returns an empty mask and success=false,
// which callers record as a normal outcome.
func (e *Extractor) Extract(img image.Image, det facedetect.Detection) (*Mask, bool) {
	bounds := img.Bounds()
	mask := NewMask(bounds.Dx(), bounds.Dy())

	if !det.Found || len(det.FaceBoundary) < 3 {
		return mask, false
	}

	fillPolygon(mask, det.FaceBoundary, true)
	for _, exclusion := range det.Exclusions {
		if len(exclusion) < 3 {
			continue
		}
		fillPolygon(mask, exclusion, false)
	}

	return mask, true
}

// fillPolygon rasterizes a closed polygon into the mask using even-odd
// scanline filling. Sampling happens at pixel centers (y + 0.5) so
// horizontal edges never produce degenerate intersections.
func fillPolygon(mask *Mask, polygon []image.Point, value bool) {
	minY, maxY := polygon[0].Y, polygon[0].Y
	for _, p := range polygon[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= mask.Height {
		maxY = mask.Height - 1
	}

	xs := make([]float64, 0, len(polygon))
	for y := minY; y <= maxY; y++ {
		sampleY := float64(y) + 0.5
		xs = xs[:0]

		for i := range polygon {
			a := polygon[i]
			b := polygon[(i+1)%len(polygon)]
			ay, by := float64(a.Y), float64(b.Y)
			if (ay <= sampleY) == (by <= sampleY) {
				continue
			}
			t := (sampleY - ay) / (by - ay)
			xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
		}

		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			start := int(xs[i] + 0.5)
			end := int(xs[i+1] - 0.5)
			for x := start; x <= end; x++ {
				mask.Set(x, y, value)
			}
		}
	}
}
