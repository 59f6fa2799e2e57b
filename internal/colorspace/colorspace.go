// Package colorspace converts RGB pixels into the hue/saturation/lightness
// representation the analysis pipeline works in. Conversion is pure and
// deterministic; the only failure mode is a shape disagreement between the
// image and its mask, which indicates a pipeline bug upstream.
package colorspace

import (
	"image"
	"math"

	"github.com/facetone/facetone-go/internal/errors"
	"github.com/facetone/facetone-go/internal/region"
)

// ErrShapeMismatch indicates the mask dimensions do not match the image
// bounds. This is a contract violation between extractor and converter,
// never a property of the input photo.
var ErrShapeMismatch = errors.NewStd("mask shape does not match image bounds")

// HSL is one pixel in hue/saturation/lightness space. Hue is in degrees
// [0, 360); saturation and lightness are in [0, 1].
type HSL struct {
	H float64
	S float64
	L float64
}

// Convert converts a single 8-bit RGB pixel to HSL.
func Convert(r, g, b uint8) HSL {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	l := (maxC + minC) / 2

	var s float64
	if delta != 0 {
		s = delta / (1 - math.Abs(2*l-1))
	}

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	// Clamp the circular boundary so hue stays in [0, 360).
	if h >= 360 {
		h -= 360
	}

	return HSL{H: h, S: clampUnit(s), L: clampUnit(l)}
}

// ConvertMasked converts every masked pixel of img to HSL, one output row
// per true mask cell, in row-major mask order. No value-range filtering
// happens here: every masked pixel produces exactly one row.
func ConvertMasked(img image.Image, mask *region.Mask) ([]HSL, error) {
	bounds := img.Bounds()
	if mask == nil || mask.Width != bounds.Dx() || mask.Height != bounds.Dy() {
		maskW, maskH := 0, 0
		if mask != nil {
			maskW, maskH = mask.Width, mask.Height
		}
		return nil, errors.New(ErrShapeMismatch).
			Component("colorspace").
			Category(errors.CategoryColorPipeline).
			Context("image_width", bounds.Dx()).
			Context("image_height", bounds.Dy()).
			Context("mask_width", maskW).
			Context("mask_height", maskH).
			Build()
	}

	points := make([]HSL, 0, mask.Count())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			points = append(points, Convert(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
		}
	}
	return points, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
