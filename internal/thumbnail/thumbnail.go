// Package thumbnail renders bounded-size preview images for the derived
// artifact cache. A box filter over the source pixels keeps the result
// stable for downscaling, which is the only direction the cache needs.
package thumbnail

import (
	"bytes"
	"image"
	"image/png"

	"github.com/facetone/facetone-go/internal/errors"
)

// Render scales img so its longest edge is at most maxDim pixels and encodes
// the result as PNG. Images already within bounds are re-encoded unscaled.
// It returns the payload and the thumbnail dimensions.
func Render(img image.Image, maxDim int) ([]byte, int, int, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, 0, 0, errors.Newf("cannot render thumbnail of empty %dx%d image", srcW, srcH).
			Component("thumbnail").
			Category(errors.CategoryValidation).
			Build()
	}

	dstW, dstH := srcW, srcH
	if srcW > maxDim || srcH > maxDim {
		if srcW >= srcH {
			dstW = maxDim
			dstH = srcH * maxDim / srcW
		} else {
			dstH = maxDim
			dstW = srcW * maxDim / srcH
		}
		if dstW < 1 {
			dstW = 1
		}
		if dstH < 1 {
			dstH = 1
		}
	}

	dst := scaleBox(img, dstW, dstH)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, 0, 0, errors.New(err).
			Component("thumbnail").
			Category(errors.CategoryFileIO).
			Context("operation", "png-encode").
			Build()
	}
	return buf.Bytes(), dstW, dstH, nil
}

// scaleBox averages each destination pixel over its source pixel box.
func scaleBox(src image.Image, dstW, dstH int) *image.RGBA {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))

	for dy := 0; dy < dstH; dy++ {
		y0 := dy * srcH / dstH
		y1 := (dy + 1) * srcH / dstH
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for dx := 0; dx < dstW; dx++ {
			x0 := dx * srcW / dstW
			x1 := (dx + 1) * srcW / dstW
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sumR, sumG, sumB, sumA uint64
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					r, g, b, a := src.At(bounds.Min.X+sx, bounds.Min.Y+sy).RGBA()
					sumR += uint64(r)
					sumG += uint64(g)
					sumB += uint64(b)
					sumA += uint64(a)
				}
			}
			samples := uint64((y1 - y0) * (x1 - x0))
			offset := dst.PixOffset(dx, dy)
			dst.Pix[offset+0] = uint8(sumR / samples >> 8)
			dst.Pix[offset+1] = uint8(sumG / samples >> 8)
			dst.Pix[offset+2] = uint8(sumB / samples >> 8)
			dst.Pix[offset+3] = uint8(sumA / samples >> 8)
		}
	}
	return dst
}
