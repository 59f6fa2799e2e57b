package pointcloud

import (
	"encoding/binary"
	"math"

	"github.com/facetone/facetone-go/internal/colorspace"
	"github.com/facetone/facetone-go/internal/errors"
)

// Point clouds are persisted as little-endian float32 triples. Float32 keeps
// the payload at 12 bytes per point, well within visual precision for
// display and statistics recomputation.
const pointSize = 12

// Encode serializes a point cloud for storage.
func Encode(points []colorspace.HSL) []byte {
	buf := make([]byte, len(points)*pointSize)
	for i := range points {
		offset := i * pointSize
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(float32(points[i].H)))
		binary.LittleEndian.PutUint32(buf[offset+4:], math.Float32bits(float32(points[i].S)))
		binary.LittleEndian.PutUint32(buf[offset+8:], math.Float32bits(float32(points[i].L)))
	}
	return buf
}

// Decode deserializes a stored point cloud.
func Decode(data []byte) ([]colorspace.HSL, error) {
	if len(data)%pointSize != 0 {
		return nil, errors.Newf("point cloud payload length %d is not a multiple of %d", len(data), pointSize).
			Component("pointcloud").
			Category(errors.CategoryValidation).
			Build()
	}
	points := make([]colorspace.HSL, len(data)/pointSize)
	for i := range points {
		offset := i * pointSize
		points[i] = colorspace.HSL{
			H: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))),
			S: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4:]))),
			L: float64(math.Float32frombits(binary.LittleEndian.Uint32(data[offset+8:]))),
		}
	}
	return points, nil
}
