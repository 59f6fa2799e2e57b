// Package facedetect defines the boundary to the external face detection
// capability. The capability is a black box: it either finds a face and
// returns landmark polygons, reports that no face is present, or fails on
// input it cannot process. Detector handles are NOT safe for concurrent use;
// every analysis worker must own its own instance created through a Factory.
package facedetect

import (
	"image"
)

// Detection is the capability's result for one image. When Found is false
// the remaining fields are empty; that is a normal outcome, not an error.
type Detection struct {
	Found bool

	// FaceBoundary is the outer polygon of the detected skin region.
	FaceBoundary []image.Point

	// Exclusions are sub-region polygons (eyes, eyebrows, lips) that must
	// be removed from the mask even when geometrically inside FaceBoundary.
	Exclusions [][]image.Point
}

// Detector is a single capability handle. Implementations are not
// goroutine-safe: callers must never share one handle across goroutines.
type Detector interface {
	// Detect locates the face region in a decoded image. A missing face is
	// reported via Detection.Found=false with a nil error; an error means
	// the capability could not process the image at all.
	Detect(img image.Image) (Detection, error)

	// Close releases the capability handle.
	Close() error
}

// Factory creates independent Detector instances. The analysis pool calls
// it lazily, once per worker goroutine.
type Factory interface {
	NewDetector() (Detector, error)
}

// FactoryFunc adapts a plain constructor function to the Factory interface.
type FactoryFunc func() (Detector, error)

// NewDetector calls f.
func (f FactoryFunc) NewDetector() (Detector, error) {
	return f()
}
