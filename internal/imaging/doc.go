// Package imaging holds the pixel data of an acquisition and the plumbing
// needed to move it between files, the pure-Go analyzers and OpenCV.
//
// # Layout
//
// An Image is either a single focal plane or a stack of planes. A stack is
// a depth stack (z-scan, acquisition order) or a tile stack (one plane per
// tile of a multi-position acquisition). Consumers must check Layout before
// giving meaning to a plane index.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: column (0 = leftmost pixel)
//   - Y: row (0 = topmost pixel)
//
// Planes are stored row-major as float64 samples so 8-bit and 16-bit
// acquisitions share one representation.
//
// # Thread Safety
//
// The PlaneCache type is safe for concurrent use. Planes and Images are
// treated as immutable once loaded and may be shared freely between
// analyzers.
//
// # OpenCV Bridge
//
// ToMat and ToMat8 copy a plane into a gocv.Mat for the contour-based
// analyzers. The caller owns every Mat returned and must Close it.
package imaging
