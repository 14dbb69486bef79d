// Package imaging prepares images for tag detection and renders results.
//
// It loads image files (with EXIF auto-orientation) into a shared cache,
// converts them to the 8-bit grayscale buffers the detector consumes, crops
// regions of interest and draws detections back onto a color copy for
// inspection.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner, X
// growing rightward and Y downward. Regions are half-open: (X1, Y1) is
// inclusive and (X2, Y2) exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their input images.
package imaging
