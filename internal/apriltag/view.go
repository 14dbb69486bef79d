package apriltag

import (
	"fmt"
	"image"
)

// ImageView is a bounds-checked 8-bit view over a row-major pixel buffer
// whose rows are Stride bytes long, of which only the first Width bytes are
// pixels. The remaining Stride-Width bytes per row are alignment padding and
// are never exposed.
//
// A view over native memory is only valid until the native image is
// destroyed; copy out with Gray before that.
type ImageView struct {
	width, height, stride int
	buf                   []byte
}

// NewImageView wraps buf. It fails if the geometry is negative, the stride is
// narrower than the width or buf is shorter than height*stride.
func NewImageView(width, height, stride int, buf []byte) (ImageView, error) {
	if width < 0 || height < 0 {
		return ImageView{}, fmt.Errorf("negative image size %dx%d", width, height)
	}
	if stride < width {
		return ImageView{}, fmt.Errorf("stride %d narrower than width %d", stride, width)
	}
	if len(buf) < height*stride {
		return ImageView{}, fmt.Errorf("buffer holds %d bytes, need %d", len(buf), height*stride)
	}
	return ImageView{width: width, height: height, stride: stride, buf: buf[:height*stride]}, nil
}

func (v ImageView) Width() int  { return v.width }
func (v ImageView) Height() int { return v.height }
func (v ImageView) Stride() int { return v.stride }

// Row returns the width visible pixels of row y, or nil if y is out of range.
// The slice aliases the underlying buffer and its capacity stops at the
// padding.
func (v ImageView) Row(y int) []byte {
	if y < 0 || y >= v.height {
		return nil
	}
	off := y * v.stride
	return v.buf[off : off+v.width : off+v.width]
}

// At returns the pixel at (x, y), or 0 outside the visible area.
func (v ImageView) At(x, y int) uint8 {
	if x < 0 || x >= v.width || y < 0 || y >= v.height {
		return 0
	}
	return v.buf[y*v.stride+x]
}

// Set writes the pixel at (x, y). Writes outside the visible area are ignored.
func (v ImageView) Set(x, y int, val uint8) {
	if x < 0 || x >= v.width || y < 0 || y >= v.height {
		return
	}
	v.buf[y*v.stride+x] = val
}

// CopyFrom copies img into the visible area row by row. img must have the
// same dimensions as the view; padding bytes are left untouched.
func (v ImageView) CopyFrom(img *image.Gray) error {
	b := img.Bounds()
	if b.Dx() != v.width || b.Dy() != v.height {
		return fmt.Errorf("image is %dx%d, view is %dx%d", b.Dx(), b.Dy(), v.width, v.height)
	}
	for y := 0; y < v.height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(v.Row(y), img.Pix[off:off+v.width])
	}
	return nil
}

// Gray copies the visible area into a new, tightly packed image.
func (v ImageView) Gray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, v.width, v.height))
	for y := 0; y < v.height; y++ {
		copy(out.Pix[y*out.Stride:], v.Row(y))
	}
	return out
}

// checkGray enforces the marshaller preconditions: a non-nil, non-empty
// 8-bit image whose pixel slice covers every row it claims.
func checkGray(img *image.Gray) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, b)
	}
	if img.Stride < b.Dx() {
		return fmt.Errorf("%w: stride %d narrower than width %d", ErrInvalidImage, img.Stride, b.Dx())
	}
	last := img.PixOffset(b.Min.X, b.Max.Y-1) + b.Dx()
	if img.PixOffset(b.Min.X, b.Min.Y) < 0 || last > len(img.Pix) {
		return fmt.Errorf("%w: pixel buffer holds %d bytes, bounds %v need %d", ErrInvalidImage, len(img.Pix), b, last)
	}
	return nil
}
