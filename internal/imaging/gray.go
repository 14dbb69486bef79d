package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// ToGray returns img as an 8-bit grayscale image suitable for detection.
//
// *image.Gray inputs are returned unchanged. Everything else is converted
// with bild's luminance weights (0.3 R, 0.6 G, 0.1 B) and packed into one
// byte per pixel. The result's origin is (0, 0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	// bild writes the same luminance into R, G and B of an RGBA image.
	rgba := effect.Grayscale(img)
	out := image.NewGray(rgba.Bounds())
	for i := range out.Pix {
		out.Pix[i] = rgba.Pix[4*i]
	}
	return out
}
