package imaging

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/apriltag-tools/internal/apriltag"
)

// Annotate returns a color copy of img with every detection outlined, its
// center marked and its id printed next to the center. Each detection gets
// its own hue; the first edge (corner 0 to corner 1) is drawn in white so
// the tag's orientation is visible.
func Annotate(img image.Image, dets []apriltag.Detection) *image.NRGBA {
	dst := imaging.Clone(img)
	palette := detectionPalette(len(dets))
	white := color.NRGBA{255, 255, 255, 255}

	// Clone rebases to (0, 0); detections are in the source coordinates.
	off := img.Bounds().Min

	for i, d := range dets {
		c := palette[i]
		for k := 0; k < 4; k++ {
			p := d.Corners[k]
			q := d.Corners[(k+1)%4]
			edge := c
			if k == 0 {
				edge = white
			}
			drawLine(dst,
				int(p[0])-off.X, int(p[1])-off.Y,
				int(q[0])-off.X, int(q[1])-off.Y, edge)
		}

		cx, cy := int(d.Center[0])-off.X, int(d.Center[1])-off.Y
		drawLine(dst, cx-3, cy, cx+3, cy, c)
		drawLine(dst, cx, cy-3, cx, cy+3, c)
		drawText(dst, cx+5, cy-5, strconv.Itoa(d.ID), c)
	}
	return dst
}

// detectionPalette spreads n hues evenly around the HCL wheel at a fixed
// chroma and lightness.
func detectionPalette(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		h := 360.0 * float64(i) / float64(n)
		r, g, b := colorful.Hcl(h, 0.9, 0.6).Clamped().RGB255()
		out[i] = color.NRGBA{r, g, b, 255}
	}
	return out
}

// drawLine rasterizes a segment with Bresenham's algorithm, clipped to the
// image bounds.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	b := img.Bounds()
	for {
		if (image.Point{x0, y0}).In(b) {
			img.SetNRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawText(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
