package apriltag

import (
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Matrix is an owned, row-major copy of a native matd_t.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix copies data into a rows x cols matrix. It panics if the length
// does not match.
func NewMatrix(rows, cols int, data []float64) Matrix {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		panic(fmt.Sprintf("apriltag: matrix %dx%d needs %d values, got %d", rows, cols, rows*cols, len(data)))
	}
	return Matrix{rows: rows, cols: cols, data: append([]float64(nil), data...)}
}

func (m Matrix) Rows() int { return m.rows }
func (m Matrix) Cols() int { return m.cols }

// At returns the entry at row r, column c.
func (m Matrix) At(r, c int) float64 {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("apriltag: matrix index (%d,%d) out of range %dx%d", r, c, m.rows, m.cols))
	}
	return m.data[r*m.cols+c]
}

// Values returns a fresh [][]float64 copy of the matrix.
func (m Matrix) Values() [][]float64 {
	out := make([][]float64, m.rows)
	for r := range out {
		out[r] = append([]float64(nil), m.data[r*m.cols:(r+1)*m.cols]...)
	}
	return out
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m.Values())
}

func (m Matrix) String() string {
	return formatRows(m.Values())
}

// Detection is one located and decoded tag. All fields are copies; nothing
// refers to native memory.
type Detection struct {
	// Family is the name of the tag family that decoded this tag.
	Family string `json:"family"`

	// ID is the decoded tag id within the family.
	ID int `json:"id"`

	// Hamming is the number of bit errors corrected while decoding.
	Hamming int `json:"hamming"`

	Goodness       float32 `json:"goodness"`
	DecisionMargin float32 `json:"decision_margin"`

	// Homography maps tag-plane coordinates to image pixels.
	Homography Matrix `json:"homography"`

	// Center of the tag in image pixel coordinates.
	Center [2]float64 `json:"center"`

	// Corners in image pixels, wrapping counter-clockwise around the tag as
	// the native detector reports them.
	Corners [4][2]float64 `json:"corners"`
}

// Translate returns a copy of d shifted by (dx, dy) pixels, with the
// homography premultiplied by the matching translation. It is used to map
// detections from a cropped region back to the full image.
func (d Detection) Translate(dx, dy float64) Detection {
	out := d
	out.Center = [2]float64{d.Center[0] + dx, d.Center[1] + dy}
	for i, p := range d.Corners {
		out.Corners[i] = [2]float64{p[0] + dx, p[1] + dy}
	}
	if d.Homography.rows == 3 && d.Homography.cols == 3 {
		h := append([]float64(nil), d.Homography.data...)
		for c := 0; c < 3; c++ {
			h[c] += dx * d.Homography.data[6+c]
			h[3+c] += dy * d.Homography.data[6+c]
		}
		out.Homography = Matrix{rows: 3, cols: 3, data: h}
	}
	return out
}

var detectionLabels = []string{
	"Family",
	"ID",
	"Hamming error",
	"Goodness",
	"Decision margin",
	"Homography",
	"Center",
	"Corners",
}

var detectionLabelWidth = func() int {
	w := 0
	for _, l := range detectionLabels {
		if len(l) > w {
			w = len(l)
		}
	}
	return w
}()

func (d Detection) String() string {
	return d.Indent(0)
}

// Indent renders the detection as one labelled line per field, labels
// right-aligned to the widest label plus indent. Continuation lines of
// multi-line values start under the value column.
func (d Detection) Indent(indent int) string {
	corners := make([][]float64, len(d.Corners))
	for i, p := range d.Corners {
		corners[i] = []float64{p[0], p[1]}
	}
	values := []string{
		d.Family,
		strconv.Itoa(d.ID),
		strconv.Itoa(d.Hamming),
		formatFloat(float64(d.Goodness)),
		formatFloat(float64(d.DecisionMargin)),
		d.Homography.String(),
		formatRow(d.Center[:], 0),
		formatRows(corners),
	}

	pad := strings.Repeat(" ", detectionLabelWidth+2+indent)
	lines := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, "\n", "\n"+pad)
		lines[i] = fmt.Sprintf("%*s: %s", detectionLabelWidth+indent, detectionLabels[i], v)
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// formatRow renders values as "[a b c]", each right-aligned to width.
func formatRow(values []float64, width int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%*s", width, formatFloat(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// formatRows renders a matrix one row per line, columns aligned.
func formatRows(rows [][]float64) string {
	width := 0
	for _, row := range rows {
		for _, v := range row {
			if n := len(formatFloat(v)); n > width {
				width = n
			}
		}
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = formatRow(row, width)
		if i > 0 {
			lines[i] = " " + lines[i]
		}
	}
	return "[" + strings.Join(lines, "\n") + "]"
}
