package apriltag

import (
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Detect runs the native detector over img.
//
// Parameters:
//   - img: 8-bit grayscale input. Its bounds may start anywhere and its
//     stride may exceed its width; only the visible pixels are copied.
//
// Returns:
//   - []Detection: Every detection, in the order the native library produced
//     them. Empty, not nil, when nothing was found.
//   - error: Non-nil on failure, in which case no partial results are returned.
//
// # Errors
//
//   - ErrClosed: the detector was closed.
//   - ErrLibraryClosed: the Library was closed.
//   - ErrInvalidImage: img is nil, empty or its pixel buffer is too short.
//   - ErrNativeCall: the native library returned a null or malformed result.
//
// Native buffers allocated for the call are released before Detect returns,
// on success and failure alike.
func (d *Detector) Detect(img *image.Gray) ([]Detection, error) {
	dets, _, err := d.detect(img, false)
	return dets, err
}

// DetectWithVisualization is Detect plus the native visualization: an image
// with the same bounds size as img onto which the library drew the
// detections.
func (d *Detector) DetectWithVisualization(img *image.Gray) ([]Detection, *image.Gray, error) {
	return d.detect(img, true)
}

func (d *Detector) detect(img *image.Gray, wantVisual bool) ([]Detection, *image.Gray, error) {
	if err := d.usable(); err != nil {
		return nil, nil, err
	}
	if err := checkGray(img); err != nil {
		return nil, nil, err
	}

	log := d.log.WithFields(logrus.Fields{
		"call_id": uuid.NewString(),
		"width":   img.Bounds().Dx(),
		"height":  img.Bounds().Dy(),
	})

	n := d.lib.native
	cimg, err := d.toNative(img)
	if err != nil {
		return nil, nil, err
	}
	defer n.imageDestroy(cimg)

	list := n.detect(d.td, cimg)
	if list == nil {
		return nil, nil, fmt.Errorf("%w: apriltag_detector_detect returned null", ErrNativeCall)
	}
	defer n.detectionsDestroy(list)

	count := n.detectionsLen(list)
	if count < 0 {
		return nil, nil, fmt.Errorf("%w: detection list reports %d entries", ErrNativeCall, count)
	}
	dets := make([]Detection, 0, count)
	for i := 0; i < count; i++ {
		raw, ok := n.detectionAt(list, i)
		if !ok {
			return nil, nil, fmt.Errorf("%w: detection %d of %d is null", ErrNativeCall, i, count)
		}
		det, err := raw.toDetection()
		if err != nil {
			return nil, nil, fmt.Errorf("detection %d: %w", i, err)
		}
		dets = append(dets, det)
	}

	var vis *image.Gray
	if wantVisual {
		b := img.Bounds()
		vis, err = d.visualize(list, b.Dx(), b.Dy())
		if err != nil {
			return nil, nil, err
		}
	}

	log.WithField("detections", len(dets)).Debug("apriltag detect")
	return dets, vis, nil
}

// toNative copies img into a freshly created native image. On error the
// native image, if any, is already destroyed.
func (d *Detector) toNative(img *image.Gray) (handle, error) {
	b := img.Bounds()
	cimg, view, err := d.createImage(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	if err := view.CopyFrom(img); err != nil {
		d.lib.native.imageDestroy(cimg)
		return nil, fmt.Errorf("%w: %v", ErrNativeCall, err)
	}
	return cimg, nil
}

// createImage allocates a native image and checks that the buffer it got
// back matches the requested geometry.
func (d *Detector) createImage(width, height int) (handle, ImageView, error) {
	n := d.lib.native
	cimg := n.imageCreate(width, height)
	if cimg == nil {
		return nil, ImageView{}, fmt.Errorf("%w: image_u8_create(%d, %d) returned null", ErrNativeCall, width, height)
	}
	w, h, stride, buf := n.imageBuffer(cimg)
	if w != width || h != height {
		n.imageDestroy(cimg)
		return nil, ImageView{}, fmt.Errorf("%w: image_u8_create(%d, %d) produced %dx%d", ErrNativeCall, width, height, w, h)
	}
	view, err := NewImageView(w, h, stride, buf)
	if err != nil {
		n.imageDestroy(cimg)
		return nil, ImageView{}, fmt.Errorf("%w: %v", ErrNativeCall, err)
	}
	return cimg, view, nil
}

// visualize draws the detections onto a native overlay of the given size
// and returns an owned copy of its visible area.
func (d *Detector) visualize(list handle, width, height int) (*image.Gray, error) {
	n := d.lib.native
	overlay, view, err := d.createImage(width, height)
	if err != nil {
		return nil, err
	}
	defer n.imageDestroy(overlay)

	n.visDetections(list, overlay)
	return view.Gray(), nil
}

func (r rawDetection) toDetection() (Detection, error) {
	if !r.hasFamily {
		return Detection{}, fmt.Errorf("%w: null family", ErrNativeCall)
	}
	if r.homography == nil {
		return Detection{}, fmt.Errorf("%w: null homography", ErrNativeCall)
	}
	if len(r.homography) != r.hRows*r.hCols {
		return Detection{}, fmt.Errorf("%w: homography %dx%d has %d values", ErrNativeCall, r.hRows, r.hCols, len(r.homography))
	}
	return Detection{
		Family:         r.family,
		ID:             r.id,
		Hamming:        r.hamming,
		Goodness:       r.goodness,
		DecisionMargin: r.decisionMargin,
		Homography:     NewMatrix(r.hRows, r.hCols, r.homography),
		Center:         r.center,
		Corners:        r.corners,
	}, nil
}
