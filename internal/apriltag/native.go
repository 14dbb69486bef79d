package apriltag

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// handle is an opaque pointer owned by the native library.
type handle = unsafe.Pointer

// native is the set of libapriltag entry points the binding drives. The cgo
// implementation calls through symbols resolved with dlsym; tests substitute
// an in-memory fake.
//
// List accessors read the mirrored zarray_t layout directly instead of
// calling zarray_get, which some builds only provide as a static inline.
type native interface {
	detectorCreate() handle
	detectorDestroy(td handle)
	detectorConfigure(td handle, p nativeParams)
	detectorEnableQuadContours(td handle)
	detectorAddFamily(td, fam handle)
	detect(td, img handle) handle

	familyCreate(name string) handle
	familySetBorder(fam handle, border int)
	familyList() handle
	familyListLen(list handle) int
	familyListName(list handle, i int) string
	familyListDestroy(list handle)

	imageCreate(width, height int) handle
	imageBuffer(img handle) (width, height, stride int, buf []byte)
	imageDestroy(img handle)

	detectionsLen(list handle) int
	detectionAt(list handle, i int) (rawDetection, bool)
	detectionsDestroy(list handle)
	visDetections(list, img handle)

	unload() error
}

// rawDetection is the field-by-field copy of one apriltag_detection_t.
// homography is nil when the native H pointer was null; hasFamily is false
// when the family pointer or its name was null.
type rawDetection struct {
	family         string
	hasFamily      bool
	id             int
	hamming        int
	goodness       float32
	decisionMargin float32
	hRows, hCols   int
	homography     []float64
	center         [2]float64
	corners        [4][2]float64
}

// Library is a loaded libapriltag with all entry points bound. One Library
// may back any number of Detectors; it must outlive all of them.
type Library struct {
	native native
	path   string

	closeOnce sync.Once
	closeErr  error
	unloaded  atomic.Bool
}

// Path is the candidate path the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Close unloads the library. Detectors created from it must be closed first.
// Calling Close more than once is safe.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		l.unloaded.Store(true)
		l.closeErr = l.native.unload()
	})
	return l.closeErr
}
