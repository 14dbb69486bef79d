package apriltag

import (
	"image"
	"sort"
	"testing"
)

// fakeObject stands in for every native allocation the binding makes.
type fakeObject struct {
	kind string

	// image_u8_t
	width, height, stride int
	buf                   []byte

	// apriltag_family_t
	name   string
	border int

	// zarray_t
	names  []string
	dets   []rawDetection
	nullAt int

	// apriltag_detector_t
	params   nativeParams
	contours bool
	added    []*fakeObject
}

// fakeNative is an in-memory libapriltag. It tracks every live handle so
// tests can assert that nothing leaks and nothing is freed twice.
type fakeNative struct {
	t *testing.T

	registry    []string
	detections  []rawDetection
	nullAt      int
	padding     int
	failCreate  bool
	failDetect  bool
	failList    bool
	failImage   bool
	shrinkImage bool
	negativeLen bool
	unloaded    bool

	live      map[handle]*fakeObject
	created   map[string]int
	destroyed map[string]int

	lastDetector *fakeObject
	lastInput    *image.Gray
	visCalls     int
	unloadCalls  int
}

func newFakeNative(t *testing.T, registry ...string) *fakeNative {
	t.Helper()
	return &fakeNative{
		t:         t,
		registry:  registry,
		nullAt:    -1,
		padding:   13,
		live:      make(map[handle]*fakeObject),
		created:   make(map[string]int),
		destroyed: make(map[string]int),
	}
}

func newFakeLibrary(f *fakeNative) *Library {
	return &Library{native: f, path: "fake"}
}

// touch flags any entry point reached after the library was unloaded.
func (f *fakeNative) touch(call string) {
	if f.unloaded {
		f.t.Errorf("%s called on an unloaded library", call)
	}
}

func (f *fakeNative) alloc(o *fakeObject) handle {
	f.touch("alloc " + o.kind)
	h := handle(o)
	f.live[h] = o
	f.created[o.kind]++
	return h
}

func (f *fakeNative) get(h handle, kind string) *fakeObject {
	f.touch("use of " + kind)
	o, ok := f.live[h]
	if !ok {
		f.t.Fatalf("use of unknown or freed %s handle %p", kind, h)
	}
	if o.kind != kind {
		f.t.Fatalf("handle %p is a %s, used as %s", h, o.kind, kind)
	}
	return o
}

func (f *fakeNative) release(h handle, kind string) {
	f.get(h, kind)
	delete(f.live, h)
	f.destroyed[kind]++
}

// leaks lists live per-call handles. Detectors and the families they own
// are checked by the lifecycle tests instead.
func (f *fakeNative) leaks() []string {
	var out []string
	for _, o := range f.live {
		if o.kind == "family" || o.kind == "detector" {
			continue
		}
		out = append(out, o.kind)
	}
	sort.Strings(out)
	return out
}

func (f *fakeNative) assertNoLeaks(t *testing.T) {
	t.Helper()
	if leaks := f.leaks(); len(leaks) != 0 {
		t.Errorf("native handles leaked: %v", leaks)
	}
}

func (f *fakeNative) detectorCreate() handle {
	if f.failCreate {
		return nil
	}
	o := &fakeObject{kind: "detector"}
	f.lastDetector = o
	return f.alloc(o)
}

func (f *fakeNative) detectorDestroy(td handle) {
	f.release(td, "detector")
}

func (f *fakeNative) detectorConfigure(td handle, p nativeParams) {
	f.get(td, "detector").params = p
}

func (f *fakeNative) detectorEnableQuadContours(td handle) {
	f.get(td, "detector").contours = true
}

func (f *fakeNative) detectorAddFamily(td, fam handle) {
	d := f.get(td, "detector")
	d.added = append(d.added, f.get(fam, "family"))
}

func (f *fakeNative) detect(td, img handle) handle {
	f.get(td, "detector")
	in := f.get(img, "image")
	view, err := NewImageView(in.width, in.height, in.stride, in.buf)
	if err != nil {
		f.t.Fatalf("fake detect: %v", err)
	}
	f.lastInput = view.Gray()
	if f.failDetect {
		return nil
	}
	return f.alloc(&fakeObject{
		kind:   "detections",
		dets:   append([]rawDetection(nil), f.detections...),
		nullAt: f.nullAt,
	})
}

func (f *fakeNative) familyCreate(name string) handle {
	f.touch("familyCreate")
	for _, n := range f.registry {
		if n == name {
			return f.alloc(&fakeObject{kind: "family", name: name})
		}
	}
	return nil
}

func (f *fakeNative) familySetBorder(fam handle, border int) {
	f.get(fam, "family").border = border
}

func (f *fakeNative) familyList() handle {
	if f.failList {
		return nil
	}
	return f.alloc(&fakeObject{kind: "family_list", names: append([]string(nil), f.registry...)})
}

func (f *fakeNative) familyListLen(list handle) int {
	return len(f.get(list, "family_list").names)
}

func (f *fakeNative) familyListName(list handle, i int) string {
	return f.get(list, "family_list").names[i]
}

func (f *fakeNative) familyListDestroy(list handle) {
	f.release(list, "family_list")
}

func (f *fakeNative) imageCreate(width, height int) handle {
	if f.failImage {
		return nil
	}
	stride := width + f.padding
	buf := make([]byte, height*stride)
	for i := range buf {
		buf[i] = 0xEE
	}
	if f.shrinkImage {
		width--
	}
	return f.alloc(&fakeObject{kind: "image", width: width, height: height, stride: stride, buf: buf})
}

func (f *fakeNative) imageBuffer(img handle) (int, int, int, []byte) {
	o := f.get(img, "image")
	return o.width, o.height, o.stride, o.buf
}

func (f *fakeNative) imageDestroy(img handle) {
	f.release(img, "image")
}

func (f *fakeNative) detectionsLen(list handle) int {
	if f.negativeLen {
		f.get(list, "detections")
		return -1
	}
	return len(f.get(list, "detections").dets)
}

func (f *fakeNative) detectionAt(list handle, i int) (rawDetection, bool) {
	o := f.get(list, "detections")
	if i == o.nullAt {
		return rawDetection{}, false
	}
	return o.dets[i], true
}

func (f *fakeNative) detectionsDestroy(list handle) {
	f.release(list, "detections")
}

// visDetections paints the visible area 0x80 and leaves padding at 0xEE.
func (f *fakeNative) visDetections(list, img handle) {
	f.get(list, "detections")
	o := f.get(img, "image")
	for y := 0; y < o.height; y++ {
		for x := 0; x < o.width; x++ {
			o.buf[y*o.stride+x] = 0x80
		}
	}
	f.visCalls++
}

func (f *fakeNative) unload() error {
	f.unloadCalls++
	f.unloaded = true
	return nil
}

// fakeDetection builds a well-formed raw detection whose values derive
// from id so tests can tell records apart.
func fakeDetection(family string, id int) rawDetection {
	base := float64(id)
	return rawDetection{
		family:         family,
		hasFamily:      true,
		id:             id,
		hamming:        id % 3,
		goodness:       0,
		decisionMargin: float32(50 + id),
		hRows:          3,
		hCols:          3,
		homography:     []float64{base, 0, 10, 0, base, 20, 0, 0, 1},
		center:         [2]float64{10 + base, 20 + base},
		corners: [4][2]float64{
			{base, base},
			{base + 5, base},
			{base + 5, base + 5},
			{base, base + 5},
		},
	}
}

func newGray(width, height int, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

func gradientGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*7 + y*13) % 256)
		}
	}
	return img
}
