//go:build cgo && (linux || darwin)

package apriltag

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

// Layout mirrors of the libapriltag structures the binding reads or writes.
// Only the leading fields of at_detector are mirrored; the binding never
// allocates one.

typedef struct {
	int32_t width;
	int32_t height;
	int32_t stride;
	uint8_t *buf;
} at_image_u8;

typedef struct {
	unsigned int nrows;
	unsigned int ncols;
	double data[];
} at_matd;

typedef struct {
	size_t el_sz;
	int size;
	int alloc;
	char *data;
} at_zarray;

typedef struct {
	uint32_t ncodes;
	uint64_t *codes;
	uint32_t black_border;
	uint32_t d;
	uint32_t h;
	char *name;
} at_family;

typedef struct {
	at_family *family;
	int id;
	int hamming;
	float goodness;
	float decision_margin;
	at_matd *H;
	double c[2];
	double p[4][2];
} at_detection;

typedef struct {
	int nthreads;
	float quad_decimate;
	float quad_sigma;
	int refine_edges;
	int refine_decode;
	int refine_pose;
	int debug;
	int quad_contours;
} at_detector;

typedef struct {
	void *dl;
	at_detector *(*detector_create)(void);
	void (*detector_destroy)(at_detector *);
	void (*detector_add_family)(at_detector *, at_family *);
	void (*detector_enable_quad_contours)(at_detector *, int);
	at_zarray *(*detector_detect)(at_detector *, at_image_u8 *);
	void (*detections_destroy)(at_zarray *);
	at_family *(*family_create)(const char *);
	at_zarray *(*family_list)(void);
	void (*family_list_destroy)(at_zarray *);
	void (*vis_detections)(at_zarray *, at_image_u8 *);
	at_image_u8 *(*image_u8_create)(unsigned int, unsigned int);
	void (*image_u8_destroy)(at_image_u8 *);
} at_lib;

static at_lib *at_open(const char *path) {
	void *dl = dlopen(path, RTLD_NOW | RTLD_LOCAL);
	if (dl == NULL) {
		return NULL;
	}
	at_lib *l = calloc(1, sizeof(at_lib));
	if (l == NULL) {
		dlclose(dl);
		return NULL;
	}
	l->dl = dl;
	return l;
}

static const char *at_last_error(void) {
	const char *msg = dlerror();
	return msg == NULL ? "unknown dlopen error" : msg;
}

#define AT_BIND(field, sym) \
	*(void **)(&l->field) = dlsym(l->dl, sym); \
	if (l->field == NULL) return sym;

// at_bind resolves every entry point and returns the first missing symbol
// name, or NULL when all were found.
static const char *at_bind(at_lib *l) {
	AT_BIND(detector_create, "apriltag_detector_create")
	AT_BIND(detector_destroy, "apriltag_detector_destroy")
	AT_BIND(detector_add_family, "apriltag_detector_add_family")
	AT_BIND(detector_enable_quad_contours, "apriltag_detector_enable_quad_contours")
	AT_BIND(detector_detect, "apriltag_detector_detect")
	AT_BIND(detections_destroy, "apriltag_detections_destroy")
	AT_BIND(family_create, "apriltag_family_create")
	AT_BIND(family_list, "apriltag_family_list")
	AT_BIND(family_list_destroy, "apriltag_family_list_destroy")
	AT_BIND(vis_detections, "apriltag_vis_detections")
	AT_BIND(image_u8_create, "image_u8_create")
	AT_BIND(image_u8_destroy, "image_u8_destroy")
	return NULL;
}

static int at_close(at_lib *l) {
	int rc = dlclose(l->dl);
	free(l);
	return rc;
}

static at_detector *at_detector_create(at_lib *l) { return l->detector_create(); }
static void at_detector_destroy(at_lib *l, at_detector *td) { l->detector_destroy(td); }
static void at_detector_add_family(at_lib *l, at_detector *td, at_family *f) { l->detector_add_family(td, f); }
static void at_detector_enable_quad_contours(at_lib *l, at_detector *td) { l->detector_enable_quad_contours(td, 1); }
static at_zarray *at_detector_detect(at_lib *l, at_detector *td, at_image_u8 *im) { return l->detector_detect(td, im); }
static void at_detections_destroy(at_lib *l, at_zarray *za) { l->detections_destroy(za); }
static at_family *at_family_create(at_lib *l, const char *name) { return l->family_create(name); }
static at_zarray *at_family_list(at_lib *l) { return l->family_list(); }
static void at_family_list_destroy(at_lib *l, at_zarray *za) { l->family_list_destroy(za); }
static void at_vis_detections(at_lib *l, at_zarray *za, at_image_u8 *im) { l->vis_detections(za, im); }
static at_image_u8 *at_image_create(at_lib *l, unsigned int w, unsigned int h) { return l->image_u8_create(w, h); }
static void at_image_destroy(at_lib *l, at_image_u8 *im) { l->image_u8_destroy(im); }

// at_zarray_ptr reads element i of a zarray whose elements are pointers.
static void *at_zarray_ptr(at_zarray *za, int i) {
	void *p = NULL;
	if (i < 0 || i >= za->size || za->el_sz < sizeof(void *)) {
		return NULL;
	}
	memcpy(&p, za->data + (size_t)i * za->el_sz, sizeof(void *));
	return p;
}

static void at_matd_copy(const at_matd *m, double *out) {
	memcpy(out, m->data, (size_t)m->nrows * m->ncols * sizeof(double));
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

type cLibrary struct {
	lib *C.at_lib
}

func openNative(path string) (native, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	lib := C.at_open(cPath)
	if lib == nil {
		return nil, errors.New(C.GoString(C.at_last_error()))
	}
	if missing := C.at_bind(lib); missing != nil {
		sym := C.GoString(missing)
		C.at_close(lib)
		return nil, fmt.Errorf("%w: missing symbol %s", ErrNativeCall, sym)
	}
	return &cLibrary{lib: lib}, nil
}

func (c *cLibrary) unload() error {
	if c.lib == nil {
		return nil
	}
	rc := C.at_close(c.lib)
	c.lib = nil
	if rc != 0 {
		return fmt.Errorf("dlclose: %s", C.GoString(C.at_last_error()))
	}
	return nil
}

func (c *cLibrary) detectorCreate() handle {
	return handle(C.at_detector_create(c.lib))
}

func (c *cLibrary) detectorDestroy(td handle) {
	C.at_detector_destroy(c.lib, (*C.at_detector)(td))
}

func (c *cLibrary) detectorConfigure(td handle, p nativeParams) {
	d := (*C.at_detector)(td)
	d.nthreads = C.int(p.threads)
	d.quad_decimate = C.float(p.quadDecimate)
	d.quad_sigma = C.float(p.quadSigma)
	d.refine_edges = cBool(p.refineEdges)
	d.refine_decode = cBool(p.refineDecode)
	d.refine_pose = cBool(p.refinePose)
	d.debug = cBool(p.debug)
}

func (c *cLibrary) detectorEnableQuadContours(td handle) {
	C.at_detector_enable_quad_contours(c.lib, (*C.at_detector)(td))
}

func (c *cLibrary) detectorAddFamily(td, fam handle) {
	C.at_detector_add_family(c.lib, (*C.at_detector)(td), (*C.at_family)(fam))
}

func (c *cLibrary) detect(td, img handle) handle {
	return handle(C.at_detector_detect(c.lib, (*C.at_detector)(td), (*C.at_image_u8)(img)))
}

func (c *cLibrary) familyCreate(name string) handle {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return handle(C.at_family_create(c.lib, cName))
}

func (c *cLibrary) familySetBorder(fam handle, border int) {
	(*C.at_family)(fam).black_border = C.uint32_t(border)
}

func (c *cLibrary) familyList() handle {
	return handle(C.at_family_list(c.lib))
}

func (c *cLibrary) familyListLen(list handle) int {
	return int((*C.at_zarray)(list).size)
}

func (c *cLibrary) familyListName(list handle, i int) string {
	p := C.at_zarray_ptr((*C.at_zarray)(list), C.int(i))
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(p))
}

func (c *cLibrary) familyListDestroy(list handle) {
	C.at_family_list_destroy(c.lib, (*C.at_zarray)(list))
}

func (c *cLibrary) imageCreate(width, height int) handle {
	return handle(C.at_image_create(c.lib, C.uint(width), C.uint(height)))
}

func (c *cLibrary) imageBuffer(img handle) (width, height, stride int, buf []byte) {
	im := (*C.at_image_u8)(img)
	width, height, stride = int(im.width), int(im.height), int(im.stride)
	if im.buf == nil || height <= 0 || stride <= 0 {
		return width, height, stride, nil
	}
	return width, height, stride, unsafe.Slice((*byte)(unsafe.Pointer(im.buf)), height*stride)
}

func (c *cLibrary) imageDestroy(img handle) {
	C.at_image_destroy(c.lib, (*C.at_image_u8)(img))
}

func (c *cLibrary) detectionsLen(list handle) int {
	return int((*C.at_zarray)(list).size)
}

func (c *cLibrary) detectionAt(list handle, i int) (rawDetection, bool) {
	p := C.at_zarray_ptr((*C.at_zarray)(list), C.int(i))
	if p == nil {
		return rawDetection{}, false
	}
	det := (*C.at_detection)(p)

	raw := rawDetection{
		id:             int(det.id),
		hamming:        int(det.hamming),
		goodness:       float32(det.goodness),
		decisionMargin: float32(det.decision_margin),
		center:         [2]float64{float64(det.c[0]), float64(det.c[1])},
	}
	if det.family != nil && det.family.name != nil {
		raw.family = C.GoString(det.family.name)
		raw.hasFamily = true
	}
	for k := 0; k < 4; k++ {
		raw.corners[k] = [2]float64{float64(det.p[k][0]), float64(det.p[k][1])}
	}
	if det.H != nil {
		raw.hRows, raw.hCols = int(det.H.nrows), int(det.H.ncols)
		raw.homography = make([]float64, raw.hRows*raw.hCols)
		if len(raw.homography) > 0 {
			C.at_matd_copy(det.H, (*C.double)(unsafe.Pointer(&raw.homography[0])))
		}
	}
	return raw, true
}

func (c *cLibrary) detectionsDestroy(list handle) {
	C.at_detections_destroy(c.lib, (*C.at_zarray)(list))
}

func (c *cLibrary) visDetections(list, img handle) {
	C.at_vis_detections(c.lib, (*C.at_zarray)(list), (*C.at_image_u8)(img))
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
