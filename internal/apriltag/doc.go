// Package apriltag binds the native AprilTag detection library (libapriltag).
//
// The package does not detect tags itself. It loads a precompiled
// libapriltag at run time, mirrors the C structure layouts it needs, copies
// 8-bit grayscale images into the library's image_u8_t buffers and copies
// the resulting detections back into plain Go values.
//
// # Loading
//
// Load searches, in order:
//   - an explicit path (for example from the APRILTAG_LIBRARY variable)
//   - libapriltag.so (libapriltag.dylib on macOS) through the system loader
//   - the same filename next to the running executable
//   - ../build/lib/ relative to the working directory
//
// A build without cgo compiles, but Load always fails with
// ErrLibraryNotFound.
//
// # Lifecycle
//
//	lib, err := apriltag.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close()
//
//	det, err := apriltag.New(lib, apriltag.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer det.Close()
//
//	detections, err := det.Detect(gray)
//
// Every native allocation made by Detect (input image, detection list,
// visualization overlay) is released before Detect returns. The detector
// handle is released by Close, which is safe to call more than once; a
// finalizer releases detectors that are dropped without Close.
//
// # Families
//
// Options.Families is a FamilySpec: AllFamilies registers every family the
// library lists, FamilyNames registers an explicit list and FamilyString
// splits a string such as "tag36h11, tag25h9" on non-word characters.
// Unknown names are logged and skipped.
//
// # Thread Safety
//
// A Detector is not safe for concurrent use. The native call may use
// Options.Threads worker threads internally, but callers must serialize
// access to one Detector or create one per goroutine.
package apriltag
