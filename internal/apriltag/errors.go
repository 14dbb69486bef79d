package apriltag

import "errors"

// Sentinel errors returned by the binding. Callers should match them with
// errors.Is; returned errors usually wrap one of these with call details.
var (
	// ErrLibraryNotFound means no candidate path yielded a loadable libapriltag.
	ErrLibraryNotFound = errors.New("apriltag: native library not found")

	// ErrNativeCall means the native library returned a null or malformed
	// result, or a required entry point could not be bound.
	ErrNativeCall = errors.New("apriltag: native call failed")

	// ErrUnrecognizedFamily means the native library has no family with the
	// requested name.
	ErrUnrecognizedFamily = errors.New("apriltag: unrecognized tag family")

	// ErrInvalidImage means the input image violated the grayscale buffer
	// preconditions. It is returned before any native call is made.
	ErrInvalidImage = errors.New("apriltag: invalid image")

	// ErrInvalidOptions means the detector options failed validation.
	ErrInvalidOptions = errors.New("apriltag: invalid detector options")

	// ErrClosed is returned by operations on a detector after Close.
	ErrClosed = errors.New("apriltag: detector is closed")

	// ErrLibraryClosed is returned by New and by detector operations once
	// the Library they depend on has been closed.
	ErrLibraryClosed = errors.New("apriltag: native library is closed")
)
