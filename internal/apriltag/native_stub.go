//go:build !cgo || !(linux || darwin)

package apriltag

import "errors"

// openNative cannot load shared libraries without cgo, so every candidate
// fails and Load reports ErrLibraryNotFound.
func openNative(path string) (native, error) {
	return nil, errors.New("built without cgo support for dlopen")
}
