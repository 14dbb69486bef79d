package apriltag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LibraryBaseName is the shared library name without its platform extension.
const LibraryBaseName = "libapriltag"

// LibraryFilename returns the shared library filename for goos.
func LibraryFilename(goos string) string {
	if goos == "darwin" || goos == "ios" {
		return LibraryBaseName + ".dylib"
	}
	return LibraryBaseName + ".so"
}

// LibraryCandidates lists the paths Load tries, in order: override (when not
// empty), the bare filename resolved by the system loader, the directory of
// the running executable, then ../build/lib under the working directory.
func LibraryCandidates(override string) []string {
	exeDir := ""
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeDir = filepath.Dir(exe)
	}
	workDir, _ := os.Getwd()
	return libraryCandidates(runtime.GOOS, override, exeDir, workDir)
}

func libraryCandidates(goos, override, exeDir, workDir string) []string {
	name := LibraryFilename(goos)
	var out []string
	add := func(p string) {
		for _, existing := range out {
			if existing == p {
				return
			}
		}
		out = append(out, p)
	}

	if override != "" {
		add(override)
	}
	add(name)
	if exeDir != "" {
		add(filepath.Join(exeDir, name))
	}
	if workDir != "" {
		add(filepath.Join(workDir, "..", "build", "lib", name))
	}
	return out
}

// Load opens libapriltag from the first candidate that loads and binds every
// required entry point.
//
// Parameters:
//   - override: Explicit library path tried before the default locations.
//     May be empty.
//
// Returns:
//   - *Library: The loaded library. It must outlive every Detector created
//     from it and be closed last.
//   - error: Non-nil when no candidate loads.
//
// # Errors
//
// The error wraps ErrLibraryNotFound together with each attempt's failure,
// so a missing symbol in one candidate (ErrNativeCall) is still visible
// through errors.Is. Builds without cgo always fail this way.
func Load(override string) (*Library, error) {
	candidates := LibraryCandidates(override)
	return loadFrom(candidates, openNative)
}

func loadFrom(candidates []string, open func(path string) (native, error)) (*Library, error) {
	errs := make([]error, 0, len(candidates))
	for _, path := range candidates {
		n, err := open(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		return &Library{native: n, path: path}, nil
	}
	return nil, fmt.Errorf("%w (tried %s): %w", ErrLibraryNotFound, strings.Join(candidates, ", "), errors.Join(errs...))
}
