package apriltag

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLibraryFilename(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "libapriltag.so"},
		{"freebsd", "libapriltag.so"},
		{"darwin", "libapriltag.dylib"},
	}
	for _, tt := range tests {
		if got := LibraryFilename(tt.goos); got != tt.want {
			t.Errorf("LibraryFilename(%s): got %s, want %s", tt.goos, got, tt.want)
		}
	}
}

func TestLibraryCandidates_Order(t *testing.T) {
	got := libraryCandidates("linux", "", "/opt/app/bin", "/home/u/src/python")
	want := []string{
		"libapriltag.so",
		filepath.Join("/opt/app/bin", "libapriltag.so"),
		filepath.Join("/home/u/src", "build", "lib", "libapriltag.so"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates:\n got %v\nwant %v", got, want)
	}
}

func TestLibraryCandidates_Override(t *testing.T) {
	got := libraryCandidates("darwin", "/usr/local/lib/libapriltag.dylib", "", "")
	want := []string{"/usr/local/lib/libapriltag.dylib", "libapriltag.dylib"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates: got %v, want %v", got, want)
	}

	// An override equal to a later candidate is not tried twice.
	got = libraryCandidates("linux", "libapriltag.so", "", "")
	if !reflect.DeepEqual(got, []string{"libapriltag.so"}) {
		t.Errorf("candidates: got %v", got)
	}
}

func TestLoadFrom_FirstLoadableWins(t *testing.T) {
	var tried []string
	f := newFakeNative(t)
	open := func(path string) (native, error) {
		tried = append(tried, path)
		if path == "b" {
			return f, nil
		}
		return nil, fmt.Errorf("cannot open %s", path)
	}

	lib, err := loadFrom([]string{"a", "b", "c"}, open)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if lib.Path() != "b" {
		t.Errorf("Path: got %s, want b", lib.Path())
	}
	if !reflect.DeepEqual(tried, []string{"a", "b"}) {
		t.Errorf("tried %v, want [a b]", tried)
	}
}

func TestLoadFrom_NothingLoads(t *testing.T) {
	open := func(path string) (native, error) {
		if path == "partial" {
			return nil, fmt.Errorf("%w: missing symbol apriltag_family_list", ErrNativeCall)
		}
		return nil, errors.New("no such file")
	}

	_, err := loadFrom([]string{"missing", "partial"}, open)
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("got %v, want ErrLibraryNotFound", err)
	}
	if !errors.Is(err, ErrNativeCall) {
		t.Errorf("bind failure not preserved in %v", err)
	}
}
