package apriltag

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Detector owns one native apriltag_detector_t configured from Options.
//
// A Detector is not safe for concurrent use: the native handle has no
// internal locking. Use one Detector per goroutine or serialize calls.
type Detector struct {
	lib  *Library
	opts Options
	log  logrus.FieldLogger

	td         handle
	families   []string
	registered []string
}

// DetectorOption customizes a Detector at construction.
type DetectorOption func(*Detector)

// WithLogger sets the logger used for construction warnings and per-call
// debug output. The default discards everything.
func WithLogger(log logrus.FieldLogger) DetectorOption {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New creates a native detector, applies opts to it and registers the
// selected tag families.
//
// Parameters:
//   - lib: A loaded, open Library.
//   - opts: Detector settings. They are validated and read once.
//   - options: Optional construction settings such as WithLogger.
//
// Returns:
//   - *Detector: The configured detector. The caller must Close it.
//   - error: Non-nil if construction failed. No native handle is left behind.
//
// # Errors
//
//   - ErrLibraryNotFound: lib is nil.
//   - ErrLibraryClosed: lib was already closed.
//   - ErrInvalidOptions: opts failed validation.
//   - ErrNativeCall: the native detector or family listing could not be created.
//
// Unrecognized family names are logged at warn level and skipped; they do
// not fail construction.
func New(lib *Library, opts Options, options ...DetectorOption) (*Detector, error) {
	if lib == nil || lib.native == nil {
		return nil, fmt.Errorf("%w: nil library", ErrLibraryNotFound)
	}
	if lib.unloaded.Load() {
		return nil, ErrLibraryClosed
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{lib: lib, opts: opts, log: discardLogger()}
	for _, o := range options {
		o(d)
	}

	n := lib.native
	td := n.detectorCreate()
	if td == nil {
		return nil, fmt.Errorf("%w: apriltag_detector_create returned null", ErrNativeCall)
	}
	d.td = td

	n.detectorConfigure(td, opts.params())
	if opts.QuadContours {
		n.detectorEnableQuadContours(td)
	}

	families, err := d.listFamilies()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.families = families

	for _, name := range opts.Families.Resolve(families) {
		if err := d.AddFamily(name); err != nil {
			if errors.Is(err, ErrUnrecognizedFamily) {
				d.log.WithFields(logrus.Fields{
					"family":    name,
					"available": families,
				}).Warn("unrecognized tag family, skipping")
				continue
			}
			d.Close()
			return nil, err
		}
	}

	runtime.SetFinalizer(d, (*Detector).Close)

	d.log.WithFields(logrus.Fields{
		"library":    lib.Path(),
		"registered": d.registered,
		"nthreads":   opts.Threads,
		"decimate":   opts.QuadDecimate,
	}).Debug("apriltag detector created")

	return d, nil
}

// listFamilies copies the native registry listing and releases it.
func (d *Detector) listFamilies() ([]string, error) {
	n := d.lib.native
	list := n.familyList()
	if list == nil {
		return nil, fmt.Errorf("%w: apriltag_family_list returned null", ErrNativeCall)
	}
	defer n.familyListDestroy(list)

	count := n.familyListLen(list)
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if name := n.familyListName(list, i); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// AddFamily registers one tag family by name, writing the configured border
// width onto it first. Registering an already registered family is a no-op.
// An unknown name returns an error wrapping ErrUnrecognizedFamily and leaves
// the detector unchanged.
func (d *Detector) AddFamily(name string) error {
	if err := d.usable(); err != nil {
		return err
	}
	for _, r := range d.registered {
		if r == name {
			return nil
		}
	}

	n := d.lib.native
	fam := n.familyCreate(name)
	if fam == nil {
		return fmt.Errorf("%w: %q (try e.g. tag36h11)", ErrUnrecognizedFamily, name)
	}
	n.familySetBorder(fam, d.opts.Border)
	n.detectorAddFamily(d.td, fam)
	d.registered = append(d.registered, name)
	return nil
}

// usable reports why the detector can no longer call into the native
// library, if it cannot.
func (d *Detector) usable() error {
	if d.td == nil {
		return ErrClosed
	}
	if d.lib.unloaded.Load() {
		return ErrLibraryClosed
	}
	return nil
}

// Families returns the native registry listing captured at construction.
func (d *Detector) Families() []string {
	return append([]string(nil), d.families...)
}

// Registered returns the families registered on the detector, in
// registration order.
func (d *Detector) Registered() []string {
	return append([]string(nil), d.registered...)
}

// Options returns the options the detector was built with.
func (d *Detector) Options() Options {
	return d.opts
}

// Close destroys the native detector and the families registered on it.
// Only the first call has an effect. If the Library was already closed the
// handle cannot be released and is dropped.
func (d *Detector) Close() {
	if d == nil || d.td == nil {
		return
	}
	td := d.td
	d.td = nil
	runtime.SetFinalizer(d, nil)
	if d.lib.unloaded.Load() {
		d.log.Warn("apriltag library closed before detector; native handle leaked")
		return
	}
	d.lib.native.detectorDestroy(td)
}
