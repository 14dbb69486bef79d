package apriltag

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Options configures a Detector. They are read once, by New.
type Options struct {
	// Families selects the tag families to register.
	Families FamilySpec `yaml:"families" json:"families"`

	// Border is the black border width, in bits, written onto every
	// registered family.
	Border int `yaml:"border" json:"border" validate:"gte=0"`

	// Threads is the worker count the native detector may use internally.
	Threads int `yaml:"nthreads" json:"nthreads" validate:"gte=1"`

	// QuadDecimate downsamples the image before quad detection. 1.0 disables
	// decimation.
	QuadDecimate float64 `yaml:"quad_decimate" json:"quad_decimate" validate:"gt=0"`

	// QuadBlur is the Gaussian blur sigma applied before quad detection.
	// Negative values sharpen in the native library, so they are rejected.
	QuadBlur float64 `yaml:"quad_blur" json:"quad_blur" validate:"gte=0"`

	RefineEdges  bool `yaml:"refine_edges" json:"refine_edges"`
	RefineDecode bool `yaml:"refine_decode" json:"refine_decode"`
	RefinePose   bool `yaml:"refine_pose" json:"refine_pose"`
	Debug        bool `yaml:"debug" json:"debug"`

	// QuadContours enables contour-based quad extraction on the handle.
	QuadContours bool `yaml:"quad_contours" json:"quad_contours"`
}

// DefaultOptions returns the stock configuration: tag36h11 with a one-bit
// border, four threads, no decimation or blur, edge refinement and contour
// quads enabled.
func DefaultOptions() Options {
	return Options{
		Families:     FamilyString("tag36h11"),
		Border:       1,
		Threads:      4,
		QuadDecimate: 1.0,
		QuadBlur:     0.0,
		RefineEdges:  true,
		QuadContours: true,
	}
}

// Validate checks numeric ranges. The returned error wraps ErrInvalidOptions.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// nativeParams is the subset of Options written directly onto the native
// detector struct.
type nativeParams struct {
	threads      int
	quadDecimate float32
	quadSigma    float32
	refineEdges  bool
	refineDecode bool
	refinePose   bool
	debug        bool
}

func (o Options) params() nativeParams {
	return nativeParams{
		threads:      o.Threads,
		quadDecimate: float32(o.QuadDecimate),
		quadSigma:    float32(o.QuadBlur),
		refineEdges:  o.RefineEdges,
		refineDecode: o.RefineDecode,
		refinePose:   o.RefinePose,
		debug:        o.Debug,
	}
}
