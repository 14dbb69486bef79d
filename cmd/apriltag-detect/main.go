package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/apriltag-tools/internal/apriltag"
	"github.com/ironsheep/apriltag-tools/internal/config"
	"github.com/ironsheep/apriltag-tools/internal/imaging"
	"github.com/ironsheep/apriltag-tools/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type flags struct {
	configPath   string
	families     string
	border       int
	threads      int
	decimate     float64
	blur         float64
	refineEdges  bool
	refineDecode bool
	refinePose   bool
	debug        bool
	contours     bool
	visOut       string
	annotateOut  string
	asJSON       bool
	version      bool
	logLevel     string
}

func parseFlags(args []string) (*flags, []string, *flag.FlagSet, error) {
	def := apriltag.DefaultOptions()
	f := &flags{}

	fs := flag.NewFlagSet("apriltag-detect", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: apriltag-detect [options] image...")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Detects AprilTags in each image and prints one block per detection.")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.families, "families", def.Families.String(), `tag families to register, comma separated, or "all"`)
	fs.IntVar(&f.border, "border", def.Border, "black border width in bits")
	fs.IntVar(&f.threads, "nthreads", def.Threads, "detector worker threads")
	fs.Float64Var(&f.decimate, "decimate", def.QuadDecimate, "quad decimation factor")
	fs.Float64Var(&f.blur, "blur", def.QuadBlur, "Gaussian blur sigma before quad detection")
	fs.BoolVar(&f.refineEdges, "refine-edges", def.RefineEdges, "refine quad edges")
	fs.BoolVar(&f.refineDecode, "refine-decode", def.RefineDecode, "refine decoding")
	fs.BoolVar(&f.refinePose, "refine-pose", def.RefinePose, "refine pose")
	fs.BoolVar(&f.debug, "debug", def.Debug, "native debug output")
	fs.BoolVar(&f.contours, "contours", def.QuadContours, "contour-based quad detection")
	fs.StringVar(&f.visOut, "vis", "", "write the native visualization to this file (one image only)")
	fs.StringVar(&f.annotateOut, "annotate", "", "write an annotated color copy to this file (one image only)")
	fs.BoolVar(&f.asJSON, "json", false, "print detections as JSON")
	fs.BoolVar(&f.version, "version", false, "print version information")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (overrides configuration)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	return f, fs.Args(), fs, nil
}

// applyFlags overrides cfg with the flags that were set explicitly, so that
// configuration files and environment keep their values otherwise.
func applyFlags(cfg *config.Config, f *flags, fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "families":
			cfg.Detector.Families = apriltag.FamilyString(f.families)
		case "border":
			cfg.Detector.Border = f.border
		case "nthreads":
			cfg.Detector.Threads = f.threads
		case "decimate":
			cfg.Detector.QuadDecimate = f.decimate
		case "blur":
			cfg.Detector.QuadBlur = f.blur
		case "refine-edges":
			cfg.Detector.RefineEdges = f.refineEdges
		case "refine-decode":
			cfg.Detector.RefineDecode = f.refineDecode
		case "refine-pose":
			cfg.Detector.RefinePose = f.refinePose
		case "debug":
			cfg.Detector.Debug = f.debug
		case "contours":
			cfg.Detector.QuadContours = f.contours
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
}

func main() {
	f, paths, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Printf("apriltag-detect %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}
	if len(paths) == 0 {
		fs.Usage()
		os.Exit(2)
	}
	if (f.visOut != "" || f.annotateOut != "") && len(paths) != 1 {
		fmt.Fprintln(os.Stderr, "apriltag-detect: -vis and -annotate need exactly one image")
		os.Exit(2)
	}

	if err := run(f, fs, paths); err != nil {
		fmt.Fprintf(os.Stderr, "apriltag-detect: %v\n", err)
		os.Exit(1)
	}
}

func run(f *flags, fs *flag.FlagSet, paths []string) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, f, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}

	lib, err := apriltag.Load(cfg.LibraryPath)
	if err != nil {
		return err
	}
	defer lib.Close()

	det, err := apriltag.New(lib, cfg.Detector, apriltag.WithLogger(log))
	if err != nil {
		return err
	}
	defer det.Close()

	cache := imaging.NewImageCache()
	results := make(map[string][]apriltag.Detection, len(paths))
	for _, path := range paths {
		dets, err := detectFile(det, cache, f, path)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"path": path, "count": len(dets)}).Debug("Detected")
		results[path] = dets

		if !f.asJSON {
			printDetections(path, dets, len(paths) > 1)
		}
	}

	if f.asJSON {
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

func detectFile(det *apriltag.Detector, cache *imaging.ImageCache, f *flags, path string) ([]apriltag.Detection, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	gray := imaging.ToGray(img)

	var (
		dets []apriltag.Detection
		vis  *image.Gray
	)
	if f.visOut != "" {
		dets, vis, err = det.DetectWithVisualization(gray)
	} else {
		dets, err = det.Detect(gray)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if vis != nil {
		if err := imaging.Save(f.visOut, vis); err != nil {
			return nil, err
		}
	}
	if f.annotateOut != "" {
		if err := imaging.Save(f.annotateOut, imaging.Annotate(img, dets)); err != nil {
			return nil, err
		}
	}
	return dets, nil
}

func printDetections(path string, dets []apriltag.Detection, withHeader bool) {
	indent := 0
	if withHeader {
		fmt.Printf("%s: %d detection(s)\n", filepath.Base(path), len(dets))
		indent = 2
	}
	for i, d := range dets {
		if i > 0 || withHeader {
			fmt.Println()
		}
		fmt.Println(strings.TrimRight(d.Indent(indent), "\n"))
	}
}
