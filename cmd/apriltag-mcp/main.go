package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/apriltag-tools/internal/apriltag"
	"github.com/ironsheep/apriltag-tools/internal/config"
	"github.com/ironsheep/apriltag-tools/internal/logging"
	"github.com/ironsheep/apriltag-tools/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("APRILTAG_CONFIG")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("apriltag-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("apriltag-mcp - MCP server for AprilTag detection")
			fmt.Println()
			fmt.Println("Usage: apriltag-mcp [options] [config.yaml]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  APRILTAG_CONFIG=<file>        YAML configuration file")
			fmt.Println("  APRILTAG_LIBRARY=<path>       Path to libapriltag")
			fmt.Println("  APRILTAG_FAMILIES=<list>      Tag families to register, or \"all\"")
			fmt.Println("  APRILTAG_NTHREADS=<n>         Detector worker threads")
			fmt.Println("  APRILTAG_DECIMATE=<f>         Quad decimation factor")
			fmt.Println("  APRILTAG_BLUR=<f>             Quad blur sigma")
			fmt.Println("  APRILTAG_LOG_LEVEL=debug      Log level")
			fmt.Println("  APRILTAG_LOG_FILE=<file>      Also log to a rotated file")
			fmt.Println()
			fmt.Println("A .env file in the working directory is read when present.")
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		default:
			configPath = os.Args[1]
		}
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apriltag-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout is for MCP protocol
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("AprilTag MCP server starting")

	lib, err := apriltag.Load(cfg.LibraryPath)
	if err != nil {
		return err
	}
	defer lib.Close()
	log.WithField("path", lib.Path()).Info("Loaded native library")

	det, err := apriltag.New(lib, cfg.Detector, apriltag.WithLogger(log))
	if err != nil {
		return err
	}
	defer det.Close()
	log.WithField("families", det.Registered()).Info("Detector ready")

	srv := server.New(det, log)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
