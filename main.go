// Command violin-engine is the real-time audio ingestion and analysis
// server: it accepts client recordings over WebSocket, aligns and fans
// their audio out across a spectral/pitch/onset/volume analyzer
// pipeline, and persists the results to a relational store.
package main

import (
	"fmt"
	"os"

	"github.com/diamondadamsteven/violin-engine/cmd"
	"github.com/diamondadamsteven/violin-engine/internal/buildinfo"
	"github.com/diamondadamsteven/violin-engine/internal/conf"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

// version, buildDate, and systemID are overridden at link time via
// -ldflags "-X main.version=... -X main.buildDate=... -X main.systemID=...".
var (
	version   = "dev"
	buildDate = "unknown"
	systemID  = "unknown"
)

func main() {
	logging.Init()

	build := buildinfo.NewContext(version, buildDate, systemID)
	logging.Info("violin-engine starting", "version", build.Version(), "build_date", build.BuildDate())

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	validation := settings.Validate()
	for _, w := range validation.Warnings {
		logging.Warn("configuration warning", "message", w)
	}
	if !validation.Valid {
		for _, e := range validation.Errors {
			logging.Error("configuration error", "message", e)
		}
		os.Exit(1)
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		logging.Error("violin-engine exited with error", "error", err)
		os.Exit(1)
	}
}
