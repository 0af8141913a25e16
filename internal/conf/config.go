// Package conf loads and exposes process-wide settings for the audio
// ingestion server: database connection, working directory layout, the
// external note-detection microservice address, and pipeline tuning
// knobs (frame size, tick cadence, worker pool sizing).
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/diamondadamsteven/violin-engine/internal/buildinfo"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root configuration tree, unmarshaled from the embedded
// default YAML, an optional override file, and environment variables.
type Settings struct {
	Debug bool

	Main struct {
		Name string
		Log  LogConfig
	}

	Database struct {
		Driver          string // "mysql" or "sqlite"
		DSN             string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	NoteService struct {
		Image     string
		Container string
		Host      string
		Port      int
		Timeout   time.Duration
	}

	Audio struct {
		FrameMS        int // duration of one split frame, in milliseconds (100)
		SampleRate     int // canonical split-frame sample rate (44100)
		BytesPerSample int // PCM16 (2)
	}

	Orchestrator struct {
		TickInterval       time.Duration // target 50ms (20Hz)
		FinalizeGraceSecs  int           // Scanner 7 purge grace window (5s)
		CPUWorkerMultiple  int           // analyzer worker pool = NumCPU * this
		LongRunningWorkers int           // long-running worker pool size (default NumCPU - 1)
	}

	WorkDir string // root of the per-recording working directories
}

// RotationType selects how a rotating log file is cycled.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig configures a single rotating log file.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64
	RotationDay time.Weekday
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the embedded defaults, any override config file on disk, and
// environment variable bindings into a fresh Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}
	bindEnv()

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	applyDefaults(settings)

	settingsInstance = settings
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/violin-engine")

	if home, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, "violin-engine"))
	}

	defaultYAML, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("error reading embedded config defaults: %v", err)
	}
	if err := viper.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return fmt.Errorf("error parsing embedded config defaults: %w", err)
	}

	// An override file on disk is optional — merge it over the embedded
	// defaults when present, but don't fail startup if it's absent.
	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading override config file: %w", err)
		}
	}

	return nil
}

func applyDefaults(s *Settings) {
	if s.Audio.FrameMS == 0 {
		s.Audio.FrameMS = 100
	}
	if s.Audio.SampleRate == 0 {
		s.Audio.SampleRate = 44100
	}
	if s.Audio.BytesPerSample == 0 {
		s.Audio.BytesPerSample = 2
	}
	if s.Orchestrator.TickInterval == 0 {
		s.Orchestrator.TickInterval = 50 * time.Millisecond
	}
	if s.Orchestrator.FinalizeGraceSecs == 0 {
		s.Orchestrator.FinalizeGraceSecs = 5
	}
	if s.Orchestrator.CPUWorkerMultiple == 0 {
		s.Orchestrator.CPUWorkerMultiple = 2
	}
	if s.Orchestrator.LongRunningWorkers == 0 {
		s.Orchestrator.LongRunningWorkers = max(1, runtime.NumCPU()-1)
	}
	if s.WorkDir == "" {
		s.WorkDir = "./recordings"
	}
}

// SamplesPerFrame returns the number of PCM samples in one split frame.
func (s *Settings) SamplesPerFrame() int {
	return s.Audio.FrameMS * s.Audio.SampleRate / 1000
}

// BytesPerFrame returns the byte length of one split frame.
func (s *Settings) BytesPerFrame() int {
	return s.SamplesPerFrame() * s.Audio.BytesPerSample
}

// AnalyzerWorkerCount returns the size of the CPU-bound analyzer pool.
func (s *Settings) AnalyzerWorkerCount() int {
	return runtime.NumCPU() * s.Orchestrator.CPUWorkerMultiple
}

// Validate sanity-checks settings that applyDefaults cannot repair on its
// own (an unrecognized DB driver, a non-positive frame geometry) and
// reports anything questionable separately from the settings themselves,
// so a caller can decide whether to proceed on warnings alone.
func (s *Settings) Validate() *buildinfo.ValidationResult {
	result := buildinfo.NewValidationResult()

	switch s.Database.Driver {
	case "mysql", "sqlite":
	case "":
		result.AddError("database.driver is required (mysql or sqlite)")
	default:
		result.AddError(fmt.Sprintf("database.driver %q is not supported (want mysql or sqlite)", s.Database.Driver))
	}

	if s.Database.Driver != "" && s.Database.DSN == "" {
		result.AddError("database.dsn is required")
	}

	if s.Audio.FrameMS <= 0 {
		result.AddError("audio.framems must be positive")
	}
	if s.Audio.SampleRate <= 0 {
		result.AddError("audio.samplerate must be positive")
	}
	if s.Audio.BytesPerSample <= 0 {
		result.AddError("audio.bytespersample must be positive")
	}

	if s.Orchestrator.TickInterval <= 0 {
		result.AddWarning("orchestrator.tickinterval is non-positive, falling back to 50ms at runtime")
	}

	if s.NoteService.Host == "" {
		result.AddWarning("noteservice.host is empty, the onset/note analyzer will downgrade to zero rows")
	}

	if s.WorkDir == "" {
		result.AddError("workdir is required")
	}

	return result
}

// GetSettings returns the current settings instance, or nil if Load has
// never been called.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the process-wide settings instance, loading it on first
// use if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
