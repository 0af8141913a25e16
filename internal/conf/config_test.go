package conf

import (
	"strings"
	"testing"
	"time"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Database.Driver = "sqlite"
	s.Database.DSN = "file:test.db"
	s.Audio.FrameMS = 100
	s.Audio.SampleRate = 44100
	s.Audio.BytesPerSample = 2
	s.Orchestrator.TickInterval = 50 * time.Millisecond
	s.NoteService.Host = "localhost"
	s.NoteService.Port = 9000
	s.WorkDir = "./recordings"
	return s
}

func TestSettings_Validate_Valid(t *testing.T) {
	result := validSettings().Validate()

	if !result.Valid {
		t.Errorf("expected valid settings, got errors: %v", result.Errors)
	}
	if len(result.Errors) > 0 {
		t.Errorf("expected no errors, got: %v", result.Errors)
	}
}

func TestSettings_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Settings)
		wantError string
	}{
		{
			name:      "missing database driver",
			mutate:    func(s *Settings) { s.Database.Driver = "" },
			wantError: "database.driver is required",
		},
		{
			name:      "unsupported database driver",
			mutate:    func(s *Settings) { s.Database.Driver = "postgres" },
			wantError: "not supported",
		},
		{
			name:      "missing dsn",
			mutate:    func(s *Settings) { s.Database.DSN = "" },
			wantError: "database.dsn is required",
		},
		{
			name:      "non-positive frame ms",
			mutate:    func(s *Settings) { s.Audio.FrameMS = 0 },
			wantError: "audio.framems must be positive",
		},
		{
			name:      "non-positive sample rate",
			mutate:    func(s *Settings) { s.Audio.SampleRate = -1 },
			wantError: "audio.samplerate must be positive",
		},
		{
			name:      "missing workdir",
			mutate:    func(s *Settings) { s.WorkDir = "" },
			wantError: "workdir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)

			result := s.Validate()
			if result.Valid {
				t.Fatalf("expected invalid settings for %q", tt.name)
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.wantError) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected an error containing %q, got: %v", tt.wantError, result.Errors)
			}
		})
	}
}

func TestSettings_Validate_WarnsOnMissingNoteServiceHost(t *testing.T) {
	s := validSettings()
	s.NoteService.Host = ""

	result := s.Validate()
	if !result.Valid {
		t.Errorf("missing note-service host should warn, not invalidate: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about the missing note-service host")
	}
}

func TestSettings_SamplesPerFrameAndBytesPerFrame(t *testing.T) {
	s := validSettings()

	if got, want := s.SamplesPerFrame(), 4410; got != want {
		t.Errorf("SamplesPerFrame() = %d, want %d", got, want)
	}
	if got, want := s.BytesPerFrame(), 8820; got != want {
		t.Errorf("BytesPerFrame() = %d, want %d", got, want)
	}
}
