// Package finalizer is the Finalizer (C12): it concatenates a recording's
// per-chunk WAV fragments into one 44.1kHz PCM16 WAV, signals
// end-of-recording to the downstream aggregation database, and releases
// the recording's in-memory state.
package finalizer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/errors"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/resample"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

const (
	outputSampleRate = 44100
	outputBitDepth   = 16
	outputChannels   = 1
	pcmFormat        = 1 // WAV AudioFormat 1 == PCM
)

var chunkFileRE = regexp.MustCompile(`chunk_(\d+)\.wav$`)

// procedureCaller is the subset of *datastore.DataStore this package
// needs, kept narrow so tests can supply a fake.
type procedureCaller interface {
	CallProcedureNoResult(ctx context.Context, name string, args ...interface{}) error
}

// Finalizer owns the working directory layout and the store whose
// per-recording entries it releases once a recording is done.
type Finalizer struct {
	ds      procedureCaller
	store   *state.Store
	workDir string
}

// New creates a Finalizer rooted at workDir (one subdirectory per
// recording, named by recording id).
func New(ds procedureCaller, store *state.Store, workDir string) *Finalizer {
	return &Finalizer{ds: ds, store: store, workDir: workDir}
}

// RecordingDir returns the per-recording working directory.
func (f *Finalizer) RecordingDir(recordingID int64) string {
	return filepath.Join(f.workDir, strconv.FormatInt(recordingID, 10))
}

// Finalize concatenates fragments (in chunk-number order), writing a
// one-sample-silent WAV sentinel if none exist, calls the end-of-recording
// stored procedure, and releases this recording's state-store entries.
func (f *Finalizer) Finalize(ctx context.Context, recordingID int64) error {
	dir := f.RecordingDir(recordingID)
	fragments := chunkFragmentPaths(dir)

	finalPath := filepath.Join(dir, "recording.wav")
	if err := writeCombined(finalPath, fragments); err != nil {
		return err
	}

	if err := f.ds.CallProcedureNoResult(ctx, datastore.SPMasterAggregate, recordingID); err != nil {
		logging.Warn("finalizer: master aggregation procedure failed", "recording_id", recordingID, "error", err)
	}

	if err := f.ds.CallProcedureNoResult(ctx, datastore.SPFinalizeRecording, recordingID, finalPath); err != nil {
		logging.Warn("finalizer: end-of-recording procedure failed", "recording_id", recordingID, "error", err)
	}

	f.store.DeleteConfig(recordingID)
	f.store.DeletePreSplitRecording(recordingID)
	f.store.DeleteSplitRecording(recordingID)
	return nil
}

// chunkFragmentPaths lists dir's chunk_<N>.wav fragments in ascending
// chunk-number order. A missing or unreadable directory yields no
// fragments, which writeCombined turns into the silent-WAV sentinel.
func chunkFragmentPaths(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, e := range entries {
		m := chunkFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	paths := make([]string, len(found))
	for i, nf := range found {
		paths[i] = nf.path
	}
	return paths
}

// writeCombined concatenates fragments into finalPath atomically (write
// to a temp file, then rename), resampling any fragment not already at
// outputSampleRate. A fragment that fails to decode is skipped and
// logged, not fatal to the whole finalize. With zero usable fragments, a
// one-sample-silent WAV is written so downstream references resolve
// (spec.md §4.12).
func writeCombined(finalPath string, fragments []string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return errors.New(err).
			Component("finalizer").
			Category(errors.CategoryFileIO).
			Context("operation", "create_recording_dir").
			Context("path", filepath.Dir(finalPath)).
			Build()
	}

	tempPath := finalPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return errors.New(err).
			Component("finalizer").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_file").
			Context("path", tempPath).
			Build()
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := wav.NewEncoder(out, outputSampleRate, outputBitDepth, outputChannels, pcmFormat)

	wrote := false
	for _, path := range fragments {
		buf, err := readFragmentAt44100(path)
		if err != nil {
			logging.Warn("finalizer: fragment decode failed, skipping", "path", path, "error", err)
			continue
		}
		if err := enc.Write(buf); err != nil {
			logging.Warn("finalizer: fragment write failed, skipping", "path", path, "error", err)
			continue
		}
		wrote = true
	}

	if !wrote {
		silent := &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: outputChannels, SampleRate: outputSampleRate},
			Data:           []int{0},
			SourceBitDepth: outputBitDepth,
		}
		if err := enc.Write(silent); err != nil {
			return errors.New(err).
				Component("finalizer").
				Category(errors.CategoryFileIO).
				Context("operation", "write_silent_sentinel").
				Build()
		}
	}

	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component("finalizer").
			Category(errors.CategoryFileIO).
			Context("operation", "close_wav_encoder").
			Build()
	}
	if err := out.Close(); err != nil {
		return errors.New(err).
			Component("finalizer").
			Category(errors.CategoryFileIO).
			Context("operation", "close_temp_file").
			Build()
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return errors.New(err).
			Component("finalizer").
			Category(errors.CategoryFileIO).
			Context("operation", "rename_final_wav").
			Context("from", tempPath).
			Context("to", finalPath).
			Build()
	}

	success = true
	return nil
}

// readFragmentAt44100 decodes one WAV fragment and resamples it to
// outputSampleRate if its native rate differs.
func readFragmentAt44100(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if int(dec.SampleRate) == outputSampleRate {
		return buf, nil
	}

	floats := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		floats[i] = float32(v) / 32768.0
	}
	resampled := resample.ToRate(floats, int(dec.SampleRate), outputSampleRate)

	ints := make([]int, len(resampled))
	for i, v := range resampled {
		ints[i] = int(v * 32768.0)
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: buf.Format.NumChannels, SampleRate: outputSampleRate},
		Data:           ints,
		SourceBitDepth: outputBitDepth,
	}, nil
}
