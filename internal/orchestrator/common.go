package orchestrator

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/resample"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

const (
	chunkSampleRate = 44100
	chunkBitDepth   = 16
	chunkChannels   = 1
	chunkPCMFormat  = 1
)

// buildSplitFrame decodes one aligner-produced frame's raw PCM16 44.1kHz
// bytes into the two analyzer-rate float32 buffers a split frame carries,
// and stamps its addressable start/end ms from the recording's frame
// duration.
func (o *Orchestrator) buildSplitFrame(cfg *state.RecordingConfig, frameNo int64, raw []byte) *state.SplitFrame {
	frameMS := int64(o.settings.Audio.FrameMS)
	startMS := frameNo * frameMS
	endMS := startMS + frameMS - 1

	samples44100 := resample.DecodePCM16(raw)
	samples16000 := resample.ToRate(samples44100, chunkSampleRate, 16000)
	samples22050 := resample.ToRate(samples44100, chunkSampleRate, 22050)

	sf := &state.SplitFrame{
		RecordingID:         cfg.RecordingID,
		AudioFrameNo:        frameNo,
		StartMS:             startMS,
		EndMS:               endMS,
		AudioFrameSizeBytes: len(raw),
		AudioFrameEncoding:  "pcm16",
		YNRunFFT:            orDefault(cfg.ComposeYNRunFFT, "Y"),
		YNRunONS:            "Y",
		YNRunPYIN:           "Y",
		YNRunCREPE:          "Y",
		AudioArray16000:     samples16000,
		AudioArray22050:     samples22050,
	}

	if err := o.writeChunkFragment(cfg.RecordingID, frameNo, samples44100); err != nil {
		logging.Warn("orchestrator: failed to stage chunk fragment", "recording_id", cfg.RecordingID, "frame_no", frameNo, "error", err)
	}

	return sf
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// writeChunkFragment stages one frame's 44.1kHz PCM as a WAV fragment
// under the recording's working directory, named so the finalizer can
// discover and order it (internal/finalizer.chunkFragmentPaths).
func (o *Orchestrator) writeChunkFragment(recordingID, frameNo int64, samples44100 []float32) error {
	dir := filepath.Join(o.settings.WorkDir, strconv.FormatInt(recordingID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, "chunk_"+strconv.FormatInt(frameNo, 10)+".wav")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ints := make([]int, len(samples44100))
	for i, v := range samples44100 {
		ints[i] = int(v * 32768.0)
	}

	enc := wav.NewEncoder(f, chunkSampleRate, chunkBitDepth, chunkChannels, chunkPCMFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chunkChannels, SampleRate: chunkSampleRate},
		Data:           ints,
		SourceBitDepth: chunkBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// chunkFragmentPath returns the path writeChunkFragment would have used,
// for handing to the onset analyzer.
func (o *Orchestrator) chunkFragmentPath(recordingID, frameNo int64) string {
	return filepath.Join(o.settings.WorkDir, strconv.FormatInt(recordingID, 10), "chunk_"+strconv.FormatInt(frameNo, 10)+".wav")
}
