// Package pitchb is the Pitch-B analyzer (C5): a pre-trained neural pitch
// model (CREPE-style architecture) run over a 16kHz mono buffer via
// TFLite, emitting per-10ms fundamental frequency and periodicity.
package pitchb

import (
	"math"
	"os"
	"sync"

	"github.com/tphakala/go-tflite"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/errors"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

const (
	sampleRate   = 16000
	hopLength    = 160 // 10ms @ 16kHz
	windowLength = 1024
	hopMS        = 10
	numBins      = 360

	// CREPE's pitch bins are equally spaced in cents, 20 cents apart,
	// starting at 1997.3794 cents relative to a 10Hz reference.
	centsBase = 1997.3794
	centsStep = 20.0
)

// Model owns a loaded TFLite interpreter for the pitch model and its
// pre-warm state. One Model is shared across frames; TFLite interpreter
// invocation is serialized via mu since the underlying C interpreter is
// not safe for concurrent Invoke calls.
type Model struct {
	mu          sync.Mutex
	interpreter *tflite.Interpreter
	warm        bool
}

// Load reads a TFLite pitch model from disk and allocates its interpreter.
func Load(modelPath string) (*Model, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, errors.Newf("reading pitch model %s: %v", modelPath, err).
			Component("pitchb").
			Category(errors.CategoryFileIO).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, errors.Newf("cannot parse pitch model %s", modelPath).
			Component("pitchb").
			Category(errors.CategoryAnalyzer).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		return nil, errors.Newf("cannot create pitch model interpreter").
			Component("pitchb").
			Category(errors.CategoryAnalyzer).
			Build()
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("allocating pitch model tensors failed").
			Component("pitchb").
			Category(errors.CategoryAnalyzer).
			Build()
	}

	return &Model{interpreter: interp}, nil
}

// PreWarm runs a small synthetic silent buffer through the model once so
// the first real frame doesn't pay the multi-second first-inference
// latency. Called once at process boot (spec.md §4.5).
func (m *Model) PreWarm() error {
	synthetic := make([]float32, windowLength)
	_, err := m.predict([][]float32{synthetic})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.warm = true
	m.mu.Unlock()
	logging.Info("pitchb: model pre-warmed")
	return nil
}

// IsWarm reports whether PreWarm has completed successfully.
func (m *Model) IsWarm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warm
}

func (m *Model) predict(frames [][]float32) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	input := m.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("pitch model has no input tensor 0").
			Component("pitchb").Category(errors.CategoryAnalyzer).Build()
	}

	out := make([][]float32, len(frames))
	for i, frame := range frames {
		dst := input.Float32s()
		copy(dst, frame)

		if status := m.interpreter.Invoke(); status != tflite.OK {
			return nil, errors.Newf("pitch model inference failed on frame %d", i).
				Component("pitchb").Category(errors.CategoryAnalyzer).Build()
		}

		output := m.interpreter.GetOutputTensor(0)
		probs := make([]float32, numBins)
		output.CopyToBuffer(&probs[0])
		out[i] = probs
	}
	return out, nil
}

// Analyze produces per-10ms pitch + periodicity rows for one 100ms
// frame's 16kHz buffer. A compute error downgrades the frame to zero
// rows with a warning, per spec.md's analyzer failure policy; frames
// with a non-finite or non-positive frequency are dropped silently.
func (m *Model) Analyze(recordingID, frameNo int64, baseStartMS int64, buf []float32) []datastore.PitchRow {
	frames := sliceFrames(buf, windowLength, hopLength)
	if len(frames) == 0 {
		return nil
	}

	probs, err := m.predict(frames)
	if err != nil {
		logging.Warn("pitchb: analyzer error, frame downgraded to zero rows",
			"recording_id", recordingID, "frame_no", frameNo, "error", err)
		return nil
	}

	hz, conf := Decode(probs)

	rows := make([]datastore.PitchRow, 0, len(hz))
	for i := range hz {
		if !isFinitePositive(hz[i]) {
			continue
		}
		startMSRel := int64(math.Round(float64(i*hopLength) * 1000.0 / sampleRate))
		rows = append(rows, datastore.PitchRow{
			RecordingID:  recordingID,
			AudioFrameNo: frameNo,
			StartMS:      baseStartMS + startMSRel,
			EndMS:        baseStartMS + startMSRel + (hopMS - 1),
			SourceTag:    "CREPE",
			HZ:           hz[i],
			Confidence:   float64(conf[i]),
		})
	}
	return rows
}

func sliceFrames(buf []float32, windowLen, hop int) [][]float32 {
	if len(buf) < windowLen {
		return nil
	}
	var frames [][]float32
	for start := 0; start+windowLen <= len(buf); start += hop {
		frames = append(frames, buf[start:start+windowLen])
	}
	return frames
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func binToHz(bin float64) float64 {
	cents := centsBase + centsStep*bin
	return 10.0 * math.Pow(2, cents/1200.0)
}
