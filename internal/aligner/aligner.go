// Package aligner is the Frame Aligner: it accumulates the variable-length
// audio chunks a recording's pre-split messages deliver and slices them
// into exact fixed-duration PCM16 frames for the analysis pipeline.
package aligner

import (
	"sync"

	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

// Frame is one complete (or, at flush, final short) split frame produced
// by a Buffer.
type Frame struct {
	FrameNo int64
	Bytes   []byte
}

// Status reports a Buffer's current accumulation state.
type Status struct {
	RecordingID         int64
	BufferBytes         int
	BufferSamples       int
	BufferMS            int64
	TotalBytesReceived  int64
	TotalFramesProduced int64
	NextFrameNo         int64
	CanProduceFrame     bool
}

// Buffer accumulates audio bytes for a single recording and slices them
// into frames of exactly bytesPerFrame length as soon as enough data is
// available. Not safe for concurrent use by multiple goroutines against
// the same recording — callers serialize per recording id.
type Buffer struct {
	recordingID int64

	bytesPerFrame  int
	samplesPerFrame int
	bytesPerSample int
	sampleRate     int

	mu                  sync.Mutex
	data                []byte
	totalBytesReceived  int64
	totalFramesProduced int64
}

// NewBuffer creates an alignment buffer for one recording using the
// frame geometry derived from the audio settings.
func NewBuffer(recordingID int64, bytesPerFrame, samplesPerFrame, bytesPerSample, sampleRate int) *Buffer {
	return &Buffer{
		recordingID:     recordingID,
		bytesPerFrame:   bytesPerFrame,
		samplesPerFrame: samplesPerFrame,
		bytesPerSample:  bytesPerSample,
		sampleRate:      sampleRate,
	}
}

// Add appends a chunk of raw audio bytes and returns every complete frame
// that can now be sliced off the front of the buffer. A frame that fails
// validation is dropped and logged; accumulation continues with no
// rollback.
func (b *Buffer) Add(chunk []byte) []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, chunk...)
	b.totalBytesReceived += int64(len(chunk))

	var frames []Frame
	for len(b.data) >= b.bytesPerFrame {
		frameBytes := make([]byte, b.bytesPerFrame)
		copy(frameBytes, b.data[:b.bytesPerFrame])
		b.data = b.data[b.bytesPerFrame:]

		totalSamplesProcessed := (b.totalBytesReceived - int64(len(b.data))) / int64(b.bytesPerSample)
		frameNo := totalSamplesProcessed / int64(b.samplesPerFrame)
		b.totalFramesProduced++

		if b.validate(frameBytes, frameNo) {
			frames = append(frames, Frame{FrameNo: frameNo, Bytes: frameBytes})
		} else {
			logging.Warn("aligner: frame validation failed, skipping",
				"recording_id", b.recordingID, "frame_no", frameNo)
		}
	}

	return frames
}

// Flush pads and emits the final, possibly short, frame for a recording
// that has stopped, numbered one past the last full frame, then clears
// the buffer. Returns nil if nothing remains.
func (b *Buffer) Flush() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil
	}

	if len(b.data)%2 != 0 {
		b.data = append(b.data, 0)
	}

	frameBytes := make([]byte, len(b.data))
	copy(frameBytes, b.data)

	totalSamplesProcessed := b.totalBytesReceived / int64(b.bytesPerSample)
	frameNo := totalSamplesProcessed/int64(b.samplesPerFrame) + 1
	b.totalFramesProduced++

	b.data = nil

	return &Frame{FrameNo: frameNo, Bytes: frameBytes}
}

// Status reports the buffer's current accumulation state without
// mutating it.
func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	bufferSamples := len(b.data) / b.bytesPerSample
	bufferMS := int64(bufferSamples) * 1000 / int64(b.sampleRate)

	totalSamplesProcessed := (b.totalBytesReceived - int64(len(b.data))) / int64(b.bytesPerSample)
	nextFrameNo := totalSamplesProcessed/int64(b.samplesPerFrame) + 1

	return Status{
		RecordingID:         b.recordingID,
		BufferBytes:         len(b.data),
		BufferSamples:       bufferSamples,
		BufferMS:            bufferMS,
		TotalBytesReceived:  b.totalBytesReceived,
		TotalFramesProduced: b.totalFramesProduced,
		NextFrameNo:         nextFrameNo,
		CanProduceFrame:     len(b.data) >= b.bytesPerFrame,
	}
}

func (b *Buffer) validate(frameBytes []byte, frameNo int64) bool {
	if len(frameBytes) != b.bytesPerFrame {
		return false
	}
	if len(frameBytes)%2 != 0 {
		return false
	}
	actualSamples := len(frameBytes) / b.bytesPerSample
	return actualSamples == b.samplesPerFrame
}

// Manager owns one Buffer per recording, keyed by recording id. The
// orchestrator's scanners use it to route incoming pre-split chunks and
// to release state once a recording finalizes.
type Manager struct {
	bytesPerFrame   int
	samplesPerFrame int
	bytesPerSample  int
	sampleRate      int

	mu      sync.Mutex
	buffers map[int64]*Buffer
}

// NewManager creates a Manager using a fixed frame geometry shared by
// every recording it tracks.
func NewManager(bytesPerFrame, samplesPerFrame, bytesPerSample, sampleRate int) *Manager {
	return &Manager{
		bytesPerFrame:   bytesPerFrame,
		samplesPerFrame: samplesPerFrame,
		bytesPerSample:  bytesPerSample,
		sampleRate:      sampleRate,
		buffers:         make(map[int64]*Buffer),
	}
}

// Add routes a chunk to the recording's buffer, creating it on first use.
func (m *Manager) Add(recordingID int64, chunk []byte) []Frame {
	return m.bufferFor(recordingID).Add(chunk)
}

// Flush produces the final frame for a recording and releases its state.
// Safe to call even if the recording was never seen.
func (m *Manager) Flush(recordingID int64) *Frame {
	m.mu.Lock()
	buf, ok := m.buffers[recordingID]
	if ok {
		delete(m.buffers, recordingID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return buf.Flush()
}

// Status reports the current state of a recording's buffer, if any.
func (m *Manager) Status(recordingID int64) (Status, bool) {
	m.mu.Lock()
	buf, ok := m.buffers[recordingID]
	m.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return buf.Status(), true
}

func (m *Manager) bufferFor(recordingID int64) *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[recordingID]
	if !ok {
		buf = NewBuffer(recordingID, m.bytesPerFrame, m.samplesPerFrame, m.bytesPerSample, m.sampleRate)
		m.buffers[recordingID] = buf
	}
	return buf
}
