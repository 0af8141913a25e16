package aligner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBytesPerSample   = 2
	testSampleRate       = 44100
	testSamplesPerFrame  = 4410 // 100ms @ 44100Hz
	testBytesPerFrame    = testSamplesPerFrame * testBytesPerSample
)

func newTestBuffer() *Buffer {
	return NewBuffer(1, testBytesPerFrame, testSamplesPerFrame, testBytesPerSample, testSampleRate)
}

func silence(nBytes int) []byte {
	return make([]byte, nBytes)
}

func TestBuffer_OneByteNeverProducesAFrame(t *testing.T) {
	b := newTestBuffer()
	frames := b.Add(silence(1))
	assert.Empty(t, frames)
}

func TestBuffer_OneByteShortOfFrameNeverProduces(t *testing.T) {
	b := newTestBuffer()
	frames := b.Add(silence(testBytesPerFrame - 1))
	assert.Empty(t, frames)
}

func TestBuffer_ExactlyOneFrameWorthProducesOneFrame(t *testing.T) {
	b := newTestBuffer()
	frames := b.Add(silence(testBytesPerFrame))
	require.Len(t, frames, 1)
	assert.EqualValues(t, 1, frames[0].FrameNo)
	assert.Len(t, frames[0].Bytes, testBytesPerFrame)
}

func TestBuffer_OneByteOverFrameProducesExactlyOneFrameAndKeepsRemainder(t *testing.T) {
	b := newTestBuffer()
	frames := b.Add(silence(testBytesPerFrame + 1))
	require.Len(t, frames, 1)

	status := b.Status()
	assert.Equal(t, 1, status.BufferBytes)
}

func TestBuffer_FrameCountIsIntegerDivisionOfTotalBytes(t *testing.T) {
	b := newTestBuffer()
	n := testBytesPerFrame*5 + 37
	frames := b.Add(silence(n))
	assert.Len(t, frames, n/testBytesPerFrame)
}

func TestBuffer_FrameNumbersAreContiguousFromOne(t *testing.T) {
	b := newTestBuffer()
	frames := b.Add(silence(testBytesPerFrame * 4))
	require.Len(t, frames, 4)
	for i, f := range frames {
		assert.EqualValues(t, i+1, f.FrameNo)
	}
}

func TestBuffer_ConcatenatedFramesAreByteForByteEqualToInput(t *testing.T) {
	b := newTestBuffer()

	input := make([]byte, testBytesPerFrame*3)
	for i := range input {
		input[i] = byte(i % 256)
	}

	frames := b.Add(input)
	require.Len(t, frames, 3)

	var out bytes.Buffer
	for _, f := range frames {
		out.Write(f.Bytes)
	}
	assert.Equal(t, input, out.Bytes())
}

func TestBuffer_IdempotentRegardlessOfChunkSplitting(t *testing.T) {
	input := make([]byte, testBytesPerFrame*3+123)
	for i := range input {
		input[i] = byte((i * 7) % 256)
	}

	whole := newTestBuffer()
	wholeFrames := whole.Add(input)

	piecemeal := newTestBuffer()
	var piecemealFrames []Frame
	chunkSizes := []int{1, 2, 3, 500, 1000, len(input)}
	offset := 0
	for _, size := range chunkSizes {
		if offset >= len(input) {
			break
		}
		end := offset + size
		if end > len(input) {
			end = len(input)
		}
		piecemealFrames = append(piecemealFrames, piecemeal.Add(input[offset:end])...)
		offset = end
	}
	if offset < len(input) {
		piecemealFrames = append(piecemealFrames, piecemeal.Add(input[offset:])...)
	}

	require.Equal(t, len(wholeFrames), len(piecemealFrames))
	for i := range wholeFrames {
		assert.Equal(t, wholeFrames[i].FrameNo, piecemealFrames[i].FrameNo)
		assert.Equal(t, wholeFrames[i].Bytes, piecemealFrames[i].Bytes)
	}
}

func TestBuffer_FlushOnEmptyBufferReturnsNil(t *testing.T) {
	b := newTestBuffer()
	assert.Nil(t, b.Flush())
}

func TestBuffer_FlushPadsOddTrailingByte(t *testing.T) {
	b := newTestBuffer()
	b.Add(silence(testBytesPerFrame + 3)) // leaves 3 bytes buffered

	frame := b.Flush()
	require.NotNil(t, frame)
	assert.Len(t, frame.Bytes, 4) // padded to even length
}

func TestBuffer_FlushClearsStateAfterward(t *testing.T) {
	b := newTestBuffer()
	b.Add(silence(10))
	b.Flush()

	status := b.Status()
	assert.Equal(t, 0, status.BufferBytes)
}

func TestBuffer_StatusReportsCanProduceFrame(t *testing.T) {
	b := newTestBuffer()
	b.Add(silence(testBytesPerFrame - 1))
	assert.False(t, b.Status().CanProduceFrame)

	b.Add(silence(1))
	// one full frame was just sliced off, so the buffer is empty again
	assert.False(t, b.Status().CanProduceFrame)
}

func TestManager_CreatesSeparateBuffersPerRecording(t *testing.T) {
	m := NewManager(testBytesPerFrame, testSamplesPerFrame, testBytesPerSample, testSampleRate)

	framesA := m.Add(1, silence(testBytesPerFrame))
	framesB := m.Add(2, silence(testBytesPerFrame*2))

	assert.Len(t, framesA, 1)
	assert.Len(t, framesB, 2)
}

func TestManager_FlushReleasesRecordingState(t *testing.T) {
	m := NewManager(testBytesPerFrame, testSamplesPerFrame, testBytesPerSample, testSampleRate)
	m.Add(1, silence(10))

	frame := m.Flush(1)
	assert.NotNil(t, frame)

	_, ok := m.Status(1)
	assert.False(t, ok)
}

func TestManager_FlushOnUnseenRecordingReturnsNil(t *testing.T) {
	m := NewManager(testBytesPerFrame, testSamplesPerFrame, testBytesPerSample, testSampleRate)
	assert.Nil(t, m.Flush(999))
}
