package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_ConfigRoundTrip(t *testing.T) {
	s := New()

	_, ok := s.Config(1)
	assert.False(t, ok)

	s.PutConfig(&RecordingConfig{RecordingID: 1, ComposePlayOrPractice: "PRACTICE"})

	cfg, ok := s.Config(1)
	assert.True(t, ok)
	assert.Equal(t, "PRACTICE", cfg.ComposePlayOrPractice)

	s.DeleteConfig(1)
	_, ok = s.Config(1)
	assert.False(t, ok)
}

func TestStore_AllConfigsReturnsSnapshot(t *testing.T) {
	s := New()
	s.PutConfig(&RecordingConfig{RecordingID: 1})
	s.PutConfig(&RecordingConfig{RecordingID: 2})

	all := s.AllConfigs()
	assert.Len(t, all, 2)
}

func TestStore_PreSplitFrameRoundTrip(t *testing.T) {
	s := New()

	s.PutPreSplitFrame(&PreSplitFrame{RecordingID: 1, AudioFrameNo: 1, AudioFrameBytes: []byte{1, 2, 3}})
	s.PutPreSplitFrame(&PreSplitFrame{RecordingID: 1, AudioFrameNo: 2, AudioFrameBytes: []byte{4, 5}})

	f, ok := s.PreSplitFrame(1, 1)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, f.AudioFrameBytes)

	_, ok = s.PreSplitFrame(1, 99)
	assert.False(t, ok)

	s.DeletePreSplitRecording(1)
	_, ok = s.PreSplitFrame(1, 2)
	assert.False(t, ok)
}

func TestStore_SplitFrameRoundTripAndDeleteIndividual(t *testing.T) {
	s := New()

	s.PutSplitFrame(&SplitFrame{RecordingID: 1, AudioFrameNo: 1, YNRunFFT: "Y"})
	s.PutSplitFrame(&SplitFrame{RecordingID: 1, AudioFrameNo: 2, YNRunFFT: "N"})

	frames := s.SplitFramesForRecording(1)
	assert.Len(t, frames, 2)

	s.DeleteSplitFrame(1, 1)
	frames = s.SplitFramesForRecording(1)
	assert.Len(t, frames, 1)
	assert.Equal(t, int64(2), frames[0].AudioFrameNo)

	s.DeleteSplitFrame(1, 2)
	_, ok := s.SplitFrame(1, 2)
	assert.False(t, ok)
	assert.Empty(t, s.SplitFramesForRecording(1))
}

func TestStore_DeleteSplitRecordingClearsAllFrames(t *testing.T) {
	s := New()
	s.PutSplitFrame(&SplitFrame{RecordingID: 1, AudioFrameNo: 1})
	s.PutSplitFrame(&SplitFrame{RecordingID: 1, AudioFrameNo: 2})

	s.DeleteSplitRecording(1)
	assert.Empty(t, s.SplitFramesForRecording(1))
}

func TestStore_ConcurrentPutAndReadIsSafe(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		i := int64(i)
		go func() {
			defer wg.Done()
			s.PutConfig(&RecordingConfig{RecordingID: i})
			s.PutSplitFrame(&SplitFrame{RecordingID: i, AudioFrameNo: 1})
		}()
		go func() {
			defer wg.Done()
			s.Config(i)
			s.SplitFramesForRecording(i)
		}()
	}
	wg.Wait()

	assert.Len(t, s.AllConfigs(), 50)
}
