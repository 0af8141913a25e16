// Package state is the Recording State Store: concurrency-safe in-memory
// maps keyed by recording id (and, for frames, frame number) that hold a
// recording's running configuration and per-frame processing metadata
// while it is live. Durable snapshots of the same fields are mirrored
// into the datastore package's rows; this package is the authoritative
// copy while a recording is in flight.
package state

import (
	"sync"
	"time"
)

// ChunkPlanEntry is one entry of a recording's chunk plan, as returned by
// the compose- or play/practice-specific parameter stored procedure at
// START (spec.md §4.11 Scanner 3A, §6 stored procedures).
type ChunkPlanEntry struct {
	AudioChunkNo int64
	StartMS      int64
	EndMS        int64
}

// RecordingConfig is the live configuration and running totals for one
// recording, mirroring datastore.RecordingConfigRow.
type RecordingConfig struct {
	RecordingID                        int64
	DTRecordingStart                   *time.Time
	DTRecordingEnd                     *time.Time
	ComposePlayOrPractice              string
	ViolinistID                        int64
	AudioStreamFileName                string
	ComposeYNRunFFT                    string
	WebsocketConnectionID              int64
	DTProcessWebsocketStartMessageDone *time.Time
	MaxPreSplitAudioFrameNoSplit       int64
	TotalBytesReceived                 int64
	TotalSplit100MSFramesProduced      int64
	Split100MSFrameCounter             int64
	LastSplit100MSFrameTime            *time.Time
	ChunkPlan                          []ChunkPlanEntry
}

// PreSplitFrame is the live metadata and raw payload for one pre-split
// frame as received from a client, prior to 100ms alignment.
type PreSplitFrame struct {
	RecordingID                        int64
	AudioFrameNo                       int64
	StartMS                            int64
	EndMS                              int64
	DTFrameReceived                    *time.Time
	DTFramePairedWithWebsocketsMetadata *time.Time
	AudioFrameSizeBytes                int
	AudioFrameEncoding                 string
	AudioFrameSHA256Hex                string
	WebsocketConnectionID              int64
	AudioFrameBytes                    []byte // memory-only, not persisted
}

// SplitFrame is the live metadata, flags, and decoded audio for one
// aligned 100ms frame moving through the analyzer fan-out.
type SplitFrame struct {
	RecordingID  int64
	AudioFrameNo int64
	StartMS      int64
	EndMS        int64

	AudioFrameSizeBytes int
	AudioFrameEncoding  string
	AudioFrameSHA256Hex string

	YNRunFFT   string
	YNRunONS   string
	YNRunPYIN  string
	YNRunCREPE string

	DTFrameDecodedFromBase64ToBytes         *time.Time
	DTFrameDecodedFromBytesIntoAudioSamples *time.Time
	DTFrameResampledTo44100                 *time.Time
	DTProcessingStart                       *time.Time
	DTProcessingEnd                         *time.Time

	DTStartFFT   *time.Time
	DTEndFFT     *time.Time
	DTStartONS   *time.Time
	DTEndONS     *time.Time
	DTStartPYIN  *time.Time
	DTEndPYIN    *time.Time
	DTStartCREPE *time.Time
	DTEndCREPE   *time.Time

	FFTRecordCnt        int
	ONSRecordCnt        int
	PYINRecordCnt       int
	CREPERecordCnt      int
	Volume1MSRecordCnt  int
	Volume10MSRecordCnt int

	// Memory-only decoded audio, never persisted.
	AudioArray16000 []float32
	AudioArray22050 []float32
}

// Store holds every recording's live state, keyed by recording id and,
// for frames, frame number. A single Store is shared by the message
// intake, frame aligner, and orchestrator scanners.
type Store struct {
	configMu sync.RWMutex
	config   map[int64]*RecordingConfig

	preSplitMu sync.RWMutex
	preSplit   map[int64]map[int64]*PreSplitFrame

	splitMu sync.RWMutex
	split   map[int64]map[int64]*SplitFrame

	msgMu     sync.Mutex
	messages  map[int64]*Message
	msgOrder  []int64
	nextMsgID int64

	sessionMu sync.RWMutex
	sessions  map[int64]*Session
	nextSessionID int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		config:   make(map[int64]*RecordingConfig),
		preSplit: make(map[int64]map[int64]*PreSplitFrame),
		split:    make(map[int64]map[int64]*SplitFrame),
		messages: make(map[int64]*Message),
		sessions: make(map[int64]*Session),
	}
}

// PutConfig inserts or replaces a recording's config.
func (s *Store) PutConfig(cfg *RecordingConfig) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config[cfg.RecordingID] = cfg
}

// Config returns a recording's config, if present.
func (s *Store) Config(recordingID int64) (*RecordingConfig, bool) {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	cfg, ok := s.config[recordingID]
	return cfg, ok
}

// DeleteConfig removes a recording's config, e.g. once finalized.
func (s *Store) DeleteConfig(recordingID int64) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	delete(s.config, recordingID)
}

// AllConfigs returns a snapshot slice of every tracked recording's config.
// Used by scanners that sweep every live recording each tick.
func (s *Store) AllConfigs() []*RecordingConfig {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	out := make([]*RecordingConfig, 0, len(s.config))
	for _, c := range s.config {
		out = append(out, c)
	}
	return out
}

// PutPreSplitFrame inserts or replaces a pre-split frame.
func (s *Store) PutPreSplitFrame(f *PreSplitFrame) {
	s.preSplitMu.Lock()
	defer s.preSplitMu.Unlock()
	byFrame, ok := s.preSplit[f.RecordingID]
	if !ok {
		byFrame = make(map[int64]*PreSplitFrame)
		s.preSplit[f.RecordingID] = byFrame
	}
	byFrame[f.AudioFrameNo] = f
}

// PreSplitFrame returns one pre-split frame, if present.
func (s *Store) PreSplitFrame(recordingID, frameNo int64) (*PreSplitFrame, bool) {
	s.preSplitMu.RLock()
	defer s.preSplitMu.RUnlock()
	byFrame, ok := s.preSplit[recordingID]
	if !ok {
		return nil, false
	}
	f, ok := byFrame[frameNo]
	return f, ok
}

// DeletePreSplitRecording releases every pre-split frame tracked for a
// recording, e.g. once its frames have all been aligned and split.
func (s *Store) DeletePreSplitRecording(recordingID int64) {
	s.preSplitMu.Lock()
	defer s.preSplitMu.Unlock()
	delete(s.preSplit, recordingID)
}

// PutSplitFrame inserts or replaces a split frame.
func (s *Store) PutSplitFrame(f *SplitFrame) {
	s.splitMu.Lock()
	defer s.splitMu.Unlock()
	byFrame, ok := s.split[f.RecordingID]
	if !ok {
		byFrame = make(map[int64]*SplitFrame)
		s.split[f.RecordingID] = byFrame
	}
	byFrame[f.AudioFrameNo] = f
}

// SplitFrame returns one split frame, if present.
func (s *Store) SplitFrame(recordingID, frameNo int64) (*SplitFrame, bool) {
	s.splitMu.RLock()
	defer s.splitMu.RUnlock()
	byFrame, ok := s.split[recordingID]
	if !ok {
		return nil, false
	}
	f, ok := byFrame[frameNo]
	return f, ok
}

// SplitFramesForRecording returns a snapshot slice of every split frame
// currently tracked for a recording, in no particular order.
func (s *Store) SplitFramesForRecording(recordingID int64) []*SplitFrame {
	s.splitMu.RLock()
	defer s.splitMu.RUnlock()
	byFrame, ok := s.split[recordingID]
	if !ok {
		return nil
	}
	out := make([]*SplitFrame, 0, len(byFrame))
	for _, f := range byFrame {
		out = append(out, f)
	}
	return out
}

// DeleteSplitFrame releases one split frame's state once its analyzer
// fan-out and persistence are complete.
func (s *Store) DeleteSplitFrame(recordingID, frameNo int64) {
	s.splitMu.Lock()
	defer s.splitMu.Unlock()
	byFrame, ok := s.split[recordingID]
	if !ok {
		return
	}
	delete(byFrame, frameNo)
	if len(byFrame) == 0 {
		delete(s.split, recordingID)
	}
}

// DeleteSplitRecording releases every split frame tracked for a
// recording.
func (s *Store) DeleteSplitRecording(recordingID int64) {
	s.splitMu.Lock()
	defer s.splitMu.Unlock()
	delete(s.split, recordingID)
}
