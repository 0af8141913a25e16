package datastore

import "time"

// RecordingConfigRow is the durable projection of a recording's configuration
// and running totals (spec.md §3 "Recording config").
type RecordingConfigRow struct {
	RecordingID                       int64 `gorm:"primaryKey"`
	DTRecordingStart                  *time.Time
	DTRecordingEnd                    *time.Time
	DTRecordingDataQueuedForPurging   *time.Time
	DTRecordingDataPurged             *time.Time
	ComposePlayOrPractice             string // COMPOSE | PLAY | PRACTICE
	ViolinistID                       int64
	AudioStreamFileName               string
	ComposeYNRunFFT                   string // Y/N, immutable once set at START
	WebsocketConnectionID             int64
	DTProcessWebsocketStartMessageDone *time.Time
	MaxPreSplitAudioFrameNoSplit       int64
	TotalBytesReceived                 int64
	TotalSplit100MSFramesProduced      int64
	Split100MSFrameCounter             int64
	LastSplit100MSFrameTime            *time.Time
}

func (RecordingConfigRow) TableName() string { return "ENGINE_DB_LOG_RECORDING_CONFIG" }

// WebsocketConnectionRow mirrors spec.md's Session entity.
type WebsocketConnectionRow struct {
	WebsocketConnectionID  int64 `gorm:"primaryKey"`
	ClientHostIPAddress    string
	ClientPort             string
	ClientHeaders          string
	DTConnectionRequest    *time.Time
	DTConnectionAccepted   *time.Time
	DTConnectionClosed     *time.Time
	DTWebsocketDisconnectEvent *time.Time
}

func (WebsocketConnectionRow) TableName() string { return "ENGINE_DB_LOG_WEBSOCKET_CONNECTION" }

// WebsocketMessageRow mirrors spec.md's Message entity.
type WebsocketMessageRow struct {
	MessageID                    int64 `gorm:"primaryKey"`
	RecordingID                  int64
	MessageType                  string // START | FRAME | STOP
	AudioFrameNo                 int64
	DTMessageReceived            *time.Time
	DTMessageProcessQueuedToStart *time.Time
	DTMessageProcessStarted      *time.Time
	WebsocketConnectionID        int64
}

func (WebsocketMessageRow) TableName() string { return "ENGINE_DB_LOG_WEBSOCKET_MESSAGE" }

// PreSplitAudioFrameRow mirrors spec.md's Pre-split frame entity.
type PreSplitAudioFrameRow struct {
	RecordingID                        int64 `gorm:"primaryKey;column:recording_id"`
	AudioFrameNo                       int64 `gorm:"primaryKey;column:audio_frame_no"`
	StartMS                           int64
	EndMS                             int64
	DTFrameReceived                   *time.Time
	DTFramePairedWithWebsocketsMetadata *time.Time
	AudioFrameSizeBytes               int
	AudioFrameEncoding                string // raw | pcm16 | base64 | hex
	AudioFrameSHA256Hex               string
	WebsocketConnectionID             int64
	PreSplitAudioFrameDurationInMS    int64
	DTFrameSplitInto100MSFrames       *time.Time
}

func (PreSplitAudioFrameRow) TableName() string { return "ENGINE_DB_LOG_PRE_SPLIT_AUDIO_FRAME" }

// SplitAudioFrameRow mirrors spec.md's Split frame durable metadata.
type SplitAudioFrameRow struct {
	RecordingID   int64 `gorm:"primaryKey;column:recording_id"`
	AudioFrameNo int64 `gorm:"primaryKey;column:audio_frame_no"`
	StartMS      int64
	EndMS        int64

	AudioFrameSizeBytes int
	AudioFrameEncoding  string
	AudioFrameSHA256Hex string

	YNRunFFT   string
	YNRunONS   string
	YNRunPYIN  string
	YNRunCREPE string

	DTFrameDecodedFromBase64ToBytes            *time.Time
	DTFrameDecodedFromBytesIntoAudioSamples    *time.Time
	DTFrameResampledTo44100                    *time.Time
	DTFrameConvertedToPCM16WithSampleRate44100 *time.Time
	DTFrameAppendedToRawFile                   *time.Time
	DTFrameResampledTo16000                    *time.Time
	DTFrameResampled22050                      *time.Time
	DTProcessingQueuedToStart                  *time.Time
	DTProcessingStart                          *time.Time
	DTProcessingEnd                            *time.Time

	DTStartFFT    *time.Time
	DTEndFFT      *time.Time
	DTStartONS    *time.Time
	DTEndONS      *time.Time
	DTStartPYIN   *time.Time
	DTEndPYIN     *time.Time
	DTStartCREPE  *time.Time
	DTEndCREPE    *time.Time
	DTStartVolume1MS  *time.Time
	DTEndVolume1MS    *time.Time
	DTStartVolume10MS *time.Time
	DTEndVolume10MS   *time.Time

	FFTRecordCnt       int
	ONSRecordCnt       int
	PYINRecordCnt      int
	CREPERecordCnt     int
	Volume1MSRecordCnt int
	Volume10MSRecordCnt int
}

func (SplitAudioFrameRow) TableName() string { return "ENGINE_DB_LOG_SPLIT_100_MS_AUDIO_FRAME" }

// ChunkPlanRow is one row of a recording's chunk plan, returned by the
// compose- or play/practice-specific parameter stored procedures at START
// (spec.md §4.11 Scanner 3A, §6 stored procedures). It is a stored
// procedure result shape, not an owned table — no TableName method.
type ChunkPlanRow struct {
	RecordingID  int64
	AudioChunkNo int64
	StartMS      int64
	EndMS        int64
}

// SpectralRow is one FFT magnitude bucket for one frame (C3).
type SpectralRow struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID   int64
	AudioFrameNo  int64
	StartMS       int64
	EndMS         int64
	BucketNo      int
	HzLo          float64
	HzHi          float64
	BucketWidthHz float64
	Magnitude     float64
	SampleRate    int
}

func (SpectralRow) TableName() string { return "ENGINE_DB_LOG_FFT" }

// PitchRow is shared by both pitch analyzers (C4/C5), discriminated by SourceTag.
type PitchRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID  int64
	AudioFrameNo int64
	StartMS      int64
	EndMS        int64
	SourceTag    string // PYIN | CREPE
	HZ           float64
	Confidence   float64
}

func (PitchRow) TableName() string { return "ENGINE_DB_LOG_PITCH" }

// NoteRow is one MIDI note event returned by the onset/note analyzer (C6).
type NoteRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID  int64
	AudioFrameNo int64
	StartMS      int64
	EndMS        int64
	MIDIPitch    int
	MIDIVelocity int
	SourceTag    string // ONS
}

func (NoteRow) TableName() string { return "ENGINE_DB_LOG_NOTE" }

// VolumeAggregateRow is the per-frame summary volume row (C7).
type VolumeAggregateRow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID int64
	AudioChunkNo int64
	StartMS     int64
	RMS         float64
	DB          float64
}

func (VolumeAggregateRow) TableName() string { return "ENGINE_DB_LOG_VOLUME" }

// Volume10MSRow is one 10ms volume series entry (C7).
type Volume10MSRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID  int64
	StartMS      int64
	EndMS        int64
	RMS          float64
	DB           float64
	AudioFrameNo int64
	SampleRate   int
}

func (Volume10MSRow) TableName() string { return "ENGINE_DB_LOG_VOLUME_10_MS" }

// Volume1MSRow is one 1ms volume series entry (C7).
type Volume1MSRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	RecordingID  int64
	StartMS      int64
	RMS          float64
	DB           float64
	AudioFrameNo int64
	SampleRate   int
}

func (Volume1MSRow) TableName() string { return "ENGINE_DB_LOG_VOLUME_1_MS" }

// StepLogRow is one row emitted by the process-wide metadata logger (C13).
type StepLogRow struct {
	StepID       int64 `gorm:"primaryKey;autoIncrement"`
	StepName     string
	FunctionName string
	FileName     string
	RecordingID  int64
	AudioChunkNo int64
	FrameNo      int64
	DTStepCalled time.Time
}

func (StepLogRow) TableName() string { return "ENGINE_DB_LOG_STEPS" }
