package datastore

// Stored procedure names the pipeline calls at well-defined points in the
// recording lifecycle. These are named identifiers against a fixed
// external catalog owned by the downstream aggregation database — the
// procedure bodies themselves are out of scope here.
const (
	SPAllRecordingParametersGet          = "P_ENGINE_ALL_RECORDING_PARAMETERS_GET"
	SPSongAudioChunkForComposeGet        = "P_ENGINE_SONG_AUDIO_CHUNK_FOR_COMPOSE_GET"
	SPSongAudioChunkForPlayAndPracticeGet = "P_ENGINE_SONG_AUDIO_CHUNK_FOR_PLAY_AND_PRACTICE_GET"
	SPMethodComplete                     = "P_ENGINE_METHOD_COMPLETE"
	SPMasterAggregate                    = "P_ENGINE_MASTER_AGGREGATE"
	SPFinalizeRecording                  = "P_ENGINE_FINALIZE_RECORDING"
)
