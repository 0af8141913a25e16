// Package onset is the Onset/Note analyzer (C6): a client for the
// external onsets-and-frames transcription microservice. It posts a
// path to a staged mono WAV file and parses the returned note events
// into absolute-millisecond rows.
package onset

import (
	"context"
	"encoding/json"
	"io"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/httpclient"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

// sourceTag is persisted on every row this analyzer produces.
const sourceTag = "ONS"

// noteEvent mirrors the microservice's per-note JSON shape:
// {"onset_sec":.., "offset_sec":.., "pitch_midi":.., "velocity":..}.
type noteEvent struct {
	OnsetSec  float64 `json:"onset_sec"`
	OffsetSec float64 `json:"offset_sec"`
	PitchMIDI int     `json:"pitch_midi"`
	Velocity  int     `json:"velocity"`
}

type transcribeResponse struct {
	Notes []noteEvent `json:"notes"`
}

// Client wraps the shared HTTP client with the onset service's base URL.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// New builds an onset Client pointed at the external transcription
// service's base URL (e.g. "http://127.0.0.1:9077").
func New(baseURL string) *Client {
	return &Client{
		http:    httpclient.New(nil),
		baseURL: baseURL,
	}
}

// Healthy reports whether the external service's /health endpoint
// responds with a 2xx status.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.http.Get(ctx, c.baseURL+"/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Analyze posts wavPath to the service's /transcribe endpoint and
// returns note rows with absolute start/end ms derived from
// baseStartMS. Non-2xx responses or malformed JSON downgrade to zero
// rows with a warning; there are no retries within the handler
// (spec.md §4.6).
func (c *Client) Analyze(ctx context.Context, recordingID, frameNo int64, baseStartMS int64, wavPath string) []datastore.NoteRow {
	payload := map[string]string{"path": wavPath}
	resp, err := c.http.Post(ctx, c.baseURL+"/transcribe", "application/json", payload)
	if err != nil {
		logging.Warn("onset: request error, frame downgraded to zero rows",
			"recording_id", recordingID, "frame_no", frameNo, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("onset: non-2xx response, frame downgraded to zero rows",
			"recording_id", recordingID, "frame_no", frameNo, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Warn("onset: error reading response body, frame downgraded to zero rows",
			"recording_id", recordingID, "frame_no", frameNo, "error", err)
		return nil
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logging.Warn("onset: malformed JSON, frame downgraded to zero rows",
			"recording_id", recordingID, "frame_no", frameNo, "error", err)
		return nil
	}

	rows := make([]datastore.NoteRow, 0, len(parsed.Notes))
	for _, n := range parsed.Notes {
		rows = append(rows, datastore.NoteRow{
			RecordingID:  recordingID,
			AudioFrameNo: frameNo,
			StartMS:      baseStartMS + int64(n.OnsetSec*1000),
			EndMS:        baseStartMS + int64(n.OffsetSec*1000),
			MIDIPitch:    n.PitchMIDI,
			MIDIVelocity: n.Velocity,
			SourceTag:    sourceTag,
		})
	}
	return rows
}

// Close releases the underlying HTTP client's idle connections.
func (c *Client) Close() {
	c.http.Close()
}
