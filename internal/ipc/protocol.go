// Package ipc handles inter-process communication between the daemon and clients.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/austinkregel/local-media/playerd/internal/player"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

// CommandType represents the type of command
type CommandType string

const (
	CmdPlayTrack     CommandType = "playTrack"
	CmdPlayOrToggle  CommandType = "playOrToggle"
	CmdToggle        CommandType = "toggle"
	CmdNext          CommandType = "next"
	CmdPrev          CommandType = "prev"
	CmdRadio         CommandType = "radio"
	CmdSeek          CommandType = "seek"
	CmdSeekRatio     CommandType = "seekRatio"
	CmdCycleRepeat   CommandType = "cycleRepeat"
	CmdToggleShuffle CommandType = "toggleShuffle"
	CmdJump          CommandType = "jump"
	CmdVolume        CommandType = "volume"
	CmdStatus        CommandType = "status"
	CmdWaveform      CommandType = "waveform"

	// Push subscriptions
	CmdSubscribe   CommandType = "subscribe"
	CmdUnsubscribe CommandType = "unsubscribe"
)

// Push message types
const (
	PushState    = "state"
	PushWaveform = "waveform"
)

// Session states reported in StatusResponse
const (
	StateIdle    = "idle"
	StateLoading = "loading"
	StatePlaying = "playing"
	StatePaused  = "paused"
)

// PushMessage represents a server-initiated message (no request needed)
type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request represents a client request. ID is echoed in the response.
type Request struct {
	ID   string          `json:"id,omitempty"`
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PlayTrackRequest is the data for playTrack and playOrToggle
type PlayTrackRequest struct {
	Track types.Track   `json:"track"`
	Queue []types.Track `json:"queue,omitempty"`
}

// RadioRequest is the data for a radio command
type RadioRequest struct {
	Track types.Track `json:"track"`
}

// SeekRequest is the data for a seek command
type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

// SeekRatioRequest is the data for a seekRatio command
type SeekRatioRequest struct {
	Ratio float64 `json:"ratio"` // 0.0 - 1.0 of the duration
}

// JumpRequest is the data for a jump command
type JumpRequest struct {
	Index int `json:"index"`
}

// VolumeRequest is the data for a volume command
type VolumeRequest struct {
	Level float64 `json:"level"` // 0.0 - 1.0
}

// StatusResponse is the response to a status command and the payload of
// state pushes
type StatusResponse struct {
	State    string           `json:"state"`
	Track    *types.Track     `json:"track,omitempty"`
	Progress float64          `json:"progress"` // seconds
	Duration float64          `json:"duration"` // seconds
	Volume   float64          `json:"volume"`
	Repeat   types.RepeatMode `json:"repeatMode"`
	Shuffle  bool             `json:"shuffle"`
	Index    int              `json:"queueIndex"`
	Queue    []types.Track    `json:"queue"`
	CanSkip  bool             `json:"canSkip"`
}

// WaveformResponse is the response to a waveform command and the payload of
// waveform pushes
type WaveformResponse struct {
	TrackID string    `json:"trackId,omitempty"`
	Samples []float64 `json:"samples"`
}

// NewStatusResponse converts a player snapshot
func NewStatusResponse(s player.Snapshot) StatusResponse {
	state := StateIdle
	switch {
	case s.Track == nil:
	case s.Loading:
		state = StateLoading
	case s.Playing:
		state = StatePlaying
	default:
		state = StatePaused
	}
	queue := s.Queue
	if queue == nil {
		queue = []types.Track{}
	}
	return StatusResponse{
		State:    state,
		Track:    s.Track,
		Progress: s.Progress,
		Duration: s.Duration,
		Volume:   s.Volume,
		Repeat:   s.Repeat,
		Shuffle:  s.Shuffle,
		Index:    s.Index,
		Queue:    queue,
		CanSkip:  s.CanSkip,
	}
}

// NewWaveformResponse extracts the waveform of a player snapshot
func NewWaveformResponse(s player.Snapshot) WaveformResponse {
	resp := WaveformResponse{Samples: s.Waveform}
	if resp.Samples == nil {
		resp.Samples = []float64{}
	}
	if s.Track != nil {
		resp.TrackID = s.Track.ID
	}
	return resp
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Cmd == "" {
		return nil, fmt.Errorf("failed to decode request: missing cmd")
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewPushMessage creates a push message for streaming data
func NewPushMessage(msgType string, data interface{}) ([]byte, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(PushMessage{
		Type: msgType,
		Data: rawData,
	})
}

// envelope is a line read by the client: either a response or a push
type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *envelope) isPush() bool {
	return e.Type != ""
}
