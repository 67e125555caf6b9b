package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// radioTimeout bounds the radio seed request made on behalf of a client
const radioTimeout = 15 * time.Second

func (s *Server) handleRequest(ctx context.Context, c *clientConn, req *Request) *Response {
	switch req.Cmd {
	case CmdPlayTrack:
		return s.handlePlayTrack(req, false)
	case CmdPlayOrToggle:
		return s.handlePlayTrack(req, true)
	case CmdToggle:
		s.player.TogglePlayPause()
		return s.statusResponse()
	case CmdNext:
		s.player.PlayNext()
		return s.statusResponse()
	case CmdPrev:
		s.player.PlayPrev()
		return s.statusResponse()
	case CmdRadio:
		return s.handleRadio(ctx, req)
	case CmdSeek:
		return s.handleSeek(req)
	case CmdSeekRatio:
		return s.handleSeekRatio(req)
	case CmdCycleRepeat:
		s.player.CycleRepeat()
		return s.statusResponse()
	case CmdToggleShuffle:
		s.player.ToggleShuffle()
		return s.statusResponse()
	case CmdJump:
		return s.handleJump(req)
	case CmdVolume:
		return s.handleVolume(req)
	case CmdStatus:
		return s.statusResponse()
	case CmdWaveform:
		return success(NewWaveformResponse(s.player.Snapshot()))
	case CmdSubscribe:
		c.setSubscribed(true)
		// Prime the subscriber with the current waveform
		if msg, err := NewPushMessage(PushWaveform, NewWaveformResponse(s.player.Snapshot())); err == nil {
			c.push(msg)
		}
		return s.statusResponse()
	case CmdUnsubscribe:
		c.setSubscribed(false)
		return success(nil)
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Cmd))
	}
}

func (s *Server) handlePlayTrack(req *Request, toggle bool) *Response {
	var data PlayTrackRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}

	var err error
	if toggle {
		err = s.player.PlayOrToggle(data.Track, data.Queue)
	} else {
		err = s.player.PlayTrack(data.Track, data.Queue)
	}
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return s.statusResponse()
}

func (s *Server) handleRadio(ctx context.Context, req *Request) *Response {
	var data RadioRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, radioTimeout)
	defer cancel()
	if err := s.player.StartRadio(ctx, data.Track); err != nil {
		return NewErrorResponse(err.Error())
	}
	return s.statusResponse()
}

func (s *Server) handleSeek(req *Request) *Response {
	var data SeekRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.player.Seek(time.Duration(data.Seconds * float64(time.Second)))
	return s.statusResponse()
}

func (s *Server) handleSeekRatio(req *Request) *Response {
	var data SeekRatioRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}
	s.player.SeekRatio(data.Ratio)
	return s.statusResponse()
}

func (s *Server) handleJump(req *Request) *Response {
	var data JumpRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.player.JumpTo(data.Index); err != nil {
		return NewErrorResponse(err.Error())
	}
	return s.statusResponse()
}

func (s *Server) handleVolume(req *Request) *Response {
	var data VolumeRequest
	if err := decodeData(req, &data); err != nil {
		return NewErrorResponse(err.Error())
	}
	if data.Level < 0 || data.Level > 1 {
		return NewErrorResponse("volume must be between 0 and 1")
	}
	s.player.SetVolume(data.Level)
	return s.statusResponse()
}

func (s *Server) statusResponse() *Response {
	return success(NewStatusResponse(s.player.Snapshot()))
}

func success(data interface{}) *Response {
	resp, err := NewSuccessResponse(data)
	if err != nil {
		return NewErrorResponse("failed to encode response")
	}
	return resp
}

func decodeData(req *Request, v interface{}) error {
	if len(req.Data) == 0 {
		return fmt.Errorf("%s requires data", req.Cmd)
	}
	if err := json.Unmarshal(req.Data, v); err != nil {
		return fmt.Errorf("invalid %s data: %w", req.Cmd, err)
	}
	return nil
}
