package player

import (
	"fmt"
	"time"

	"github.com/austinkregel/local-media/playerd/internal/media"
)

// OnCommand handles commands from the OS media session
func (c *Controller) OnCommand(cmd media.Command, data interface{}) error {
	c.log.Debug().Str("command", string(cmd)).Msg("media command")

	switch cmd {
	case media.CmdPlay:
		if !c.Snapshot().Playing {
			c.TogglePlayPause()
		}
	case media.CmdPause, media.CmdStop:
		if c.Snapshot().Playing {
			c.TogglePlayPause()
		}
	case media.CmdPlayPause:
		c.TogglePlayPause()
	case media.CmdNext:
		c.PlayNext()
	case media.CmdPrevious:
		c.PlayPrev()
	case media.CmdSeek:
		pos, ok := data.(time.Duration)
		if !ok {
			return fmt.Errorf("seek expects a duration, got %T", data)
		}
		c.Seek(pos)
	case media.CmdSetShuffle:
		enabled, ok := data.(bool)
		if !ok {
			return fmt.Errorf("shuffle expects a bool, got %T", data)
		}
		c.SetShuffle(enabled)
	case media.CmdSetLoopStatus:
		status, ok := data.(media.LoopStatus)
		if !ok {
			return fmt.Errorf("loop status expects a LoopStatus, got %T", data)
		}
		c.SetRepeat(status.RepeatMode())
	default:
		return fmt.Errorf("unsupported media command %s", cmd)
	}
	return nil
}
