package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/austinkregel/local-media/playerd/internal/api"
	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/player"
)

// Suggestion returns a hint for err, or "" when there is none
func Suggestion(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusNotFound:
			return "Check the track id; the catalogue service does not know it"
		case apiErr.Status >= 500:
			return "The catalogue service is having issues. Try again in a moment"
		}
	}

	// Daemon not running
	if errors.Is(err, ipc.ErrClientClosed) || strings.Contains(errStr, "connection refused") ||
		(strings.Contains(errStr, "failed to connect") && strings.Contains(errStr, "no such file or directory")) {
		return "Start the daemon with 'playerd serve', or pass --socket if it listens elsewhere"
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout") {
		return "The request timed out. Check that the daemon and the catalogue service are reachable"
	}

	if errors.Is(err, player.ErrRadioUnavailable) || strings.Contains(errStr, "radio unavailable") {
		return "Radio needs the catalogue service; check api.base_url in the config"
	}

	if strings.Contains(errStr, "config") {
		return "Fix the config file, or delete it and run 'playerd serve' to regenerate the defaults"
	}

	if strings.Contains(errStr, "ffmpeg") {
		return "Install ffmpeg or set audio.ffmpeg = false in the config"
	}

	return ""
}

// FormatError returns a user-facing message with a suggestion if available
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	if suggestion := Suggestion(err); suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
