//go:build !linux

package media

import "fmt"

// NewSession creates a new platform-specific media session.
// Only MPRIS on Linux is implemented.
func NewSession(name string) (Session, error) {
	return nil, fmt.Errorf("media session not supported on this platform")
}
