// Package types provides shared type definitions used across the playerd daemon.
package types

// Track is a playable audio item as delivered by the catalogue API
type Track struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	AudioPath string `json:"audioPath"`
	Artwork   string `json:"artwork,omitempty"`
}

// IsZero reports whether the track carries no identifier
func (t Track) IsZero() bool {
	return t.ID == ""
}

// RepeatMode represents the repeat behavior
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// String returns the string representation of the repeat mode
func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// Next returns the mode that follows r in the off -> all -> one -> off cycle
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses a string into a RepeatMode
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}

// MarshalText encodes the mode as its string form so JSON and TOML carry "off", "one" or "all"
func (r RepeatMode) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes the string form produced by MarshalText
func (r *RepeatMode) UnmarshalText(text []byte) error {
	*r = ParseRepeatMode(string(text))
	return nil
}
