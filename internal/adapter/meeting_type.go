// Package adapter defines the uniform interface the Supervisor drives
// regardless of which video-conference platform a bot joined (spec.md
// §6.2), plus the URL-based platform detection of §6.1. Concrete
// per-platform SDK/browser-automation internals are out of scope (spec.md
// §1 Non-goals); the stub adapters here only satisfy the interface shape
// so the rest of the core can be built and tested against it.
package adapter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MeetingType identifies which video-conference platform a meeting URL
// belongs to.
type MeetingType string

const (
	MeetingTypeZoom       MeetingType = "zoom"
	MeetingTypeGoogleMeet MeetingType = "google_meet"
	MeetingTypeTeams      MeetingType = "teams"
)

var zoomMeetingIDPattern = regexp.MustCompile(`\d+`)

// MeetingTypeFromURL classifies a meeting URL per spec.md §6.1:
// *.zoom.us -> Zoom, meet.google.com -> Google Meet (URL must start with
// that origin), teams.microsoft.com/teams.live.com -> Teams.
func MeetingTypeFromURL(raw string) (MeetingType, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("adapter: invalid meeting url: %w", err)
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.HasSuffix(host, "zoom.us"):
		return MeetingTypeZoom, nil
	case strings.HasPrefix(strings.ToLower(raw), "https://meet.google.com") || strings.HasPrefix(strings.ToLower(raw), "http://meet.google.com"):
		return MeetingTypeGoogleMeet, nil
	case host == "teams.microsoft.com" || host == "teams.live.com":
		return MeetingTypeTeams, nil
	default:
		return "", fmt.Errorf("adapter: unrecognized meeting platform for url %q", raw)
	}
}

// ZoomMeetingID extracts the digit-run meeting id from a Zoom URL's path,
// per spec.md §6.1.
func ZoomMeetingID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	id := zoomMeetingIDPattern.FindString(u.Path)
	if id == "" {
		return "", fmt.Errorf("adapter: no meeting id found in path %q", u.Path)
	}
	return id, nil
}

// ZoomPasscode extracts the "pwd" query parameter from a Zoom URL.
func ZoomPasscode(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("pwd")
}

// AudioProfile carries the platform-specific audio parameters spec.md
// §4.8/§4.6 call out: native sample rate, PCM sample format, and the
// platform's chunk-playback cadence. Only SampleRate is read elsewhere;
// internal/audiooutput does not read ChunkInterval and plays every
// platform at its own fixed 900ms cadence.
type AudioProfile struct {
	SampleRate    int
	SampleFormat  string // "S16LE" or "F32LE"
	ChunkInterval float64 // seconds per chunk, per spec.md §4.6
}

// AudioProfileFor returns the platform's native audio parameters (spec.md
// §4.5/§4.6/§4.8: Zoom native=32000 S16LE @0.9s/chunk; Meet/Teams=48000
// F32LE @0.1s/chunk).
func AudioProfileFor(t MeetingType) AudioProfile {
	switch t {
	case MeetingTypeZoom:
		return AudioProfile{SampleRate: 32000, SampleFormat: "S16LE", ChunkInterval: 0.9}
	default:
		return AudioProfile{SampleRate: 48000, SampleFormat: "F32LE", ChunkInterval: 0.1}
	}
}
