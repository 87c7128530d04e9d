// Package youtube extracts video metadata from saved URLs. Everything here is
// pure string work; no network calls are made.
package youtube

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var clockTimeRe = regexp.MustCompile(`(?i)^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// VideoID extracts the YouTube video identifier from a URL, or "" when the
// URL is not a recognized YouTube link.
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if host == "youtu.be" {
		parts := splitPath(u.Path)
		if len(parts) > 0 {
			return parts[0]
		}
		return ""
	}

	if strings.HasSuffix(host, "youtube.com") {
		// https://www.youtube.com/watch?v=VIDEO_ID
		if v := u.Query().Get("v"); v != "" {
			return v
		}

		// https://www.youtube.com/shorts/VIDEO_ID
		// https://www.youtube.com/embed/VIDEO_ID
		// https://www.youtube.com/live/VIDEO_ID
		parts := splitPath(u.Path)
		if len(parts) >= 2 {
			switch parts[0] {
			case "shorts", "embed", "live":
				return parts[1]
			}
		}
	}

	return ""
}

// StartSeconds extracts the start-time offset from a YouTube URL's
// t/start/time_continue query parameters. The second return value is false
// when no timestamp parameter is present or it cannot be parsed.
func StartSeconds(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}

	q := u.Query()
	t := q.Get("t")
	if t == "" {
		t = q.Get("start")
	}
	if t == "" {
		t = q.Get("time_continue")
	}
	if t == "" {
		return 0, false
	}
	return parseTimeToSeconds(t)
}

// parseTimeToSeconds accepts "90", "90s" and "1h2m3s" style values.
func parseTimeToSeconds(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}

	simple := strings.TrimSuffix(strings.TrimSuffix(trimmed, "s"), "S")
	if n, err := strconv.Atoi(simple); err == nil && n >= 0 {
		return n, true
	}

	m := clockTimeRe.FindStringSubmatch(trimmed)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, false
	}

	total := atoiDefault(m[1])*3600 + atoiDefault(m[2])*60 + atoiDefault(m[3])
	if total <= 0 {
		return 0, true
	}
	return total, true
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ThumbnailURL returns the preview image for a video. "hqdefault" is reliable;
// "maxresdefault" often 404s for some videos.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}

// EmbedOptions configures EmbedURL.
type EmbedOptions struct {
	VideoID      string
	StartSeconds int
	Autoplay     bool
}

// EmbedURL builds a privacy-enhanced embed URL for the player iframe.
func EmbedURL(opts EmbedOptions) string {
	start := int(math.Max(0, float64(opts.StartSeconds)))
	params := url.Values{}
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	if opts.Autoplay {
		params.Set("autoplay", "1")
	}
	params.Set("rel", "0")
	return fmt.Sprintf("https://www.youtube-nocookie.com/embed/%s?%s", opts.VideoID, params.Encode())
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
