package live

import (
	"net/url"
	"strconv"
	"time"
)

const (
	MinDwell = time.Second
	MaxDwell = time.Minute
)

// Settings are the per-viewer display flags read from the widget URL.
// Font and color values are passed through to the page untouched.
type Settings struct {
	ShowAmount      bool          `json:"show_amount"`
	ShowMessage     bool          `json:"show_message"`
	Dwell           time.Duration `json:"-"`
	Narrate         bool          `json:"tts"`
	FontSize        string        `json:"font_size,omitempty"`
	FontColor       string        `json:"font_color,omitempty"`
	BackgroundColor string        `json:"background_color,omitempty"`
}

// DefaultSettings shows everything, narrates and dwells for dwell.
func DefaultSettings(dwell time.Duration) Settings {
	return Settings{
		ShowAmount:  true,
		ShowMessage: true,
		Dwell:       clampDwell(dwell),
		Narrate:     true,
	}
}

// ParseSettings reads showAmount, showMessage, duration (ms), tts, fontSize,
// fontColor and backgroundColor. Boolean flags are on unless set to "false"
// and an unparsable duration falls back to defaultDwell.
func ParseSettings(q url.Values, defaultDwell time.Duration) Settings {
	s := DefaultSettings(defaultDwell)

	s.ShowAmount = q.Get("showAmount") != "false"
	s.ShowMessage = q.Get("showMessage") != "false"
	s.Narrate = q.Get("tts") != "false"

	if raw := q.Get("duration"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil {
			s.Dwell = clampDwell(time.Duration(ms) * time.Millisecond)
		}
	}

	s.FontSize = q.Get("fontSize")
	s.FontColor = q.Get("fontColor")
	s.BackgroundColor = q.Get("backgroundColor")
	return s
}

// DwellMillis is the dwell as reported to the page.
func (s Settings) DwellMillis() int64 {
	return s.Dwell.Milliseconds()
}

func clampDwell(d time.Duration) time.Duration {
	if d < MinDwell {
		return MinDwell
	}
	if d > MaxDwell {
		return MaxDwell
	}
	return d
}
