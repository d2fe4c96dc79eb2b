// Package display maps predicted labels to their presentation: emoji, color and text.
package display

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NotFound is the key of the sentinel used for labels outside the map.
const NotFound = "not_found"

// Emotion is the presentation of a single label.
type Emotion struct {
	Key   string `json:"key" yaml:"key"`
	Emoji string `json:"emoji" yaml:"emoji"`
	Color string `json:"color" yaml:"color"`
	Text  string `json:"text" yaml:"text"`
	Known bool   `json:"known" yaml:"known"`
}

var emotions = map[string]Emotion{
	"happy":     {Key: "happy", Emoji: "😊", Color: "#FBBF24"},
	"sad":       {Key: "sad", Emoji: "😢", Color: "#60A5FA"},
	"fear":      {Key: "fear", Emoji: "😨", Color: "#A78BFA"},
	"angry":     {Key: "angry", Emoji: "😠", Color: "#EF4444"},
	"disgust":   {Key: "disgust", Emoji: "🤢", Color: "#10B981"},
	"surprised": {Key: "surprised", Emoji: "😲", Color: "#F472B6"},
	"neutral":   {Key: "neutral", Emoji: "😐", Color: "#9CA3AF"},
	NotFound:    {Key: NotFound, Emoji: "🤷‍♂️", Color: "#6B7280"},
}

// Keys lists the known labels in display order.
var Keys = []string{"happy", "sad", "fear", "angry", "disgust", "surprised", "neutral"}

// Lookup returns the presentation for label. Matching is case-insensitive;
// unknown labels get the not_found emoji and color but keep their own text.
func Lookup(label string) Emotion {
	key := strings.ToLower(strings.TrimSpace(label))
	e, ok := emotions[key]
	if !ok || key == NotFound {
		e = emotions[NotFound]
		e.Known = false
	} else {
		e.Known = true
	}
	e.Text = Capitalize(key)
	return e
}

// All returns the known emotions followed by the sentinel.
func All() []Emotion {
	out := make([]Emotion, 0, len(Keys)+1)
	for _, k := range Keys {
		out = append(out, Lookup(k))
	}
	sentinel := emotions[NotFound]
	sentinel.Text = "Not found"
	return append(out, sentinel)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// RGB parses a #RRGGBB color.
func RGB(color string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q", color)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", color, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// RGBString formats the color as "r,g,b".
func (e Emotion) RGBString() string {
	r, g, b, err := RGB(e.Color)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d", r, g, b)
}
