package state

import (
	"regexp"
	"strings"

	"xeos/lib/bus"
)

const scribbleWidth = 7

// FallbackColor is used for fader names whose type has no entry in
// typeColors.
const FallbackColor = bus.ColorWhite

var typeColors = map[string]bus.Color{
	"CL":  bus.ColorGreen,
	"Sub": bus.ColorYellow,
	"Grp": bus.ColorCyan,
	"IP":  bus.ColorMagenta,
	"FP":  bus.ColorBlue,
	"CP":  bus.ColorRed,
	"BP":  bus.ColorBlue,
	"Mac": bus.ColorRed,
	"FX":  bus.ColorMagenta,
	"GM":  bus.ColorWhite,
	"Ch":  bus.ColorWhite,
}

var loopTarget = regexp.MustCompile(`^L[0-9]+$`)

// FaderLabel is the scribble strip rendering of a console fader name.
type FaderLabel struct {
	Top    string
	Bottom string
	Color  bus.Color
	Known  bool
}

// ParseFaderName splits "<type> <subId> <freeText>" into two 7-character
// lines and resolves the strip color from the type.
func ParseFaderName(name string) FaderLabel {
	fields := strings.SplitN(strings.TrimSpace(name), " ", 3)
	if len(fields) == 0 || fields[0] == "" {
		return FaderLabel{Color: bus.ColorBlack, Known: true}
	}

	typ := fields[0]
	top := typ
	var bottom string
	if len(fields) > 1 {
		top += " " + fields[1]
	}
	if len(fields) > 2 {
		bottom = strings.TrimSpace(fields[2])
	}

	label := FaderLabel{
		Top:    truncate(top, scribbleWidth),
		Bottom: truncate(bottom, scribbleWidth),
		Color:  FallbackColor,
	}
	if c, ok := typeColors[typ]; ok {
		label.Color, label.Known = c, true
	} else if loopTarget.MatchString(typ) {
		label.Color, label.Known = bus.ColorGreen, true
	}
	return label
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
