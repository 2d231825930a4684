package bus

import "fmt"

// Origin identifies the engine a fader change came from.
type Origin int

const (
	OriginNone Origin = iota
	OriginSurface
	OriginConsole
)

func (o Origin) String() string {
	switch o {
	case OriginSurface:
		return "surface"
	case OriginConsole:
		return "console"
	}
	return "none"
}

type Color uint8

const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

var colorNames = [...]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

func ParseColor(name string) (Color, bool) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), true
		}
	}
	return ColorBlack, false
}

type LEDState string

const (
	LEDOff      LEDState = "Off"
	LEDOn       LEDState = "On"
	LEDFlashing LEDState = "Flashing"
)

// Event is one of the semantic messages carried on the bus. The set is
// closed: only types in this package implement it.
type Event interface {
	fmt.Stringer
	isEvent()
}

type KeyPress struct {
	Name  string
	Value int
}

type FaderMoved struct {
	ID     int
	Value  float64
	Origin Origin
	Fired  bool
}

type FaderNamed struct {
	ID    int
	Name  string
	Color Color
}

type GoLive struct{}

type GoBlind struct{}

type FaderPageChanged struct {
	Page int
}

type CuePlaying struct {
	CueID string
	Text  string
	Time  string
}

func (KeyPress) isEvent()         {}
func (FaderMoved) isEvent()       {}
func (FaderNamed) isEvent()       {}
func (GoLive) isEvent()           {}
func (GoBlind) isEvent()          {}
func (FaderPageChanged) isEvent() {}
func (CuePlaying) isEvent()       {}

func (e KeyPress) String() string {
	return fmt.Sprintf("key_press %s = %d", e.Name, e.Value)
}

func (e FaderMoved) String() string {
	return fmt.Sprintf("fader %d = %.4f (from %s)", e.ID, e.Value, e.Origin)
}

func (e FaderNamed) String() string {
	return fmt.Sprintf("fadername %d %q (%s)", e.ID, e.Name, e.Color)
}

func (GoLive) String() string  { return "goLive" }
func (GoBlind) String() string { return "goBlind" }

func (e FaderPageChanged) String() string {
	return fmt.Sprintf("faderPageChanged %d", e.Page)
}

func (e CuePlaying) String() string {
	return fmt.Sprintf("cue_playing %s %q %s", e.CueID, e.Text, e.Time)
}
