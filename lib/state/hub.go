// Package state owns the device-independent bridge state and is its only
// writer. Engines call into the hub; the hub publishes on the bus and pushes
// display commands to the surface.
package state

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"xeos/lib/bus"
)

const (
	SurfaceWidth = 8
	PageCount    = 8
)

type ProgrammerState int

const (
	ProgrammerUnknown ProgrammerState = iota
	ProgrammerLive
	ProgrammerBlind
)

func (p ProgrammerState) String() string {
	switch p {
	case ProgrammerLive:
		return "LIVE"
	case ProgrammerBlind:
		return "BLIND"
	}
	return "unknown"
}

type Fader struct {
	ID    int
	Value float64
	Name  string
	Color bus.Color
	Fired bool

	hasValue bool
}

// Surface is the set of device commands the hub issues directly to the
// surface engine.
type Surface interface {
	SetScribbleText(row, col int, text string)
	SetScribbleColor(col int, color bus.Color)
	Set7Segment(text string)
	SetButtonLED(id string, state bus.LEDState)
}

type Console interface {
	SetFaderPage(page int)
}

type Hub struct {
	bus     *bus.Bus
	log     *log.Logger
	surface Surface
	console Console

	faders     map[int]*Fader
	keys       map[string]int
	programmer ProgrammerState
	page       int
}

func NewHub(b *bus.Bus, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		bus:    b,
		log:    logger,
		faders: map[int]*Fader{},
		keys:   map[string]int{},
	}
}

func (h *Hub) Attach(s Surface, c Console) {
	h.surface = s
	h.console = c
}

func (h *Hub) KeyPressed(name string, value int) {
	h.keys[name] = value
	h.bus.Publish(bus.KeyPress{Name: name, Value: value})
}

func (h *Hub) GoLive() {
	if h.programmer == ProgrammerLive {
		return
	}
	h.programmer = ProgrammerLive
	h.bus.Publish(bus.GoLive{})
}

func (h *Hub) GoBlind() {
	if h.programmer == ProgrammerBlind {
		return
	}
	h.programmer = ProgrammerBlind
	h.bus.Publish(bus.GoBlind{})
}

// MovingFader records a fader value and publishes it tagged with origin.
// Changes below one thousandth are dropped. It reports whether the value was
// accepted.
func (h *Hub) MovingFader(id int, value float64, origin bus.Origin) bool {
	value = Clamp(value)
	f := h.fader(id)
	if f.hasValue && math.Round(value*1000) == math.Round(f.Value*1000) {
		return false
	}
	f.Value = value
	f.hasValue = true
	h.bus.Publish(bus.FaderMoved{ID: id, Value: value, Origin: origin, Fired: f.Fired})
	return true
}

func (h *Hub) EOSMovesFader(f Fader) {
	h.fader(f.ID).Fired = f.Fired
	h.MovingFader(f.ID, f.Value, bus.OriginConsole)
}

func (h *Hub) XTouchMovesFader(id int, value float64) {
	h.MovingFader(id, value, bus.OriginSurface)
}

func (h *Hub) NamingFader(id int, name string) {
	if id < 1 || id > SurfaceWidth {
		h.log.WithField("fader", id).Debug("fader name outside surface range")
		return
	}
	label := ParseFaderName(name)
	if !label.Known {
		h.log.WithFields(log.Fields{"fader": id, "name": name}).Warn("unknown fader type, using fallback color")
	}

	f := h.fader(id)
	f.Name = name
	f.Color = label.Color

	if h.surface != nil {
		h.surface.SetScribbleText(0, id-1, label.Top)
		h.surface.SetScribbleText(1, id-1, label.Bottom)
		h.surface.SetScribbleColor(id-1, label.Color)
	}
	h.bus.Publish(bus.FaderNamed{ID: id, Name: name, Color: label.Color})
}

func (h *Hub) FaderPageChanged(page int) {
	if page < 1 || page > PageCount {
		h.log.WithField("page", page).Warn("fader page outside page buttons")
	}
	h.page = page
	if h.surface != nil {
		for i := 1; i <= PageCount; i++ {
			st := bus.LEDOff
			if i == page {
				st = bus.LEDOn
			}
			h.surface.SetButtonLED(PageButton(i), st)
		}
	}
	h.bus.Publish(bus.FaderPageChanged{Page: page})
}

func (h *Hub) SetFaderPage(page int) {
	if h.console == nil {
		h.log.WithField("page", page).Warn("no console attached")
		return
	}
	h.console.SetFaderPage(page)
}

func (h *Hub) CuePlaying(cueID, text, t string) {
	if h.surface != nil {
		h.surface.Set7Segment(strings.TrimSpace(cueID + " " + t))
	}
	h.bus.Publish(bus.CuePlaying{CueID: cueID, Text: text, Time: t})
}

func (h *Hub) Programmer() ProgrammerState { return h.programmer }

func (h *Hub) Page() int { return h.page }

func (h *Hub) Fader(id int) (Fader, bool) {
	f, ok := h.faders[id]
	if !ok {
		return Fader{}, false
	}
	return *f, true
}

func (h *Hub) Key(name string) (int, bool) {
	v, ok := h.keys[name]
	return v, ok
}

func (h *Hub) fader(id int) *Fader {
	f, ok := h.faders[id]
	if !ok {
		f = &Fader{ID: id}
		h.faders[id] = f
	}
	return f
}

// PageButton is the semantic id of the surface button selecting page n.
func PageButton(n int) string {
	return fmt.Sprintf("fader_page_%d", n)
}

func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
