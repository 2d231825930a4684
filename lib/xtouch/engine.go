package xtouch

import (
	"math"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"

	"xeos/lib/bus"
	"xeos/lib/mapping"
	"xeos/lib/state"
)

// Semantic ids of the programmer mode buttons.
const (
	ButtonLive  = "LIVE"
	ButtonBlind = "BLIND"
)

const (
	valuePressed  = "Pressed"
	valueReleased = "Released"
)

// MotorEchoWindow is how long after a motor command an untouched fader move
// is treated as the motor's own position report.
const MotorEchoWindow = 500 * time.Millisecond

var ledCodes = map[bus.LEDState]byte{
	bus.LEDOff:      0x00,
	bus.LEDFlashing: 0x01,
	bus.LEDOn:       0x7F,
}

// Hub is the part of the state hub the surface engine reports to.
type Hub interface {
	KeyPressed(name string, value int)
	XTouchMovesFader(id int, value float64)
}

// Engine translates between raw surface MIDI and the bridge's semantic
// events.
type Engine struct {
	tables *mapping.Tables
	out    *Output
	hub    Hub
	exec   state.Executor
	log    *log.Logger
	now    func() time.Time

	touched   map[int]bool
	lastMotor map[int]time.Time
	colors    [Width]bus.Color
	jog       JogWheel
}

func NewEngine(tables *mapping.Tables, out *Output, hub Hub, exec state.Executor, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		tables:    tables,
		out:       out,
		hub:       hub,
		exec:      exec,
		log:       logger,
		now:       time.Now,
		touched:   map[int]bool{},
		lastMotor: map[int]time.Time{},
	}
}

// HandleMessage is the surface input callback. It may be called from any
// goroutine; decoding happens on the executor.
func (e *Engine) HandleMessage(msg midi.Message) {
	raw := make([]byte, len(msg))
	copy(raw, msg)
	e.exec.Post(func() { e.decode(raw) })
}

func (e *Engine) decode(msg []byte) {
	el, payload, ok := e.tables.Resolve(msg)
	if !ok {
		e.log.WithField("raw", mapping.FormatID(msg)).Debug("unmapped surface message")
		return
	}

	switch el.Type {
	case mapping.TypeSwitch:
		e.decodeSwitch(el, payload)
	case mapping.TypeFader:
		e.decodeFader(el, payload)
	case mapping.TypeFaderTouch:
		e.decodeTouch(el, payload)
	case mapping.TypeEncoder, mapping.TypeJogWheel:
		e.decodeRelative(el, payload)
	default:
		e.log.WithFields(log.Fields{"type": el.Type, "id": el.Semantic}).Debug("unhandled element type")
	}
}

func (e *Engine) value(el mapping.Element, payload []byte) (string, bool) {
	if !e.tables.HasValues(el.Type) {
		return mapping.FormatID(payload), true
	}
	name, ok := e.tables.Value(el.Type, payload)
	if !ok {
		e.log.WithFields(log.Fields{"id": el.Semantic, "raw": mapping.FormatID(payload)}).Debug("unmapped surface value")
	}
	return name, ok
}

func (e *Engine) decodeSwitch(el mapping.Element, payload []byte) {
	name, ok := e.value(el, payload)
	if !ok {
		return
	}
	action := e.tables.Action(el.Semantic)
	if action == "" {
		e.log.WithField("id", el.Semantic).Debug("switch has no action")
		return
	}
	switch name {
	case valuePressed:
		e.hub.KeyPressed(action, 1)
	case valueReleased:
		e.hub.KeyPressed(action, 0)
	}
}

func (e *Engine) decodeFader(el mapping.Element, payload []byte) {
	id, ok := faderID(el.Semantic)
	if !ok {
		return
	}
	if len(payload) < 2 {
		e.log.WithFields(log.Fields{"fader": id, "raw": mapping.FormatID(payload)}).Warn("short fader message")
		return
	}
	value := Decode14(payload[0], payload[1])

	if !e.touched[id] {
		if t, sent := e.lastMotor[id]; sent && e.now().Sub(t) < MotorEchoWindow {
			e.log.WithField("fader", id).Debug("motor echo ignored")
			return
		}
		e.log.WithFields(log.Fields{"fader": id, "value": value}).Warn("untouched fader moved, ignored")
		return
	}
	e.hub.XTouchMovesFader(id, value)
}

func (e *Engine) decodeTouch(el mapping.Element, payload []byte) {
	id, ok := faderID(el.Semantic)
	if !ok {
		return
	}
	name, ok := e.value(el, payload)
	if !ok {
		return
	}
	switch name {
	case valuePressed:
		e.touched[id] = true
	case valueReleased:
		e.touched[id] = false
	}
}

func (e *Engine) decodeRelative(el mapping.Element, payload []byte) {
	if len(payload) < 1 {
		return
	}
	delta := float64(RelativeDelta(payload[0]))
	if delta == 0 {
		return
	}
	if el.Type == mapping.TypeJogWheel {
		delta *= e.jog.Multiplier(e.now())
	}

	suffix := "+"
	if delta < 0 {
		suffix = "-"
	}
	action := e.tables.Action(el.Semantic + suffix)
	if action == "" {
		e.log.WithField("id", el.Semantic+suffix).Debug("encoder has no action")
		return
	}
	taps := min(int(math.Round(math.Abs(delta))), maxTaps)
	for range taps {
		e.hub.KeyPressed(action, 1)
		e.hub.KeyPressed(action, 0)
	}
}

// HandleEvent drives the motors and mode LEDs from hub events.
func (e *Engine) HandleEvent(ev bus.Event) {
	switch ev := ev.(type) {
	case bus.FaderMoved:
		if ev.Origin == bus.OriginSurface {
			return
		}
		if ev.Fired {
			e.log.WithField("fader", ev.ID).Debug("fader fired, motor not driven")
			return
		}
		if e.touched[ev.ID] {
			e.log.WithField("fader", ev.ID).Debug("fader touched, motor not driven")
			return
		}
		e.MoveFader(ev.ID, ev.Value)
	case bus.GoLive:
		e.SetButtonLED(ButtonLive, bus.LEDOn)
		e.SetButtonLED(ButtonBlind, bus.LEDOff)
	case bus.GoBlind:
		e.SetButtonLED(ButtonLive, bus.LEDOff)
		e.SetButtonLED(ButtonBlind, bus.LEDOn)
	}
}

// Init resets the surface, asks for its firmware version and shows banner.
func (e *Engine) Init(banner string) error {
	if err := e.out.Reset(); err != nil {
		return err
	}
	if err := e.out.RequestVersion(); err != nil {
		return err
	}
	return e.out.Set7Segment(banner)
}

func (e *Engine) SetScribbleText(row, col int, text string) {
	if err := e.out.SetScribbleText(row, col, text); err != nil {
		e.log.WithError(err).Error("scribble text")
	}
}

func (e *Engine) SetScribbleColor(col int, color bus.Color) {
	if col < 0 || col >= Width {
		e.log.WithField("col", col).Debug("scribble color column out of range")
		return
	}
	e.colors[col] = color
	if err := e.out.SetScribbleColors(e.colors); err != nil {
		e.log.WithError(err).Error("scribble color")
	}
}

func (e *Engine) Set7Segment(text string) {
	if err := e.out.Set7Segment(text); err != nil {
		e.log.WithError(err).Error("7-segment display")
	}
}

func (e *Engine) SetButtonLED(id string, st bus.LEDState) {
	raw, err := e.tables.Reverse(mapping.TypeSwitch, id)
	if err != nil {
		e.log.WithField("id", id).Warn("no button for LED")
		return
	}
	code, ok := e.tables.OutValue(mapping.TypeSwitch, string(st))
	if !ok {
		c, known := ledCodes[st]
		if !known {
			e.log.WithField("state", st).Warn("unknown LED state")
			return
		}
		code = []byte{c}
	}
	if err := e.out.SetButtonLED(raw, code); err != nil {
		e.log.WithError(err).Error("button LED")
	}
}

// MoveFader sends a motor target and opens the echo window for that fader.
func (e *Engine) MoveFader(id int, value float64) {
	if id < 1 || id > Width {
		return
	}
	raw, err := e.tables.Reverse(mapping.TypeFader, strconv.Itoa(id))
	if err != nil {
		e.log.WithField("fader", id).Warn("no motor fader mapped")
		return
	}
	if err := e.out.SetFader(raw, value); err != nil {
		e.log.WithError(err).Error("motor fader")
		return
	}
	e.lastMotor[id] = e.now()
}

func (e *Engine) Touched(id int) bool {
	return e.touched[id]
}

func faderID(semantic string) (int, bool) {
	id, err := strconv.Atoi(semantic)
	if err != nil || id < 1 || id > Width {
		return 0, false
	}
	return id, true
}
