package xtouch

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"xeos/lib/bus"
)

// MCU SysEx commands, sent as F0 00 00 66 <device> <cmd> ... F7.
const (
	sysexScribbleText  = 0x12
	sysexVersionQuery  = 0x13
	sysexReset         = 0x63
	sysexScribbleColor = 0x72
)

const (
	scribbleWidth     = 7
	scribbleCell      = 8
	scribbleRowStride = 37
	segmentDigits     = 13
	segmentMaxText    = 12
	ccSegmentFirst    = 0x40
)

type Output struct {
	send     func(msg midi.Message) error
	DeviceID uint8
}

func NewOutput(port drivers.Out, deviceID uint8) (*Output, error) {
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output port: %w", err)
	}
	return &Output{send: send, DeviceID: deviceID}, nil
}

// NewOutputFunc wraps an arbitrary send function, e.g. a recorder in tests.
func NewOutputFunc(send func(msg midi.Message) error, deviceID uint8) *Output {
	return &Output{send: send, DeviceID: deviceID}
}

func (o *Output) sysex(cmd byte, payload ...byte) error {
	data := []byte{0x00, 0x00, 0x66, o.DeviceID, cmd}
	data = append(data, payload...)
	return o.send(midi.SysEx(data))
}

func (o *Output) Reset() error {
	return o.sysex(sysexReset, 0x00)
}

func (o *Output) RequestVersion() error {
	return o.sysex(sysexVersionQuery, 0x00)
}

// SetScribbleText writes one cell of the scribble strips: at most 7
// characters, blank padded to 8, at offset row*37 + col*7.
func (o *Output) SetScribbleText(row, col int, text string) error {
	if row < 0 || row > 1 || col < 0 || col >= Width {
		return fmt.Errorf("scribble cell %d/%d out of range", row, col)
	}
	offset := byte(row*scribbleRowStride + col*scribbleWidth)
	text = truncate(ascii(text), scribbleWidth)
	payload := append([]byte{offset}, padOrTruncate(text, scribbleCell)...)
	return o.sysex(sysexScribbleText, payload...)
}

// SetScribbleColors sends the color of every strip at once; the device has
// no per-strip color command.
func (o *Output) SetScribbleColors(colors [Width]bus.Color) error {
	payload := make([]byte, Width)
	for i, c := range colors {
		payload[i] = byte(c) & 0x07
	}
	return o.sysex(sysexScribbleColor, payload...)
}

// Set7Segment right-justifies text on the timecode/assignment display, one
// control change per digit, rightmost digit first.
func (o *Output) Set7Segment(text string) error {
	text = truncate(ascii(strings.ToUpper(text)), segmentMaxText)
	text = fmt.Sprintf("%*s", segmentDigits, text)
	for i := 0; i < segmentDigits; i++ {
		c := text[segmentDigits-1-i]
		if err := o.send(midi.ControlChange(0, ccSegmentFirst+uint8(i), segmentCode(c))); err != nil {
			return err
		}
	}
	return nil
}

// SetFader drives a motor fader. raw is the status byte of the fader's
// pitch-bend channel.
func (o *Output) SetFader(raw []byte, value float64) error {
	lo, hi := Encode14(value)
	msg := make(midi.Message, 0, len(raw)+2)
	msg = append(msg, raw...)
	msg = append(msg, lo, hi)
	return o.send(msg)
}

func (o *Output) SetButtonLED(raw []byte, code []byte) error {
	msg := make(midi.Message, 0, len(raw)+len(code))
	msg = append(msg, raw...)
	msg = append(msg, code...)
	return o.send(msg)
}

func segmentCode(c byte) uint8 {
	switch {
	case c >= 0x40 && c <= 0x5A:
		return c - 0x40
	case c >= 0x20 && c <= 0x3F:
		return c
	}
	return ' '
}

// ascii replaces every non-printable or non-ASCII rune with a single '?', so
// byte length equals character count.
func ascii(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			r = '?'
		}
		b = append(b, byte(r))
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func padOrTruncate(s string, n int) string {
	s = truncate(s, n)
	for len(s) < n {
		s += " "
	}
	return s
}
