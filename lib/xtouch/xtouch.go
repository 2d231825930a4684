package xtouch

import (
	"fmt"
	"math"
	"regexp"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"xeos/lib/state"
)

// DeviceIDXTouch is the MCU device byte in the surface's SysEx header.
const DeviceIDXTouch = 0x14

// Width is the number of physical channel strips.
const Width = state.SurfaceWidth

const faderScale = 16383.0

// Encode14 converts a fader position to the low/high 7-bit pair of a
// pitch-bend message.
func Encode14(value float64) (lo, hi uint8) {
	n := int(math.Round(state.Clamp(value) * faderScale))
	return uint8(n & 0x7F), uint8((n >> 7) & 0x7F)
}

func Decode14(lo, hi uint8) float64 {
	n := int(hi&0x7F)<<7 | int(lo&0x7F)
	return state.Clamp(float64(n) / faderScale)
}

// RelativeDelta decodes an MCU relative encoder value: bit 6 is the
// direction (set = counter-clockwise), bits 0-5 the tick count.
func RelativeDelta(v uint8) int {
	n := int(v & 0x3F)
	if v&0x40 != 0 {
		return -n
	}
	return n
}

func portPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("bad MIDI port pattern %q: %w", pattern, err)
	}
	return re, nil
}

func FindInPort(pattern string) (drivers.In, error) {
	re, err := portPattern(pattern)
	if err != nil {
		return nil, err
	}
	for _, port := range midi.GetInPorts() {
		if re.MatchString(port.String()) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", pattern)
}

func FindOutPort(pattern string) (drivers.Out, error) {
	re, err := portPattern(pattern)
	if err != nil {
		return nil, err
	}
	for _, port := range midi.GetOutPorts() {
		if re.MatchString(port.String()) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI output port matching %q", pattern)
}
