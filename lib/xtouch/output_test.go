package xtouch

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

func TestFaderCodecRoundTrip(t *testing.T) {
	for i := 0; i <= 10000; i++ {
		v := float64(i) / 10000
		lo, hi := Encode14(v)
		require.LessOrEqual(t, lo, uint8(0x7F))
		require.LessOrEqual(t, hi, uint8(0x7F))
		got := Decode14(lo, hi)
		if math.Abs(got-v) > 1/16380.0 {
			t.Fatalf("round trip %v -> %v", v, got)
		}
	}
}

func TestFaderCodecBounds(t *testing.T) {
	lo, hi := Encode14(0)
	assert.Equal(t, [2]uint8{0, 0}, [2]uint8{lo, hi})
	lo, hi = Encode14(2)
	assert.Equal(t, [2]uint8{0x7F, 0x7F}, [2]uint8{lo, hi})
	assert.Equal(t, 1.0, Decode14(0x7F, 0x7F))
	assert.InDelta(t, 0.5, Decode14(0x00, 0x40), 0.001)
}

func TestRelativeDelta(t *testing.T) {
	assert.Equal(t, 1, RelativeDelta(0x01))
	assert.Equal(t, 5, RelativeDelta(0x05))
	assert.Equal(t, -1, RelativeDelta(0x41))
	assert.Equal(t, -3, RelativeDelta(0x43))
	assert.Equal(t, 0, RelativeDelta(0x00))
}

func TestSetScribbleText(t *testing.T) {
	rec := &recorder{}
	out := NewOutputFunc(rec.send, DeviceIDXTouch)

	require.NoError(t, out.SetScribbleText(1, 2, "Color Palette"))
	require.NoError(t, out.SetScribbleText(0, 0, "L7"))

	// row*37 + col*7, seven characters blank padded to eight.
	assert.Equal(t, midi.Message{0xF0, 0x00, 0x00, 0x66, 0x14, 0x12, 0x33, 'C', 'o', 'l', 'o', 'r', ' ', 'P', ' ', 0xF7}, rec.msgs[0])
	assert.Equal(t, midi.Message{0xF0, 0x00, 0x00, 0x66, 0x14, 0x12, 0x00, 'L', '7', ' ', ' ', ' ', ' ', ' ', ' ', 0xF7}, rec.msgs[1])

	assert.Error(t, out.SetScribbleText(2, 0, "x"))
	assert.Error(t, out.SetScribbleText(0, 8, "x"))
}

func TestScribbleTextNonASCII(t *testing.T) {
	rec := &recorder{}
	out := NewOutputFunc(rec.send, DeviceIDXTouch)

	require.NoError(t, out.SetScribbleText(0, 1, "Zé"))

	assert.Equal(t, midi.Message{0xF0, 0x00, 0x00, 0x66, 0x14, 0x12, 0x07, 'Z', '?', ' ', ' ', ' ', ' ', ' ', ' ', 0xF7}, rec.msgs[0])
}

func TestSet7SegmentNonASCII(t *testing.T) {
	rec := &recorder{}
	out := NewOutputFunc(rec.send, DeviceIDXTouch)

	require.NoError(t, out.Set7Segment("ÉAB 12"))

	require.Len(t, rec.msgs, segmentDigits)
	want := []uint8{'2', '1', ' ', 0x02, 0x01, '?', ' '}
	for i, code := range want {
		assert.Equal(t, midi.ControlChange(0, 0x40+uint8(i), code), rec.msgs[i])
	}
}

func TestSet7Segment(t *testing.T) {
	rec := &recorder{}
	out := NewOutputFunc(rec.send, DeviceIDXTouch)

	require.NoError(t, out.Set7Segment("x-eos"))

	require.Len(t, rec.msgs, segmentDigits)
	want := []uint8{0x13, 0x0F, 0x05, '-', 0x18}
	for i, code := range want {
		assert.Equal(t, midi.ControlChange(0, 0x40+uint8(i), code), rec.msgs[i])
	}
	for i := len(want); i < segmentDigits; i++ {
		assert.Equal(t, midi.ControlChange(0, 0x40+uint8(i), ' '), rec.msgs[i])
	}
}

func TestSet7SegmentTruncates(t *testing.T) {
	rec := &recorder{}
	out := NewOutputFunc(rec.send, DeviceIDXTouch)

	require.NoError(t, out.Set7Segment("1234567890ABCDEF"))

	// "1234567890AB" right-justified: the leftmost digit stays blank.
	assert.Equal(t, midi.ControlChange(0, 0x40, 0x02), rec.msgs[0])
	assert.Equal(t, midi.ControlChange(0, 0x40+11, '1'), rec.msgs[11])
	assert.Equal(t, midi.ControlChange(0, 0x40+12, ' '), rec.msgs[12])
}

func TestSegmentCode(t *testing.T) {
	assert.Equal(t, uint8(0x01), segmentCode('A'))
	assert.Equal(t, uint8(0x1A), segmentCode('Z'))
	assert.Equal(t, uint8('7'), segmentCode('7'))
	assert.Equal(t, uint8(' '), segmentCode('~'))
}

func TestSendErrorStopsSegments(t *testing.T) {
	calls := 0
	out := NewOutputFunc(func(midi.Message) error {
		calls++
		return errors.New("port closed")
	}, DeviceIDXTouch)

	assert.Error(t, out.Set7Segment("12"))
	assert.Equal(t, 1, calls)
}

func TestJogMultiplier(t *testing.T) {
	j := &JogWheel{}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, j.Multiplier(t0))
	assert.Equal(t, 1.0, j.Multiplier(t0.Add(200*time.Millisecond)))
	assert.InDelta(t, 1.9, j.Multiplier(t0.Add(210*time.Millisecond)), 0.001)
	assert.InDelta(t, 10.9, j.Multiplier(t0.Add(211*time.Millisecond)), 0.001)
	assert.Equal(t, maxJogMultiplier, j.Multiplier(t0.Add(211*time.Millisecond+100*time.Microsecond)))
	assert.Equal(t, maxJogMultiplier, j.Multiplier(t0.Add(211*time.Millisecond+100*time.Microsecond)))
}
