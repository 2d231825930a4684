package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"xeos/lib/config"
	"xeos/lib/eos"
	"xeos/lib/mapping"
	"xeos/lib/state"
	"xeos/lib/xtouch"
)

type surfaceRecorder struct {
	mu   sync.Mutex
	msgs []midi.Message
}

func (r *surfaceRecorder) send(msg midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *surfaceRecorder) all() []midi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]midi.Message(nil), r.msgs...)
}

func (r *surfaceRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type fixture struct {
	bridge  *bridge
	surface *surfaceRecorder
	console *eos.MockConsole
	conn    *eos.Conn
	hook    *logtest.Hook
}

func setupBridge(t *testing.T, exec state.Executor) *fixture {
	t.Helper()
	cfg := config.Load()
	cfg.User = 1
	cfg.FaderBank = 1
	cfg.BankWidth = 10

	tables, err := mapping.Load("config/xtouch_mapping.json", "config/eos_actions.json")
	require.NoError(t, err)

	mock, err := eos.NewMockConsole()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	conn, err := eos.Dial("127.0.0.1", mock.Port(), "127.0.0.1", 0, 1, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	rec := &surfaceRecorder{}
	out := xtouch.NewOutputFunc(rec.send, xtouch.DeviceIDXTouch)
	b := newBridge(cfg, tables, out, conn, exec, logger)
	return &fixture{bridge: b, surface: rec, console: mock, conn: conn, hook: hook}
}

func (f *fixture) expectConsole(t *testing.T, addr string) *osc.Message {
	t.Helper()
	msg, err := f.console.Next(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, addr, msg.Address)
	return msg
}

func TestStartInitializesBothDevices(t *testing.T) {
	f := setupBridge(t, state.Inline{})

	f.bridge.start("X-EOS")

	f.expectConsole(t, "/eos/user/1/fader/1/config/10")
	msgs := f.surface.all()
	require.NotEmpty(t, msgs)
	assert.Equal(t, midi.Message{0xF0, 0x00, 0x00, 0x66, 0x14, 0x63, 0x00, 0xF7}, msgs[0])
}

func TestSurfaceFaderReachesConsole(t *testing.T) {
	f := setupBridge(t, state.Inline{})

	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x6A, 0x7F})
	f.bridge.surface.HandleMessage(midi.Message{0xE2, 0x00, 0x40})

	f.expectConsole(t, "/eos/user/1/fader/1/config/10")
	msg := f.expectConsole(t, "/eos/user/1/fader/1/3")
	require.Len(t, msg.Arguments, 1)
	assert.InDelta(t, 0.5, msg.Arguments[0], 0.001)

	cached, _ := f.bridge.console.Bank().Fader(3)
	assert.InDelta(t, 0.5, cached.Value, 0.001)
	hubFader, ok := f.bridge.hub.Fader(3)
	require.True(t, ok)
	assert.InDelta(t, 0.5, hubFader.Value, 0.001)

	// Never driven back to the surface it came from.
	assert.Empty(t, f.surface.all())
}

func TestConsoleEchoNotForwarded(t *testing.T) {
	f := setupBridge(t, state.Inline{})
	f.bridge.start("X-EOS")
	f.expectConsole(t, "/eos/user/1/fader/1/config/10")
	f.surface.reset()

	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x6A, 0x7F})
	f.bridge.surface.HandleMessage(midi.Message{0xE2, 0x00, 0x40})
	f.expectConsole(t, "/eos/user/1/fader/1/3")

	f.bridge.console.HandleMessage(osc.NewMessage("/eos/fader/1/3", float32(0.5)))

	assert.Empty(t, f.surface.all())
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.console.Received(), 2)
}

func TestConsoleFaderDrivesMotorOnce(t *testing.T) {
	f := setupBridge(t, state.Inline{})
	f.bridge.start("X-EOS")
	f.expectConsole(t, "/eos/user/1/fader/1/config/10")
	f.surface.reset()

	f.bridge.console.HandleMessage(osc.NewMessage("/eos/fader/1/4", float32(1)))
	assert.Equal(t, []midi.Message{{0xE3, 0x7F, 0x7F}}, f.surface.all())

	// The motor reports its own travel; untouched, it goes nowhere.
	f.bridge.surface.HandleMessage(midi.Message{0xE3, 0x7F, 0x7F})

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.console.Received(), 1)
	assert.Len(t, f.surface.all(), 1)
}

func TestConsoleNameOverUDP(t *testing.T) {
	queue := state.NewQueue(64, nil)
	f := setupBridge(t, queue)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go queue.Run(ctx)
	go f.conn.Serve(f.bridge.console.HandleMessage)

	require.NoError(t, f.console.Report(f.conn.LocalPort(), "/eos/out/fader/1/3/name", "CL 3 Color Palette"))

	want := []midi.Message{
		{0xF0, 0x00, 0x00, 0x66, 0x14, 0x12, 0x0E, 'C', 'L', ' ', '3', ' ', ' ', ' ', ' ', 0xF7},
		{0xF0, 0x00, 0x00, 0x66, 0x14, 0x12, 0x33, 'C', 'o', 'l', 'o', 'r', ' ', 'P', ' ', 0xF7},
		{0xF0, 0x00, 0x00, 0x66, 0x14, 0x72, 0, 0, 2, 0, 0, 0, 0, 0, 0xF7},
	}
	assert.Eventually(t, func() bool { return len(f.surface.all()) == len(want) }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, f.surface.all())

	cancel()
	<-queue.Done()
}

func TestProgrammerModeFromConsole(t *testing.T) {
	f := setupBridge(t, state.Inline{})

	f.bridge.console.HandleMessage(osc.NewMessage("/eos/out/cmd", "BLIND: Cue 1"))
	f.bridge.console.HandleMessage(osc.NewMessage("/eos/out/cmd", "BLIND: Cue 2"))

	assert.Equal(t, state.ProgrammerBlind, f.bridge.hub.Programmer())
	assert.Equal(t, []midi.Message{
		{0x90, 0x34, 0x00},
		{0x90, 0x35, 0x7F},
	}, f.surface.all())
}

func TestPageButtonRoundTrip(t *testing.T) {
	f := setupBridge(t, state.Inline{})
	f.bridge.start("X-EOS")
	f.expectConsole(t, "/eos/user/1/fader/1/config/10")
	f.surface.reset()

	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x38, 0x7F}) // fader_page_3
	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x38, 0x00})
	f.expectConsole(t, "/eos/user/1/fader/1/config/3/10")

	f.bridge.console.HandleMessage(osc.NewMessage("/eos/out/fader/1", int32(3)))

	assert.Equal(t, 3, f.bridge.hub.Page())
	msgs := f.surface.all()
	require.Len(t, msgs, state.PageCount)
	assert.Equal(t, midi.Message{0x90, 0x38, 0x7F}, msgs[2])
	assert.Equal(t, midi.Message{0x90, 0x36, 0x00}, msgs[0])
}

func TestKeyFromSurface(t *testing.T) {
	f := setupBridge(t, state.Inline{})

	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x5E, 0x7F}) // play
	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x5E, 0x00})

	down := f.expectConsole(t, "/eos/user/1/key/go_0")
	up := f.expectConsole(t, "/eos/user/1/key/go_0")
	assert.Equal(t, []any{float32(1)}, down.Arguments)
	assert.Equal(t, []any{float32(0)}, up.Arguments)
	v, _ := f.bridge.hub.Key("go_0")
	assert.Equal(t, 0, v)
}

func TestPageButtonsGoThroughHub(t *testing.T) {
	f := setupBridge(t, state.Inline{})
	f.bridge.start("X-EOS")
	f.expectConsole(t, "/eos/user/1/fader/1/config/10")

	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x3A, 0x7F}) // fader_page_5
	f.expectConsole(t, "/eos/user/1/fader/1/config/5/10")
	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x2F, 0x7F}) // fader_bank_right
	f.expectConsole(t, "/eos/user/1/fader/1/config/6/10")

	// Without a console handle on the hub, page presses go nowhere.
	f.bridge.hub.Attach(f.bridge.surface, nil)
	f.bridge.surface.HandleMessage(midi.Message{0x90, 0x37, 0x7F}) // fader_page_2

	assert.Equal(t, log.WarnLevel, f.hook.LastEntry().Level)
	assert.Equal(t, "no console attached", f.hook.LastEntry().Message)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.console.Received(), 3)
}
