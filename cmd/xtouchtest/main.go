package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"xeos/lib/bus"
	"xeos/lib/mapping"
	"xeos/lib/state"
	"xeos/lib/xtouch"
)

var colors = []bus.Color{
	bus.ColorRed,
	bus.ColorGreen,
	bus.ColorYellow,
	bus.ColorBlue,
	bus.ColorMagenta,
	bus.ColorCyan,
	bus.ColorWhite,
}

// echoHub prints what the surface reports and mirrors each touched fader
// onto its neighbour's motor.
type echoHub struct {
	engine *xtouch.Engine
}

func (h *echoHub) KeyPressed(name string, value int) {
	fmt.Printf("key %s=%d\n", name, value)
}

func (h *echoHub) XTouchMovesFader(id int, value float64) {
	fmt.Printf("fader %d=%.3f\n", id, value)
	h.engine.SetScribbleText(1, id-1, fmt.Sprintf("%.3f", value))
	pair := (id-1)^1 + 1
	h.engine.MoveFader(pair, value)
}

func main() {
	port := flag.String("port", "x-touch", "MIDI port pattern")
	table := flag.String("mapping", "config/xtouch_mapping.json", "surface mapping table")
	actions := flag.String("actions", "config/eos_actions.json", "action map")
	flag.Parse()

	defer midi.CloseDriver()
	log.SetLevel(log.DebugLevel)

	tables, err := mapping.Load(*table, *actions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	inPort, err := xtouch.FindInPort(*port)
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midi.GetInPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}

	outPort, err := xtouch.FindOutPort(*port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := xtouch.NewOutput(outPort, xtouch.DeviceIDXTouch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queue := state.NewQueue(64, nil)
	hub := &echoHub{}
	engine := xtouch.NewEngine(tables, out, hub, queue, nil)
	hub.engine = engine
	go queue.Run(ctx)

	queue.Post(func() {
		if err := engine.Init("SELFTEST"); err != nil {
			log.WithError(err).Error("surface init")
		}
		for i := 0; i < xtouch.Width; i++ {
			engine.SetScribbleText(0, i, fmt.Sprintf("Fader %d", i+1))
			engine.SetScribbleColor(i, colors[i%len(colors)])
			engine.MoveFader(i+1, 0)
		}
		engine.SetButtonLED(state.PageButton(1), bus.LEDOn)
	})

	fmt.Printf("Listening on: %s\n", inPort)

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		engine.HandleMessage(msg)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	<-ctx.Done()
	<-queue.Done()
	fmt.Println()
}
