package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"xeos/lib/config"
	"xeos/lib/eos"
	"xeos/lib/mapping"
	"xeos/lib/state"
	"xeos/lib/xtouch"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lvl, _ := cfg.Level()
	log.SetLevel(lvl)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	defer midi.CloseDriver()

	tables, err := mapping.Load(cfg.MappingFile, cfg.ActionsFile)
	if err != nil {
		return err
	}

	inPort, err := xtouch.FindInPort(cfg.MIDIPort)
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midi.GetInPorts() {
			fmt.Printf("  %s\n", p)
		}
		return err
	}
	outPort, err := xtouch.FindOutPort(cfg.MIDIPort)
	if err != nil {
		return err
	}
	out, err := xtouch.NewOutput(outPort, xtouch.DeviceIDXTouch)
	if err != nil {
		return err
	}

	conn, err := eos.Dial(cfg.EOSHost, cfg.EOSPort, cfg.ListenHost, cfg.ListenPort, cfg.ListenRetries, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queue := state.NewQueue(cfg.QueueSize, nil)
	b := newBridge(cfg, tables, out, conn, queue, nil)
	go queue.Run(ctx)
	queue.Post(func() { b.start(cfg.Banner) })

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		b.surface.HandleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("listen on %s: %w", inPort, err)
	}
	defer stop()

	go func() {
		if err := conn.Serve(b.console.HandleMessage); err != nil {
			log.WithError(err).Error("console link")
			cancel()
		}
	}()

	log.WithFields(log.Fields{
		"surface": inPort.String(),
		"console": fmt.Sprintf("%s:%d", cfg.EOSHost, cfg.EOSPort),
		"listen":  conn.LocalPort(),
	}).Info("bridge running")

	<-ctx.Done()
	conn.Close()
	<-queue.Done()
	fmt.Println()
	return nil
}
