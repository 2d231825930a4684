package main

import (
	log "github.com/sirupsen/logrus"

	"xeos/lib/bus"
	"xeos/lib/config"
	"xeos/lib/eos"
	"xeos/lib/mapping"
	"xeos/lib/state"
	"xeos/lib/xtouch"
)

type bridge struct {
	bus     *bus.Bus
	hub     *state.Hub
	surface *xtouch.Engine
	console *eos.Engine
	log     *log.Logger
}

func newBridge(cfg *config.Config, tables *mapping.Tables, out *xtouch.Output, send eos.Sender, exec state.Executor, logger *log.Logger) *bridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	b := bus.New()
	hub := state.NewHub(b, logger)
	surface := xtouch.NewEngine(tables, out, hub, exec, logger)
	console := eos.NewEngine(send, hub, exec, cfg.User, eos.NewFaderBank(cfg.FaderBank, cfg.BankWidth), logger)

	b.Register(surface)
	b.Register(console)
	hub.Attach(surface, console)

	return &bridge{bus: b, hub: hub, surface: surface, console: console, log: logger}
}

// start runs the session init on both devices. It must run on the executor.
func (b *bridge) start(banner string) {
	if err := b.surface.Init(banner); err != nil {
		b.log.WithError(err).Error("surface init")
	}
	b.console.InitBank()
}
