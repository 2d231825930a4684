package eos

import (
	"fmt"

	"xeos/lib/state"
)

const (
	DefaultBank  = 1
	DefaultWidth = 10
)

// FaderBank is the console-side view of one OSC fader bank: its paging and
// the last value sent or received for each fader.
type FaderBank struct {
	ID    int
	Width int

	page        int
	initialized bool
	faders      []state.Fader
}

func NewFaderBank(id, width int) *FaderBank {
	b := &FaderBank{
		ID:     id,
		Width:  width,
		page:   1,
		faders: make([]state.Fader, width),
	}
	for i := range b.faders {
		b.faders[i].ID = i + 1
	}
	return b
}

func (b *FaderBank) Page() int { return b.page }

func (b *FaderBank) Initialized() bool { return b.initialized }

// Fader returns the cached fader with the given 1-based id.
func (b *FaderBank) Fader(id int) (*state.Fader, bool) {
	if id < 1 || id > len(b.faders) {
		return nil, false
	}
	return &b.faders[id-1], true
}

func (b *FaderBank) path(format string, args ...any) string {
	return fmt.Sprintf("fader/%d/", b.ID) + fmt.Sprintf(format, args...)
}

func (b *FaderBank) configPath() string {
	return b.path("config/%d", b.Width)
}

func (b *FaderBank) pagePath(page int) string {
	return b.path("config/%d/%d", page, b.Width)
}

func (b *FaderBank) faderPath(id int, sub string) string {
	if sub == "" {
		return b.path("%d", id)
	}
	return b.path("%d/%s", id, sub)
}
