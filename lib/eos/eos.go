// Package eos speaks OSC to an ETC Eos console: it turns console reports into
// hub calls and hub events into console commands.
package eos

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"

	"xeos/lib/bus"
	"xeos/lib/state"
)

// Epsilon is the smallest console fader change passed on to the hub. Console
// and surface quantize differently, so smaller reports are echoes.
const Epsilon = 1.0 / 255

const (
	prefixLive  = "LIVE: "
	prefixBlind = "BLIND: "
)

// Actions the engine handles itself instead of forwarding as console keys.
const (
	ActionPageNext = "fader_page_next"
	ActionPagePrev = "fader_page_prev"
	ActionPage     = "fader_page_"
	ActionFire     = "fader_fire_"
	ActionStop     = "fader_stop_"
	ActionLoad     = "fader_load_"
)

var (
	cmdRe        = regexp.MustCompile(`^/eos/out(?:/user/\d+)?/cmd$`)
	faderValueRe = regexp.MustCompile(`^/eos(?:/out)?/fader/(\d+)/(\d+)$`)
	faderNameRe  = regexp.MustCompile(`^/eos/out/fader/(\d+)/(\d+)/name$`)
	bankRe       = regexp.MustCompile(`^/eos/out/fader/(\d+)$`)
	cueTextRe    = regexp.MustCompile(`^/eos/out/active/cue/text$`)
)

// Sender is satisfied by *osc.Client and *Conn.
type Sender interface {
	Send(packet osc.Packet) error
}

// Hub is the part of the state hub the console engine reports to.
type Hub interface {
	GoLive()
	GoBlind()
	EOSMovesFader(f state.Fader)
	NamingFader(id int, name string)
	FaderPageChanged(page int)
	CuePlaying(cueID, text, t string)
	SetFaderPage(page int)
}

type Engine struct {
	send Sender
	hub  Hub
	exec state.Executor
	log  *log.Logger
	user int
	bank *FaderBank
}

func NewEngine(send Sender, hub Hub, exec state.Executor, user int, bank *FaderBank, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if bank == nil {
		bank = NewFaderBank(DefaultBank, DefaultWidth)
	}
	return &Engine{
		send: send,
		hub:  hub,
		exec: exec,
		log:  logger,
		user: user,
		bank: bank,
	}
}

func (e *Engine) Bank() *FaderBank { return e.bank }

// HandleMessage is the console input callback. It may be called from any
// goroutine; decoding happens on the executor.
func (e *Engine) HandleMessage(msg *osc.Message) {
	if msg == nil {
		return
	}
	e.exec.Post(func() { e.decode(msg) })
}

func (e *Engine) decode(msg *osc.Message) {
	addr := msg.Address
	switch {
	case cmdRe.MatchString(addr):
		e.decodeCmd(msg)
	case faderValueRe.MatchString(addr):
		m := faderValueRe.FindStringSubmatch(addr)
		e.decodeFaderValue(msg, m[1], m[2])
	case faderNameRe.MatchString(addr):
		m := faderNameRe.FindStringSubmatch(addr)
		e.decodeFaderName(msg, m[1], m[2])
	case bankRe.MatchString(addr):
		m := bankRe.FindStringSubmatch(addr)
		e.decodeBank(msg, m[1])
	case cueTextRe.MatchString(addr):
		e.decodeCueText(msg)
	default:
		e.log.WithField("addr", addr).Debug("unhandled console message")
	}
}

func (e *Engine) decodeCmd(msg *osc.Message) {
	text, ok := stringArg(msg)
	if !ok {
		e.malformed(msg)
		return
	}
	switch {
	case strings.HasPrefix(text, prefixLive):
		e.hub.GoLive()
	case strings.HasPrefix(text, prefixBlind):
		e.hub.GoBlind()
	}
}

func (e *Engine) ownFader(msg *osc.Message, bankID, faderID string) (*state.Fader, bool) {
	bank, _ := strconv.Atoi(bankID)
	if bank != e.bank.ID {
		e.log.WithFields(log.Fields{"addr": msg.Address, "bank": bank}).Debug("message for another fader bank")
		return nil, false
	}
	id, _ := strconv.Atoi(faderID)
	f, ok := e.bank.Fader(id)
	if !ok {
		e.log.WithFields(log.Fields{"addr": msg.Address, "fader": id}).Debug("fader outside bank")
	}
	return f, ok
}

func (e *Engine) decodeFaderValue(msg *osc.Message, bankID, faderID string) {
	v, ok := floatArg(msg)
	if !ok {
		e.malformed(msg)
		return
	}
	f, ok := e.ownFader(msg, bankID, faderID)
	if !ok {
		return
	}
	v = state.Clamp(v)
	if math.Abs(v-f.Value) <= Epsilon {
		return
	}
	f.Value = v
	e.hub.EOSMovesFader(*f)
}

func (e *Engine) decodeFaderName(msg *osc.Message, bankID, faderID string) {
	name, ok := stringArg(msg)
	if !ok {
		e.malformed(msg)
		return
	}
	f, ok := e.ownFader(msg, bankID, faderID)
	if !ok {
		return
	}
	f.Name = name
	e.hub.NamingFader(f.ID, name)
}

func (e *Engine) decodeBank(msg *osc.Message, bankID string) {
	page, ok := intArg(msg)
	if !ok {
		e.malformed(msg)
		return
	}
	if id, _ := strconv.Atoi(bankID); id != e.bank.ID {
		e.log.WithField("bank", id).Debug("descriptor for another fader bank")
		return
	}
	e.bank.page = page
	e.hub.FaderPageChanged(page)
}

// decodeCueText splits "<cue> <text...> <remaining> <unit>". An empty report
// means nothing is running and clears the display.
func (e *Engine) decodeCueText(msg *osc.Message) {
	text, ok := stringArg(msg)
	if !ok {
		e.malformed(msg)
		return
	}
	fields := strings.Fields(text)
	switch {
	case len(fields) == 0:
		e.hub.CuePlaying("", "", "")
	case len(fields) < 3:
		e.malformed(msg)
	default:
		n := len(fields)
		e.hub.CuePlaying(fields[0], strings.Join(fields[1:n-2], " "), fields[n-2])
	}
}

func (e *Engine) malformed(msg *osc.Message) {
	e.log.WithFields(log.Fields{"addr": msg.Address, "args": msg.Arguments}).Warn("malformed console message")
}

// HandleEvent turns key presses into console commands and forwards fader
// moves that did not come from the console.
func (e *Engine) HandleEvent(ev bus.Event) {
	switch ev := ev.(type) {
	case bus.KeyPress:
		if e.faderAction(ev.Name, ev.Value) {
			return
		}
		if ev.Value != 0 {
			e.PressKey(ev.Name, true)
		} else {
			e.ReleaseKey(ev.Name)
		}
	case bus.FaderMoved:
		if ev.Origin == bus.OriginConsole {
			return
		}
		e.SetFader(ev.ID, ev.Value)
	}
}

// faderAction runs the reserved fader actions on press and reports whether
// name was one of them.
func (e *Engine) faderAction(name string, value int) bool {
	switch name {
	case ActionPageNext:
		if value != 0 {
			e.PageNext()
		}
		return true
	case ActionPagePrev:
		if value != 0 {
			e.PagePrev()
		}
		return true
	}

	for _, prefix := range []string{ActionPage, ActionFire, ActionStop, ActionLoad} {
		rest, found := strings.CutPrefix(name, prefix)
		if !found {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			e.log.WithField("action", name).Warn("bad fader action")
			return true
		}
		if value == 0 {
			return true
		}
		switch prefix {
		case ActionPage:
			e.hub.SetFaderPage(n)
		case ActionFire:
			e.FireFader(n)
		case ActionStop:
			e.StopFader(n)
		case ActionLoad:
			e.LoadFader(n)
		}
		return true
	}
	return false
}

func (e *Engine) address(path string) string {
	return fmt.Sprintf("/eos/user/%d/%s", e.user, path)
}

func (e *Engine) sendPath(path string, args ...any) {
	msg := osc.NewMessage(e.address(path), args...)
	if err := e.send.Send(msg); err != nil {
		e.log.WithError(err).WithField("addr", msg.Address).Error("send to console")
	}
}

// PressKey sends a key down, followed by a key up unless hold is set.
func (e *Engine) PressKey(name string, hold bool) {
	e.sendPath("key/"+name, float32(1))
	if !hold {
		e.ReleaseKey(name)
	}
}

func (e *Engine) ReleaseKey(name string) {
	e.sendPath("key/"+name, float32(0))
}

// InitBank creates the fader bank on the console. Only the first call sends.
func (e *Engine) InitBank() {
	if e.bank.initialized {
		return
	}
	e.sendPath(e.bank.configPath())
	e.bank.initialized = true
}

// SetFaderPage is the console paging command the hub issues; page buttons
// reach it through the hub.
func (e *Engine) SetFaderPage(page int) {
	if page < 1 || page > state.PageCount {
		e.log.WithField("page", page).Warn("fader page out of range")
		return
	}
	e.InitBank()
	e.bank.page = page
	e.sendPath(e.bank.pagePath(page))
}

func (e *Engine) PageNext() {
	e.hub.SetFaderPage(min(e.bank.page+1, state.PageCount))
}

func (e *Engine) PagePrev() {
	e.hub.SetFaderPage(max(e.bank.page-1, 1))
}

// SetFader sends a fader level, skipping values equal to the cached one.
func (e *Engine) SetFader(id int, value float64) {
	f, ok := e.bank.Fader(id)
	if !ok {
		e.log.WithField("fader", id).Debug("fader outside bank")
		return
	}
	value = state.Clamp(value)
	if f.Value == value {
		return
	}
	e.InitBank()
	f.Value = value
	e.sendPath(e.bank.faderPath(id, ""), float32(value))
}

func (e *Engine) FireFader(id int) {
	if f, ok := e.faderButton(id, "fire"); ok {
		f.Fired = true
	}
}

func (e *Engine) StopFader(id int) {
	if f, ok := e.faderButton(id, "stop"); ok {
		f.Fired = false
	}
}

func (e *Engine) LoadFader(id int) {
	e.faderButton(id, "load")
}

func (e *Engine) faderButton(id int, button string) (*state.Fader, bool) {
	f, ok := e.bank.Fader(id)
	if !ok {
		e.log.WithFields(log.Fields{"fader": id, "button": button}).Debug("fader outside bank")
		return nil, false
	}
	e.InitBank()
	path := e.bank.faderPath(id, button)
	e.sendPath(path, float32(1))
	e.sendPath(path, float32(0))
	return f, true
}

func stringArg(msg *osc.Message) (string, bool) {
	if len(msg.Arguments) == 0 {
		return "", false
	}
	s, ok := msg.Arguments[0].(string)
	return s, ok
}

func floatArg(msg *osc.Message) (float64, bool) {
	if len(msg.Arguments) == 0 {
		return 0, false
	}
	switch v := msg.Arguments[0].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func intArg(msg *osc.Message) (int, bool) {
	if len(msg.Arguments) == 0 {
		return 0, false
	}
	switch v := msg.Arguments[0].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(math.Round(float64(v))), true
	case float64:
		return int(math.Round(v)), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
