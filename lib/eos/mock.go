package eos

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// MockConsole stands in for the console in tests: it records every OSC
// message sent to it and can push reports to the bridge.
type MockConsole struct {
	pc     net.PacketConn
	server *osc.Server

	mu       sync.Mutex
	received []*osc.Message
	notify   chan *osc.Message
}

func NewMockConsole() (*MockConsole, error) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	m := &MockConsole{
		pc:     pc,
		server: &osc.Server{},
		notify: make(chan *osc.Message, 256),
	}
	go m.serve()
	return m, nil
}

func (m *MockConsole) Port() int {
	return m.pc.LocalAddr().(*net.UDPAddr).Port
}

func (m *MockConsole) Close() error {
	return m.pc.Close()
}

func (m *MockConsole) serve() {
	for {
		packet, err := m.server.ReceivePacket(m.pc)
		if err != nil {
			if _, ok := err.(net.Error); ok {
				return
			}
			continue
		}
		dispatch(packet, m.record)
	}
}

func (m *MockConsole) record(msg *osc.Message) {
	m.mu.Lock()
	m.received = append(m.received, msg)
	m.mu.Unlock()
	select {
	case m.notify <- msg:
	default:
	}
}

func (m *MockConsole) Received() []*osc.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*osc.Message(nil), m.received...)
}

// Next waits for the next message the console receives.
func (m *MockConsole) Next(timeout time.Duration) (*osc.Message, error) {
	select {
	case msg := <-m.notify:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("mock console: no message within %s", timeout)
	}
}

// Report sends a console report to a bridge listening on 127.0.0.1:port.
func (m *MockConsole) Report(port int, addr string, args ...any) error {
	return osc.NewClient("127.0.0.1", port).Send(osc.NewMessage(addr, args...))
}
