package eos

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPort       = 8000
	DefaultListenPort = 8001
)

// Conn is the UDP link to the console: a client for outbound commands and a
// socket for the console's reports.
type Conn struct {
	client *osc.Client
	server *osc.Server
	pc     net.PacketConn
	log    *log.Logger
	closed atomic.Bool
}

// Dial prepares the client for host:port and binds the report socket on
// listenHost, trying listenPort and up to retries-1 following ports.
func Dial(host string, port int, listenHost string, listenPort, retries int, logger *log.Logger) (*Conn, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	pc, err := listen(listenHost, listenPort, retries)
	if err != nil {
		return nil, err
	}
	return &Conn{
		client: osc.NewClient(host, port),
		server: &osc.Server{},
		pc:     pc,
		log:    logger,
	}, nil
}

func listen(host string, port, retries int) (net.PacketConn, error) {
	if port == 0 || retries < 1 {
		retries = 1
	}
	var lastErr error
	for i := range retries {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		pc, err := net.ListenPacket("udp", addr)
		if err == nil {
			return pc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("listen for console on %s ports %d-%d: %w", host, port, port+retries-1, lastErr)
}

func (c *Conn) Send(packet osc.Packet) error {
	return c.client.Send(packet)
}

func (c *Conn) LocalPort() int {
	return c.pc.LocalAddr().(*net.UDPAddr).Port
}

// Serve hands every received message to handler, in arrival order, until the
// connection is closed. Bundles are flattened.
func (c *Conn) Serve(handler func(*osc.Message)) error {
	for {
		packet, err := c.server.ReceivePacket(c.pc)
		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) {
				return fmt.Errorf("receive from console: %w", err)
			}
			c.log.WithError(err).Warn("bad packet from console")
			continue
		}
		dispatch(packet, handler)
	}
}

func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.pc.Close()
}

func dispatch(packet osc.Packet, handler func(*osc.Message)) {
	switch p := packet.(type) {
	case *osc.Message:
		handler(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			handler(m)
		}
		for _, b := range p.Bundles {
			dispatch(b, handler)
		}
	}
}
