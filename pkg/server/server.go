package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/downfa11-org/cursus-ack/pkg/config"
	"github.com/downfa11-org/cursus-ack/pkg/controller"
	"github.com/downfa11-org/cursus-ack/pkg/metrics"
	"github.com/downfa11-org/cursus-ack/pkg/protocol"
	"github.com/downfa11-org/cursus-ack/util"
)

// Server accepts remoting connections and hands every frame to the router.
type Server struct {
	cfg    *config.Config
	router *controller.Router

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*Connection]struct{}
	closing bool
	slots   chan struct{}
	wg      sync.WaitGroup
}

func NewServer(cfg *config.Config, router *controller.Router) *Server {
	maxConn := cfg.MaxConnections
	if maxConn <= 0 {
		maxConn = 1
	}
	return &Server{
		cfg:    cfg,
		router: router,
		conns:  make(map[*Connection]struct{}),
		slots:  make(chan struct{}, maxConn),
	}
}

// Listen opens the broker port, with TLS when configured.
func (s *Server) Listen() (net.Listener, error) {
	addr := fmt.Sprintf(":%d", s.cfg.BrokerPort)
	if s.cfg.UseTLS {
		tlsConfig := &tls.Config{Certificates: []tls.Certificate{s.cfg.TLSCert}}
		return tls.Listen("tcp", addr, tlsConfig)
	}
	return net.Listen("tcp", addr)
}

// ListenAndServe opens the broker port and serves until Close.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	util.Info("🧩 Broker listening on %s (TLS=%v, compression=%s)", ln.Addr(), s.cfg.UseTLS, s.cfg.CompressionType)
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close. Connections beyond
// max_connections are refused.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				util.Warn("⚠️ Accept error: %v", err)
				continue
			}
			return err
		}

		select {
		case s.slots <- struct{}{}:
		default:
			util.Warn("⚠️ max connections (%d) reached, refusing %s", cap(s.slots), conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			s.HandleConnection(conn)
		}()
	}
}

// HandleConnection reads frames from conn until it fails or is closed.
// Decode and dispatch errors close the connection so the client resends.
func (s *Server) HandleConnection(raw net.Conn) {
	c := NewConnection(raw, s.cfg.CompressionType)
	if !s.track(c) {
		_ = c.Close()
		return
	}
	defer s.untrack(c)
	defer c.Close()

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	util.Debug("connection %s opened from %s", c.ID(), c.RemoteAddr())

	for {
		if s.cfg.ReadTimeoutMS > 0 {
			_ = raw.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.ReadTimeoutMS) * time.Millisecond))
		}

		cmd, err := protocol.ReadCommand(raw, s.cfg.MaxFrameBytes)
		if err != nil {
			if !isClosedConn(err) {
				util.Warn("⚠️ read frame from %s: %v", c.RemoteAddr(), err)
			}
			return
		}

		body, err := util.DecompressBody(cmd.Body, s.cfg.CompressionType)
		if err != nil {
			util.Warn("⚠️ decompress frame from %s: %v", c.RemoteAddr(), err)
			return
		}
		cmd.Body = body

		result, err := s.router.Dispatch(c, cmd)
		if err != nil {
			util.Error("dispatch request from %s failed, closing connection: %v", c.RemoteAddr(), err)
			return
		}
		if result.IsPending() {
			continue
		}
		if err := c.WriteDatagram(result.Datagram()); err != nil {
			util.Warn("⚠️ write response to %s: %v", c.RemoteAddr(), err)
			return
		}
	}
}

// Close stops accepting, closes open connections and waits for their loops.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) track(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// isClosedConn reports errors caused by an ordinary peer or local close.
func isClosedConn(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
