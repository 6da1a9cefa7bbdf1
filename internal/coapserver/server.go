// Package coapserver is a minimal CoAP server over UDP: enough to serve
// piggybacked responses to one-shot GET clients, and to stand in as the
// deterministic remote in tests.
package coapserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

type Config struct {
	// Host is the local address to bind
	Host string `conf:"host"`

	// Port is the local UDP port, 0 picks an ephemeral one
	Port int `conf:"port"`
}

type Server struct {
	cfg   Config
	codec coap.Codec
	mux   *ServeMux

	conn     *net.UDPConn
	connLock sync.Mutex

	handlers  sync.WaitGroup
	closeOnce sync.Once

	log *zap.Logger
}

func New(cfg Config, mux *ServeMux, codec coap.Codec, log *zap.Logger) *Server {
	if codec == nil {
		codec = coap.NewWireCodec()
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		cfg:   cfg,
		codec: codec,
		mux:   mux,
		log:   log.Named("coapserver"),
	}
}

// NewLifecycleServer binds the server to the fx lifecycle: listen and
// serve on start, shut down on stop.
func NewLifecycleServer(server *Server, lc fx.Lifecycle) *Server {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Listen(); err != nil {
				return err
			}
			go server.Serve()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})

	return server
}

// Listen binds the UDP socket. Serve may be called afterwards.
func (s *Server) Listen() error {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	if s.conn != nil {
		return errors.New("server already listening")
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	s.conn = conn
	s.log.Info("listening", zap.String("address", conn.LocalAddr().String()))

	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// Serve reads datagrams until the socket is closed, answering each
// request in its own goroutine.
func (s *Server) Serve() error {
	s.connLock.Lock()
	conn := s.conn
	s.connLock.Unlock()

	if conn == nil {
		return errors.New("server is not listening")
	}

	buf := make([]byte, coap.MaxDatagramSize)

	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("read failed", zap.Error(err))
			return err
		}

		data := append([]byte(nil), buf[:n]...)

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(conn, peer, data)
		}()
	}
}

func (s *Server) handle(conn *net.UDPConn, peer *net.UDPAddr, data []byte) {
	req, err := s.codec.Decode(data)
	if err != nil {
		s.log.Debug("discarding undecodable datagram",
			zap.String("peer", peer.String()),
			zap.Error(err),
		)
		return
	}

	if !req.Code.IsMethod() {
		return
	}

	var res *coap.Message
	if handler, ok := s.mux.match(req.PathString()); ok {
		res = handler(req)
	} else {
		res = &coap.Message{Code: coap.NotFound}
	}

	if res == nil {
		return
	}

	// piggybacked response: ack the confirmable request, echo id and token
	if req.Type == coap.Confirmable {
		res.Type = coap.Acknowledgement
	} else {
		res.Type = coap.NonConfirmable
	}
	res.MessageID = req.MessageID
	res.Token = req.Token

	out, err := s.codec.Encode(res)
	if err != nil {
		s.log.Error("encode failed", zap.Error(err))
		return
	}

	if _, err := conn.WriteToUDP(out, peer); err != nil {
		s.log.Error("write failed", zap.String("peer", peer.String()), zap.Error(err))
	}
}

// Shutdown closes the socket and waits for in-flight handlers, bounded
// by the context. Idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.connLock.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.connLock.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
