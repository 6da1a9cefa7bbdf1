package client

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

// Endpoint is one client binding to the network transport. It owns the
// underlying socket exclusively and supports one in-flight request at a
// time; callers needing concurrency use separate endpoints (see Pool).
type Endpoint struct {
	conn    *net.UDPConn
	codec   coap.Codec
	timeout time.Duration

	// busy guards the single in-flight request
	busy sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	msgid     uint16
	msgidLock sync.Mutex

	log *zap.Logger
}

// Dial acquires the transport for the given remote: an ephemeral local
// port, connected so delivery errors surface on read. The endpoint must
// be closed when no longer needed.
func Dial(remote Remote, cfg Config, codec coap.Codec, log *zap.Logger) (*Endpoint, error) {
	if codec == nil {
		codec = coap.NewWireCodec()
	}

	if log == nil {
		log = zap.NewNop()
	}

	addr, err := net.ResolveUDPAddr("udp", remote.Addr())
	if err != nil {
		return nil, &TransportInitError{Cause: err}
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, &TransportInitError{Cause: err}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ep := &Endpoint{
		conn:    conn,
		codec:   codec,
		timeout: timeout,
		log:     log.Named("endpoint"),
	}

	// seed the message id so restarts do not reuse recent ids
	var seed [2]byte
	if _, err := rand.Read(seed[:]); err == nil {
		ep.msgid = binary.BigEndian.Uint16(seed[:])
	}

	ep.log.Debug("endpoint created",
		zap.String("local", conn.LocalAddr().String()),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	return ep, nil
}

// LocalAddr returns the address of the bound local socket.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Request submits one message and suspends until its matching response
// arrives, the transport reports a failure, or the timeout elapses.
// Exactly one outcome is produced per call: the response for this
// request (correlated by token), a *TransportError, ErrTimeout, or the
// context's own error if the caller cancels. Responses carrying 4.xx or
// 5.xx codes are ordinary returns, not errors.
func (e *Endpoint) Request(ctx context.Context, req *coap.Message) (*coap.Message, error) {
	if e.closed.Load() {
		return nil, ErrEndpointClosed
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	if !e.busy.TryLock() {
		return nil, ErrBusy
	}
	defer e.busy.Unlock()

	if len(req.Token) == 0 {
		token := make([]byte, 8)
		if _, err := rand.Read(token); err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		req.Token = token
	}

	if req.MessageID == 0 {
		req.MessageID = e.nextMessageID()
	}

	data, err := e.codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// unblock the pending read when the context ends, and restore the
	// deadline afterwards so the endpoint stays usable
	stop := context.AfterFunc(ctx, func() {
		e.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		e.conn.SetReadDeadline(time.Time{})
	}()

	if _, err := e.conn.Write(data); err != nil {
		return nil, &TransportError{Cause: err}
	}

	e.log.Debug("request sent",
		zap.Stringer("code", req.Code),
		zap.String("path", req.PathString()),
		zap.Uint16("message_id", req.MessageID),
	)

	return e.receive(ctx, req)
}

// receive reads datagrams until one correlates with the request. Stale
// or unrelated datagrams are discarded, never surfaced.
func (e *Endpoint) receive(ctx context.Context, req *coap.Message) (*coap.Message, error) {
	buf := make([]byte, coap.MaxDatagramSize)

	for {
		n, err := e.conn.Read(buf)
		if err != nil {
			switch ctx.Err() {
			case context.DeadlineExceeded:
				return nil, ErrTimeout
			case context.Canceled:
				return nil, ctx.Err()
			}

			// e.g. port unreachable on a connected UDP socket
			return nil, &TransportError{Cause: err}
		}

		res, err := e.codec.Decode(buf[:n])
		if err != nil {
			e.log.Debug("discarding undecodable datagram", zap.Error(err))
			continue
		}

		if !bytes.Equal(res.Token, req.Token) {
			e.log.Debug("discarding unrelated response",
				zap.Uint16("message_id", res.MessageID),
			)
			continue
		}

		return res, nil
	}
}

// Close releases the transport resource. It is idempotent: repeated
// calls return the first result and have no further effect.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.closeErr = e.conn.Close()
		e.log.Debug("endpoint closed")
	})

	return e.closeErr
}

func (e *Endpoint) nextMessageID() uint16 {
	e.msgidLock.Lock()
	defer e.msgidLock.Unlock()

	e.msgid++
	return e.msgid
}
