package coapserver

import (
	"sync"
	"time"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

// HandlerFunc produces the response for one request. Returning nil
// suppresses the reply, leaving the client to time out.
type HandlerFunc func(req *coap.Message) *coap.Message

// ServeMux dispatches requests by their joined Uri-Path.
type ServeMux struct {
	lock     sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewServeMux() *ServeMux {
	return &ServeMux{handlers: map[string]HandlerFunc{}}
}

// Handle registers a handler for the given /-separated path.
func (m *ServeMux) Handle(path string, handler HandlerFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.handlers[path] = handler
}

func (m *ServeMux) match(path string) (HandlerFunc, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	handler, ok := m.handlers[path]
	return handler, ok
}

// TimeHandler serves the wall clock as an HH:MM:SS payload, the demo
// resource of the aiocoap-style time server.
func TimeHandler(now func() time.Time) HandlerFunc {
	if now == nil {
		now = time.Now
	}

	return func(req *coap.Message) *coap.Message {
		return &coap.Message{
			Code:    coap.Content,
			Payload: []byte(now().Format("15:04:05")),
		}
	}
}

// Static serves a fixed code and payload, handy for tests.
func Static(code coap.Code, payload []byte) HandlerFunc {
	return func(req *coap.Message) *coap.Message {
		return &coap.Message{Code: code, Payload: payload}
	}
}

// Silent never answers.
func Silent() HandlerFunc {
	return func(req *coap.Message) *coap.Message {
		return nil
	}
}
