package client

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

// DefaultPort is the CoAP default UDP port. Callers may override it
// through the remote address.
const DefaultPort = 5683

const DefaultTimeout = 5 * time.Second

var (
	ErrBusy           = fmt.Errorf("endpoint has a request in flight")
	ErrEndpointClosed = fmt.Errorf("endpoint is closed")
)

// Config configures the client endpoints and the pool.
type Config struct {
	// Host is the default remote host
	Host string `conf:"host"`

	// Port is the default remote port
	Port int `conf:"port"`

	// Timeout bounds a single request/response exchange
	Timeout time.Duration `conf:"timeout"`

	// MaxEndpoints is the maximum number of pooled endpoints
	MaxEndpoints int `conf:"max_endpoints"`
}

// Remote is the destination address of a request.
type Remote struct {
	Host string
	Port int
}

func (r Remote) Addr() string {
	port := r.Port
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(r.Host, strconv.Itoa(port))
}

// TransportInitError reports that the transport resource could not be
// acquired when creating an endpoint. Fatal to that endpoint.
type TransportInitError struct {
	Cause error
}

func (e *TransportInitError) Error() string {
	return fmt.Sprintf("transport init: %v", e.Cause)
}

func (e *TransportInitError) Unwrap() error {
	return e.Cause
}

// TransportError reports a delivery-layer failure during an in-flight
// request. It is reported, never retried.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrTimeout is returned when no matching response arrives within the
// configured bound.
var ErrTimeout = fmt.Errorf("timeout")

// Result is the caller-facing outcome of one fetch. A response carrying
// a protocol-level error code (4.xx/5.xx) is still a successful fetch;
// classifying it is the caller's concern.
type Result struct {
	// Code is the response code of a completed exchange
	Code coap.Code

	// Payload is the opaque response body
	Payload []byte

	// Failure describes why the exchange failed, empty on success
	Failure string
}

// OK reports whether the exchange completed with a response.
func (r Result) OK() bool {
	return r.Failure == ""
}

func (r Result) String() string {
	if !r.OK() {
		return fmt.Sprintf("failed: %s", r.Failure)
	}

	return fmt.Sprintf("%s %q", r.Code, r.Payload)
}
