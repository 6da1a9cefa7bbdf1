package coapserver_test

import (
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/coap"
	"github.com/edgekit-io/coapfetch/internal/coapserver"
)

func startServer(t *testing.T, mux *coapserver.ServeMux) *net.UDPAddr {
	t.Helper()

	server := coapserver.New(coapserver.Config{Host: "127.0.0.1"}, mux, nil, zap.NewNop())
	require.NoError(t, server.Listen())

	go server.Serve()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	return server.Addr().(*net.UDPAddr)
}

// exchange sends one encoded request and returns the decoded reply.
func exchange(t *testing.T, addr *net.UDPAddr, req *coap.Message) *coap.Message {
	t.Helper()

	codec := coap.NewWireCodec()

	conn, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer conn.Close()

	data, err := codec.Encode(req)
	require.NoError(t, err)

	_, err = conn.Write(data)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, coap.MaxDatagramSize)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	res, err := codec.Decode(buf[:n])
	require.NoError(t, err)

	return res
}

func TestServer_ServesRegisteredHandler(t *testing.T) {
	mux := coapserver.NewServeMux()
	mux.Handle("greet", coapserver.Static(coap.Content, []byte("hello")))
	addr := startServer(t, mux)

	req := coap.NewGET([]string{"greet"})
	req.MessageID = 42
	req.Token = []byte{0x01, 0x02}

	res := exchange(t, addr, req)

	assert.Equal(t, coap.Content, res.Code)
	assert.Equal(t, coap.Acknowledgement, res.Type)
	assert.Equal(t, uint16(42), res.MessageID)
	assert.Equal(t, req.Token, res.Token)
	assert.Equal(t, []byte("hello"), res.Payload)
}

func TestServer_UnknownPathIsNotFound(t *testing.T) {
	addr := startServer(t, coapserver.NewServeMux())

	req := coap.NewGET([]string{"missing"})
	req.MessageID = 7
	req.Token = []byte{0xaa}

	res := exchange(t, addr, req)

	assert.Equal(t, coap.NotFound, res.Code)
	assert.Equal(t, req.Token, res.Token)
}

func TestServer_NonConfirmableGetsNonConfirmableReply(t *testing.T) {
	mux := coapserver.NewServeMux()
	mux.Handle("greet", coapserver.Static(coap.Content, []byte("hello")))
	addr := startServer(t, mux)

	req := coap.NewGET([]string{"greet"})
	req.Type = coap.NonConfirmable
	req.MessageID = 9
	req.Token = []byte{0xbb}

	res := exchange(t, addr, req)

	assert.Equal(t, coap.NonConfirmable, res.Type)
}

func TestServer_IgnoresNonRequests(t *testing.T) {
	mux := coapserver.NewServeMux()
	mux.Handle("greet", coapserver.Static(coap.Content, []byte("hello")))
	addr := startServer(t, mux)

	codec := coap.NewWireCodec()

	conn, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer conn.Close()

	// a response code is not a request; the server must stay silent
	data, err := codec.Encode(&coap.Message{
		Type:      coap.NonConfirmable,
		Code:      coap.Content,
		MessageID: 1,
		Token:     []byte{0x01},
	})
	require.NoError(t, err)

	_, err = conn.Write(data)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))

	buf := make([]byte, coap.MaxDatagramSize)
	_, err = conn.Read(buf)
	assert.Error(t, err)
}

func TestTimeHandler(t *testing.T) {
	fixed := func() time.Time {
		return time.Date(2014, 7, 1, 12, 0, 0, 0, time.UTC)
	}

	res := coapserver.TimeHandler(fixed)(coap.NewGET([]string{"time"}))

	require.NotNil(t, res)
	assert.Equal(t, coap.Content, res.Code)
	assert.Equal(t, []byte("12:00:00"), res.Payload)
	assert.Regexp(t, regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`), string(res.Payload))
}

func TestServer_Shutdown_Idempotent(t *testing.T) {
	server := coapserver.New(coapserver.Config{Host: "127.0.0.1"}, coapserver.NewServeMux(), nil, zap.NewNop())
	require.NoError(t, server.Listen())

	go server.Serve()

	ctx := context.Background()
	assert.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, server.Shutdown(ctx))
}
