package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/client"
	"github.com/edgekit-io/coapfetch/internal/coap"
	"github.com/edgekit-io/coapfetch/internal/coapserver"
)

func TestFetcher_Fetch(t *testing.T) {
	remote := startServer(t, timeMux("12:00:00"))

	fetcher := client.NewFetcher(client.Config{Timeout: time.Second}, nil, zap.NewNop())

	result := fetcher.Fetch(context.Background(), []string{"time"}, remote)

	require.True(t, result.OK(), "unexpected failure: %s", result.Failure)
	assert.Equal(t, coap.Content, result.Code)
	assert.Equal(t, []byte("12:00:00"), result.Payload)
}

func TestFetcher_Fetch_Idempotent(t *testing.T) {
	remote := startServer(t, timeMux("12:00:00"))

	fetcher := client.NewFetcher(client.Config{Timeout: time.Second}, nil, zap.NewNop())

	first := fetcher.Fetch(context.Background(), []string{"time"}, remote)
	second := fetcher.Fetch(context.Background(), []string{"time"}, remote)

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first.Payload, second.Payload)
}

func TestFetcher_Fetch_NotFoundIsCompleted(t *testing.T) {
	remote := startServer(t, coapserver.NewServeMux())

	fetcher := client.NewFetcher(client.Config{Timeout: time.Second}, nil, zap.NewNop())

	result := fetcher.Fetch(context.Background(), []string{"missing"}, remote)

	require.True(t, result.OK(), "a 4.04 response is still a completed fetch")
	assert.Equal(t, coap.NotFound, result.Code)
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	mux := coapserver.NewServeMux()
	mux.Handle("void", coapserver.Silent())
	remote := startServer(t, mux)

	timeout := 200 * time.Millisecond
	fetcher := client.NewFetcher(client.Config{Timeout: timeout}, nil, zap.NewNop())

	start := time.Now()
	result := fetcher.Fetch(context.Background(), []string{"void"}, remote)
	elapsed := time.Since(start)

	assert.False(t, result.OK())
	assert.Equal(t, "timeout", result.Failure)
	assert.GreaterOrEqual(t, elapsed, timeout)
}

func TestFetcher_Fetch_Unreachable(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())

	fetcher := client.NewFetcher(client.Config{Timeout: time.Second}, nil, zap.NewNop())

	start := time.Now()
	result := fetcher.Fetch(context.Background(), []string{"time"}, client.Remote{Host: "127.0.0.1", Port: port})

	assert.False(t, result.OK())
	assert.Contains(t, result.Failure, "unreachable")
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetcher_Fetch_Cancelled(t *testing.T) {
	mux := coapserver.NewServeMux()
	mux.Handle("void", coapserver.Silent())
	remote := startServer(t, mux)

	fetcher := client.NewFetcher(client.Config{Timeout: 10 * time.Second}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := fetcher.Fetch(ctx, []string{"void"}, remote)

	assert.False(t, result.OK())
	assert.Equal(t, "cancelled", result.Failure)
}

func TestFetcher_Fetch_InvalidPath(t *testing.T) {
	remote := startServer(t, timeMux("12:00:00"))

	fetcher := client.NewFetcher(client.Config{Timeout: time.Second}, nil, zap.NewNop())

	result := fetcher.Fetch(context.Background(), nil, remote)

	assert.False(t, result.OK())
	assert.Contains(t, result.Failure, "invalid message")
}
