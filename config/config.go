package config

import (
	"github.com/edgekit-io/coapfetch/internal/client"
	"github.com/edgekit-io/coapfetch/internal/coapserver"
	"github.com/edgekit-io/coapfetch/util/conf"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Client configures endpoints and the endpoint pool
	Client client.Config `conf:"client"`

	// Server configures the loopback CoAP server
	Server coapserver.Config `conf:"server"`
}

var DefaultConfig = conf.DefaultConfig{
	"log_level":            "info",
	"log_format":           "production",
	"client.host":          "127.0.0.1",
	"client.port":          client.DefaultPort,
	"client.timeout":       "5s",
	"client.max_endpoints": 4,
	"server.host":          "127.0.0.1",
	"server.port":          client.DefaultPort,
}
