package cmd

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/app"
	"github.com/edgekit-io/coapfetch/internal/coap"
	"github.com/edgekit-io/coapfetch/internal/coapserver"
	"github.com/edgekit-io/coapfetch/util/logging"
)

var (
	serveCmdDescription = `The serve command starts a small loopback CoAP server, useful
for trying the client without real constrained hardware.

It answers GET /time with the current wall clock and replies
4.04 NotFound to everything else. The command blocks until
interrupted.`
	serveCmd = &cli.Command{
		Name:        "serve",
		Usage:       "Start a loopback CoAP server.",
		Description: serveCmdDescription,
		Action:      serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to listen on.",
				Category: "coap",
				EnvVars:  []string{"COAP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The UDP port to listen on.",
				Category: "coap",
				EnvVars:  []string{"COAP_PORT"},
			},
		},
	}
)

func init() {
	rootApp.Commands = append(rootApp.Commands, serveCmd)
}

func serveAction(ctx *cli.Context) error {
	shellApp, err := app.New(ctx)
	if err != nil {
		return err
	}

	return shellApp.Serve(ctx.Context,
		logging.DecorateLogger("serve"),
		fx.Provide(func() *coapserver.ServeMux {
			mux := coapserver.NewServeMux()
			mux.Handle("time", coapserver.TimeHandler(nil))
			return mux
		}),
		fx.Provide(func(cfg coapserver.Config, mux *coapserver.ServeMux, codec coap.Codec, log *zap.Logger) *coapserver.Server {
			if host := ctx.String("host"); host != "" {
				cfg.Host = host
			}
			if port := ctx.Int("port"); port != 0 {
				cfg.Port = port
			}

			return coapserver.New(cfg, mux, codec, log)
		}),
		fx.Invoke(coapserver.NewLifecycleServer),
	)
}
