package app

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/edgekit-io/coapfetch/config"
	"github.com/edgekit-io/coapfetch/internal/client"
	"github.com/edgekit-io/coapfetch/internal/coap"
	"github.com/edgekit-io/coapfetch/internal/shell"
	"github.com/edgekit-io/coapfetch/util/conf"
	"github.com/edgekit-io/coapfetch/util/logging"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide client config
		fx.Supply(config.Client),
		// provide server config
		fx.Supply(config.Server),
		// provide the default wire codec
		fx.Provide(func() coap.Codec { return coap.NewWireCodec() }),
		// provide the fetcher
		fx.Provide(client.NewFetcher),
	)

	return shell.New(log, sharedModule), nil
}
