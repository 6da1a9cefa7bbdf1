package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/app"
	"github.com/edgekit-io/coapfetch/config"
	"github.com/edgekit-io/coapfetch/internal/client"
	"github.com/edgekit-io/coapfetch/internal/coap"
	"github.com/edgekit-io/coapfetch/internal/shell"
	"github.com/edgekit-io/coapfetch/internal/validate"
	"github.com/edgekit-io/coapfetch/util/conf"
	"github.com/edgekit-io/coapfetch/util/logging"
)

var (
	getCmdDescription = `The get command issues a single CoAP GET request for the given
resource path and prints the response code and payload.

The exchange is bounded by a timeout; transport failures and
timeouts are reported as a failure description, while protocol-
level error responses (4.xx/5.xx) are printed like any other
response and left for the caller to interpret.`
	getCmd = &cli.Command{
		Name:        "get",
		Usage:       "Fetch a single CoAP resource.",
		ArgsUsage:   "<path>",
		Description: getCmdDescription,
		Action:      getAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The remote host to send the request to.",
				Category: "coap",
				EnvVars:  []string{"COAP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The remote UDP port.",
				Category: "coap",
				EnvVars:  []string{"COAP_PORT"},
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Aliases:  []string{"t"},
				Usage:    "How long to wait for a response.",
				Category: "coap",
				EnvVars:  []string{"COAP_TIMEOUT"},
			},
			&cli.PathFlag{
				Name:     "schema",
				Usage:    "Validate the response payload against a JSON schema file.",
				Category: "coap",
				EnvVars:  []string{"COAP_SCHEMA"},
			},
		},
	}
)

func init() {
	rootApp.Commands = append(rootApp.Commands, getCmd)
}

func getAction(ctx *cli.Context) error {
	shellApp, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	path := splitPath(ctx.Args().First())
	if len(path) == 0 {
		return fmt.Errorf("missing resource path, e.g. coapfetch get /time")
	}

	clientCfg, remote := resolveTarget(ctx, cfg.Client)

	var schema *validate.Schema
	if schemaPath := ctx.Path("schema"); schemaPath != "" {
		if schema, err = validate.Load(schemaPath); err != nil {
			return err
		}
	}

	return shellApp.Run(ctx.Context,
		logging.DecorateLogger("get"),
		fx.Provide(func(codec coap.Codec, log *zap.Logger, lc fx.Lifecycle) (*client.Pool, error) {
			pool, err := client.NewPool(client.PoolParams{
				Remote: remote,
				Config: clientCfg,
				Codec:  codec,
				Log:    log,
			})
			if err != nil {
				return nil, err
			}

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					pool.Close()
					return nil
				},
			})

			return pool, nil
		}),
		fx.Invoke(func(pool *client.Pool) error {
			result := pool.Fetch(ctx.Context, path)

			if !result.OK() {
				fmt.Printf("Failed to fetch resource:\n%s\n", result.Failure)
				return shell.NewExitError(1)
			}

			if schema != nil {
				if err := schema.Validate(result.Payload); err != nil {
					fmt.Printf("Result: %s (schema violation)\n%s\n", result.Code, err)
					return shell.NewExitError(1)
				}
			}

			fmt.Printf("Result: %s\n%q\n", result.Code, result.Payload)
			return nil
		}),
	)
}

// resolveTarget overlays the command flags onto the configured client
// defaults.
func resolveTarget(ctx *cli.Context, cfg client.Config) (client.Config, client.Remote) {
	remote := client.Remote{Host: cfg.Host, Port: cfg.Port}

	if host := ctx.String("host"); host != "" {
		remote.Host = host
	}

	if port := ctx.Int("port"); port != 0 {
		remote.Port = port
	}

	if timeout := ctx.Duration("timeout"); timeout != 0 {
		cfg.Timeout = timeout
	}

	return cfg, remote
}

func splitPath(arg string) []string {
	var path []string
	for _, segment := range strings.Split(arg, "/") {
		if segment != "" {
			path = append(path, segment)
		}
	}

	return path
}
