package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

// Fetcher drives one GET exchange per call: build the message, acquire
// an endpoint, perform the exchange, map the outcome, and release the
// endpoint exactly once on every exit path.
type Fetcher struct {
	cfg   Config
	codec coap.Codec
	log   *zap.Logger
}

func NewFetcher(cfg Config, codec coap.Codec, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}

	return &Fetcher{
		cfg:   cfg,
		codec: codec,
		log:   log.Named("fetcher"),
	}
}

// Fetch performs a single GET of the given path segments against the
// remote, on a dedicated endpoint. It always returns exactly one
// Result; failures below the protocol layer become a Failure
// description, never a panic or a hang.
func (f *Fetcher) Fetch(ctx context.Context, path []string, remote Remote) Result {
	endpoint, err := Dial(remote, f.cfg, f.codec, f.log)
	if err != nil {
		f.log.Warn("endpoint creation failed", zap.Error(err))
		return failure(err)
	}
	defer endpoint.Close()

	return f.exchange(ctx, endpoint, path)
}

// exchange runs the Sent → {Completed | Failed} leg on an endpoint the
// caller owns.
func (f *Fetcher) exchange(ctx context.Context, endpoint *Endpoint, path []string) Result {
	res, err := endpoint.Request(ctx, coap.NewGET(path))
	if err != nil {
		f.log.Debug("fetch failed", zap.Error(err))
		return failure(err)
	}

	f.log.Debug("fetch completed",
		zap.Stringer("code", res.Code),
		zap.Int("payload_len", len(res.Payload)),
	)

	return Result{Code: res.Code, Payload: res.Payload}
}

// failure maps the error taxonomy to the user-facing description.
func failure(err error) Result {
	var transportErr *TransportError

	switch {
	case errors.Is(err, ErrTimeout):
		return Result{Failure: "timeout"}
	case errors.As(err, &transportErr):
		return Result{Failure: "unreachable: " + transportErr.Cause.Error()}
	case errors.Is(err, context.Canceled):
		return Result{Failure: "cancelled"}
	default:
		return Result{Failure: err.Error()}
	}
}
