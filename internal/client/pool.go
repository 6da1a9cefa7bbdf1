package client

import (
	"context"
	"fmt"

	"github.com/jackc/puddle/v2"
	"go.uber.org/zap"

	"github.com/edgekit-io/coapfetch/internal/coap"
)

// Pool reuses endpoints for repeated fetches against one remote. Each
// in-flight fetch holds its own endpoint, so concurrent fetches suspend
// only on their own I/O.
type Pool struct {
	pool  *puddle.Pool[*Endpoint]
	fetch *Fetcher
	log   *zap.Logger
}

type PoolParams struct {
	// Remote is the fixed destination all pooled endpoints dial
	Remote Remote

	// Config is the shared endpoint configuration
	Config Config

	// Codec overrides the default wire codec, may be nil
	Codec coap.Codec

	// Log is the logger to use for the pool
	Log *zap.Logger
}

func NewPool(params PoolParams) (*Pool, error) {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	constructor := func(ctx context.Context) (*Endpoint, error) {
		return Dial(params.Remote, params.Config, params.Codec, log)
	}

	destructor := func(endpoint *Endpoint) {
		if err := endpoint.Close(); err != nil {
			log.Error("error closing endpoint", zap.Error(err))
		}
	}

	maxSize := params.Config.MaxEndpoints
	if maxSize <= 0 {
		maxSize = 1
	}

	pool, err := puddle.NewPool(&puddle.Config[*Endpoint]{
		Constructor: constructor,
		Destructor:  destructor,
		MaxSize:     int32(maxSize),
	})
	if err != nil {
		return nil, err
	}

	return &Pool{
		pool:  pool,
		fetch: NewFetcher(params.Config, params.Codec, log),
		log:   log.Named("pool"),
	}, nil
}

// Fetch performs one GET on a pooled endpoint. Healthy endpoints go
// back to the pool; an endpoint whose exchange failed below the
// protocol layer is destroyed, so a broken socket is never reused.
func (p *Pool) Fetch(ctx context.Context, path []string) Result {
	resource, err := p.pool.Acquire(ctx)
	if err != nil {
		p.log.Warn("error acquiring endpoint", zap.Error(err))
		return failure(fmt.Errorf("acquiring endpoint: %w", err))
	}

	result := p.fetch.exchange(ctx, resource.Value(), path)

	if result.OK() {
		p.log.Debug("releasing endpoint back to pool")
		resource.Release()
	} else {
		p.log.Debug("destroying endpoint due to error")
		resource.Destroy()
	}

	return result
}

// Close destroys all idle endpoints and waits for acquired ones to be
// returned.
func (p *Pool) Close() {
	p.log.Debug("closing pool")
	p.pool.Close()
}
