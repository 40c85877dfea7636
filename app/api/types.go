package api

import (
	"context"

	"github.com/Brogede16/cinemateket-print-program/app/program"
	"github.com/Brogede16/cinemateket-print-program/app/proxy"
)

type ProgramBuilder interface {
	Build(ctx context.Context, mode, from, to string) (*program.Response, error)
}

var _ ProgramBuilder = (*program.Aggregator)(nil)

type UpstreamProxy interface {
	Fetch(ctx context.Context, rawurl string) (*proxy.Result, error)
}

var _ UpstreamProxy = (*proxy.Proxy)(nil)

type ClientLimiter interface {
	Allow(client string) bool
}

var _ ClientLimiter = (*proxy.RateLimiter)(nil)

type Handler struct {
	aggregator ProgramBuilder
	proxy      UpstreamProxy
	limiter    ClientLimiter
	staticDir  string
}
