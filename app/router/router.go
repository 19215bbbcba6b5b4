package router

import (
	"context"

	"github.com/xavierroma/go-rakis/app/request"
	"github.com/xavierroma/go-rakis/app/response"
	"github.com/xavierroma/go-rakis/app/types"
)

// Handler produces the response to a routed request. It must call exactly one
// send method on res before returning and must not keep req or res around
// afterwards.
type Handler interface {
	ServeRequest(ctx context.Context, req *request.Request, res *response.Response)
}

type HandlerFunc func(ctx context.Context, req *request.Request, res *response.Response)

func (f HandlerFunc) ServeRequest(ctx context.Context, req *request.Request, res *response.Response) {
	f(ctx, req, res)
}

type Router interface {
	Register(method types.Method, pattern string, handler Handler) error

	Match(method types.Method, path string) (Handler, bool)

	Len() int
}

func New() Router {
	return newRegexRouter()
}
