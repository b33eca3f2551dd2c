package servicewizard

import (
	"context"

	"github.com/kbase/navcache/jsonrpc"
	"github.com/kbase/navcache/resolver"
)

// DynamicClient calls a dynamic service whose url is resolved through a
// Resolver before every call.
type DynamicClient struct {
	id       resolver.Identity
	resolver *resolver.Resolver
	opts     *options
}

var _ jsonrpc.Caller = (*DynamicClient)(nil)

func NewDynamicClient(module string, r *resolver.Resolver, opts ...Option) *DynamicClient {
	o := newOptions(opts)
	return &DynamicClient{
		id:       resolver.Identity{Module: module, Version: o.version},
		resolver: r,
		opts:     o,
	}
}

func (c *DynamicClient) Identity() resolver.Identity {
	return c.id
}

// Call resolves the service url and invokes method on it. A failed lookup
// is returned as *resolver.ResolutionError.
func (c *DynamicClient) Call(ctx context.Context, method string, params []any, result any) error {
	url, err := c.resolver.Resolve(ctx, c.id)
	if err != nil {
		return err
	}
	client := jsonrpc.NewClient(c.id.Module, url,
		jsonrpc.WithToken(c.opts.token),
		jsonrpc.WithHTTPClient(c.opts.httpClient),
		jsonrpc.WithLogger(c.opts.logger),
	)
	return client.Call(ctx, method, params, result)
}
