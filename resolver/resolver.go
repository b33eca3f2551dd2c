package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	cache "github.com/kbase/navcache"
)

const DefaultVersion = "release"

// Identity names a dynamically deployed service.
type Identity struct {
	Module  string
	Version string // empty means DefaultVersion
}

func (id Identity) normalize() Identity {
	if id.Version == "" {
		id.Version = DefaultVersion
	}
	return id
}

func (id Identity) String() string {
	id = id.normalize()
	return id.Module + "@" + id.Version
}

// key is unambiguous for any module and version, unlike String.
func (id Identity) key() string {
	return id.Module + "\x00" + id.Version
}

// Locator looks up the current address of a service.
type Locator interface {
	Locate(ctx context.Context, id Identity) (string, error)
}

type LocatorFunc func(ctx context.Context, id Identity) (string, error)

func (f LocatorFunc) Locate(ctx context.Context, id Identity) (string, error) {
	return f(ctx, id)
}

// Resolver maps service identities to base urls, asking its Locator again
// once a url is older than the configured max lifetime.
type Resolver struct {
	locator       Locator
	urls          cache.Cache[Identity, string]
	group         singleflight.Group
	maxLifetime   time.Duration
	sweepInterval time.Duration
	coalesce      bool
	logger        *zap.Logger
}

func New(locator Locator, opts ...Option) *Resolver {
	r := &Resolver{
		locator:       locator,
		maxLifetime:   DefaultMaxLifetime,
		sweepInterval: cache.DefaultSweepInterval,
		coalesce:      true,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.urls = cache.NewCache(
		cache.WithTTL[Identity, string](r.maxLifetime),
		cache.WithSweepInterval[Identity, string](r.sweepInterval),
		cache.WithLogger[Identity, string](r.logger),
	)
	return r
}

// Resolve returns the url for id, looking it up when none is cached or the
// cached one is stale. Lookup failures are returned as *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (string, error) {
	id = id.normalize()
	if url, found := r.urls.GetIfPresent(id); found {
		return url, nil
	}

	if !r.coalesce {
		return r.lookup(ctx, id)
	}

	// The shared lookup outlives any single caller; each caller stops
	// waiting when its own ctx is done.
	ch := r.group.DoChan(id.key(), func() (interface{}, error) {
		return r.lookup(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return "", &ResolutionError{Identity: id, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			r.logger.Debug("shared service lookup", zap.Stringer("service", id))
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate forgets the url cached for id, forcing the next Resolve to
// look it up.
func (r *Resolver) Invalidate(id Identity) {
	r.urls.Remove(id.normalize())
}

func (r *Resolver) lookup(ctx context.Context, id Identity) (string, error) {
	start := time.Now()
	url, err := r.locator.Locate(ctx, id)
	if err == nil && url == "" {
		err = ErrEmptyURL
	}
	if err != nil {
		r.logger.Debug("service lookup failed", zap.Stringer("service", id), zap.Error(err))
		return "", &ResolutionError{Identity: id, Err: err}
	}

	r.urls.Set(id, url)
	r.logger.Debug("service resolved",
		zap.Stringer("service", id),
		zap.String("url", url),
		zap.Duration("took", time.Since(start)),
	)
	return url, nil
}
