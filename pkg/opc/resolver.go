package opc

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc obtains a ZipProvider.
type LoadFunc func(ctx context.Context) (ZipProvider, error)

// Resolver obtains a ZipProvider once and shares it. Concurrent callers
// wait on a single load. A failed load is not cached.
type Resolver struct {
	load  LoadFunc
	group singleflight.Group

	mu       sync.RWMutex
	provider ZipProvider
}

// NewResolver creates a resolver around load.
func NewResolver(load LoadFunc) *Resolver {
	return &Resolver{load: load}
}

// StaticResolver resolves to p without loading.
func StaticResolver(p ZipProvider) *Resolver {
	return &Resolver{provider: p}
}

// DefaultResolver resolves to DeflateProvider.
func DefaultResolver() *Resolver {
	return StaticResolver(DeflateProvider{})
}

// Resolve returns the provider, loading it on first use.
func (r *Resolver) Resolve(ctx context.Context) (ZipProvider, error) {
	r.mu.RLock()
	p := r.provider
	r.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if r.load == nil {
		return nil, ErrDeflateUnavailable
	}

	// The load outlives any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("zip", func() (any, error) {
		p, err := r.load(loadCtx)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrDeflateUnavailable
		}
		r.mu.Lock()
		r.provider = p
		r.mu.Unlock()
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ZipProvider), nil
	}
}
