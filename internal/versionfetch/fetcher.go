package versionfetch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/loonghao/vx/internal/provider"
)

// Fetcher is the resolver-facing entry point: Versions resolves a Runtime's
// available version list, honoring the cache, VX_OFFLINE, and VX_REFRESH.
type Fetcher struct {
	registry *Registry
	cache    *Cache
}

// NewFetcher builds a Fetcher backed by registry and cache.
func NewFetcher(registry *Registry, cache *Cache) *Fetcher {
	return &Fetcher{registry: registry, cache: cache}
}

// Versions returns runtimeName's available versions, per spec.Source, using
// the cache unless VX_REFRESH is set. When VX_OFFLINE is set and no cache
// entry exists, it returns an error rather than reaching the network.
func (f *Fetcher) Versions(ctx context.Context, runtimeName string, spec provider.VersionSourceSpec) ([]provider.VersionInfo, error) {
	forceRefresh := os.Getenv("VX_REFRESH") != ""
	offline := os.Getenv("VX_OFFLINE") != ""

	if !forceRefresh {
		if cached, ok := f.cache.Get(runtimeName); ok {
			return cached, nil
		}
	}

	if offline {
		return nil, fmt.Errorf("no cached versions for %q and VX_OFFLINE is set", runtimeName)
	}

	versions, err := f.registry.Fetch(ctx, spec)
	if err != nil {
		return nil, err
	}

	// Cache writes are best-effort: a failure to persist shouldn't fail an
	// otherwise-successful fetch.
	_ = f.cache.Put(runtimeName, versions, time.Now())

	return versions, nil
}
