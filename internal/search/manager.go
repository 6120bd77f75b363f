package search

import (
	"context"
	"log/slog"
	"time"
)

// ManagerConfig holds Manager tuning knobs.
type ManagerConfig struct {
	// CacheCapacity is the maximum number of cached responses.
	CacheCapacity int

	// CacheTTL is the max age of a cached response.
	CacheTTL time.Duration

	// ProviderTimeout bounds each provider call, independent of the
	// caller's overall budget.
	ProviderTimeout time.Duration
}

// Manager fronts an ordered list of providers with a cache and fallback.
// A single provider's transient failure never propagates; only the
// exhaustion of the whole cascade does.
type Manager struct {
	providers []Provider
	cache     *lruCache
	timeout   time.Duration
	logger    *slog.Logger
}

// NewManager creates a Manager. Providers are tried in the given order.
func NewManager(cfg ManagerConfig, logger *slog.Logger, providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		cache:     newLRUCache(cfg.CacheCapacity, cfg.CacheTTL),
		timeout:   cfg.ProviderTimeout,
		logger:    logger,
	}
}

// Search resolves the query from cache or the provider cascade.
func (m *Manager) Search(ctx context.Context, query Query) (*Response, error) {
	key := cacheKey(query)

	if cached, ok := m.cache.get(key); ok {
		cached.Cached = true
		m.logger.Debug("Search cache hit",
			slog.String("query", query.Text),
			slog.String("provider", cached.Provider),
		)
		return cached, nil
	}

	var failures []ProviderFailure
	for _, provider := range m.providers {
		resp, err := m.callProvider(ctx, provider, query)
		if err != nil {
			m.logger.Warn("Search provider failed, falling back",
				slog.String("provider", provider.Name()),
				slog.String("query", query.Text),
				slog.String("error", err.Error()),
			)
			failures = append(failures, ProviderFailure{Provider: provider.Name(), Err: err})
			continue
		}

		resp.Provider = provider.Name()
		resp.Cached = false
		m.cache.put(key, *resp)

		m.logger.Info("Search resolved",
			slog.String("provider", provider.Name()),
			slog.String("query", query.Text),
			slog.Int("results", len(resp.Results)),
		)
		return resp, nil
	}

	return nil, &AllProvidersError{Failures: failures}
}

func (m *Manager) callProvider(ctx context.Context, provider Provider, query Query) (*Response, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return provider.Search(ctx, query)
}

// Providers returns the configured provider names in priority order.
func (m *Manager) Providers() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}
