package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router manages catalog source factories and open sources
type Router struct {
	factories map[string]SourceFactory
	pool      map[string]Source
	mu        sync.RWMutex
}

// NewRouter creates a router with no drivers registered
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]SourceFactory),
		pool:      make(map[string]Source),
	}
}

// NewDefaultRouter registers every built-in driver
func NewDefaultRouter() *Router {
	r := NewRouter()
	r.Register("postgres", NewPostgres)
	r.Register("mysql", NewMySQL)
	r.Register("sqlite", NewSQLite)
	r.Register("mongo", NewMongo)
	return r
}

// Register registers a source factory for a driver name
func (r *Router) Register(driver string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// SupportedDrivers returns the registered driver names
func (r *Router) SupportedDrivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	drivers := make([]string, 0, len(r.factories))
	for driver := range r.factories {
		drivers = append(drivers, driver)
	}
	sort.Strings(drivers)
	return drivers
}

// Get returns the open source stored under key, reconnecting when it is unhealthy
func (r *Router) Get(ctx context.Context, key, driver string, cfg Config) (Source, error) {
	r.mu.RLock()
	if src, ok := r.pool[key]; ok {
		r.mu.RUnlock()
		if err := src.HealthCheck(ctx); err == nil {
			return src, nil
		}
		r.mu.Lock()
		src.Close()
		delete(r.pool, key)
		r.mu.Unlock()
	} else {
		r.mu.RUnlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have connected while we waited
	if src, ok := r.pool[key]; ok {
		if err := src.HealthCheck(ctx); err == nil {
			return src, nil
		}
		src.Close()
		delete(r.pool, key)
	}

	factory, ok := r.factories[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported catalog driver: %s", driver)
	}

	src := factory()
	if err := src.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect catalog: %w", err)
	}

	r.pool[key] = src
	return src, nil
}

// CloseAll closes every open source
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, src := range r.pool {
		src.Close()
		delete(r.pool, key)
	}
}

// PoolSize returns the number of open sources
func (r *Router) PoolSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pool)
}

// Resolver hands out the pooled source for one configured catalog. Each call
// goes through Router.Get, so a catalog that was down is reconnected later.
type Resolver struct {
	router *Router
	key    string
	driver string
	cfg    Config
}

// NewResolver creates a resolver for the catalog stored under key
func NewResolver(router *Router, key, driver string, cfg Config) *Resolver {
	return &Resolver{router: router, key: key, driver: driver, cfg: cfg}
}

// Source returns a healthy source, connecting when needed
func (r *Resolver) Source(ctx context.Context) (Source, error) {
	return r.router.Get(ctx, r.key, r.driver, r.cfg)
}
