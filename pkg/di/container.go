// Package di provides dependency injection for the query cache stack. It
// wires configuration, the cache service, the HTTP client, the store, and the
// products API into one explicitly constructed object graph; nothing in the
// module relies on import-time side effects.
package di

import (
	"log/slog"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/httpclient"
	"github.com/goliatone/go-query-cache/pkg/configloader"
	"github.com/goliatone/go-query-cache/products"
	"github.com/goliatone/go-query-cache/querycache"
)

// EnvPrefix is the environment variable prefix the container reads, e.g.
// PRODUCTS_BASE_URL, PRODUCTS_CLASSIFY_BASE_URL, PRODUCTS_TIMEOUT.
const EnvPrefix = "PRODUCTS_"

// Config aggregates the settings of every wired component.
type Config struct {
	Cache cache.Config
	HTTP  httpclient.Config
}

// DefaultConfig returns the hard-coded fallbacks for all components.
func DefaultConfig() Config {
	return Config{
		Cache: cache.DefaultConfig(),
		HTTP:  httpclient.DefaultConfig(),
	}
}

// Container manages singleton instances of the cache service, key serializer,
// HTTP client, store, and products API.
type Container struct {
	config        Config
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	client        *httpclient.Client
	store         *querycache.Store
	products      *products.API
}

// NewContainer creates a DI container from the provided configuration.
func NewContainer(cfg Config, opts ...Option) (*Container, error) {
	settings := newSettings(opts)

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(cfg.HTTP, httpclient.WithLogger(settings.logger))
	if err != nil {
		return nil, err
	}

	keySerializer := cache.NewDefaultKeySerializer()
	store := querycache.New(client,
		querycache.WithCacheService(cacheService),
		querycache.WithKeySerializer(keySerializer),
		querycache.WithLogger(settings.logger),
	)

	api, err := products.New(store)
	if err != nil {
		return nil, err
	}

	return &Container{
		config:        cfg,
		cacheService:  cacheService,
		keySerializer: keySerializer,
		client:        client,
		store:         store,
		products:      api,
	}, nil
}

// NewContainerWithDefaults creates a container using the hard-coded fallback
// configuration. Convenience constructor for typical use.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(DefaultConfig(), opts...)
}

// NewContainerFromEnv creates a container whose HTTP configuration is loaded
// from the environment (EnvPrefix-prefixed variables and an optional .env
// file) over the hard-coded fallbacks.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	httpCfg, err := configloader.Load[httpclient.Config](EnvPrefix, httpclient.Defaults())
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.HTTP = httpCfg
	return NewContainer(cfg, opts...)
}

// Option configures a Container.
type Option func(*containerSettings)

type containerSettings struct {
	logger *slog.Logger
}

func newSettings(opts []Option) containerSettings {
	s := containerSettings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger shared by the wired components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *containerSettings) { s.logger = logger }
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config { return c.config }

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Client returns the singleton HTTP client.
func (c *Container) Client() *httpclient.Client { return c.client }

// Store returns the singleton query cache store.
func (c *Container) Store() *querycache.Store { return c.store }

// Products returns the products API facade.
func (c *Container) Products() *products.API { return c.products }
