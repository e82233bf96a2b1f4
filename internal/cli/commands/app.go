package commands

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/orm/definition"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/modelsource"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
	"github.com/conduit-lang/metamodel/internal/orm/services"
)

// globalOptions holds the persistent flags of the root command
type globalOptions struct {
	configPath string
	noColor    bool
}

// app is the wiring shared by the commands that build models
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	diag     *diagnostics.Logger
	registry *prometheus.Registry
	provider *services.Provider
	cache    *modelcache.LRUCache
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFrom(opts.configPath)
	}
	return config.Load()
}

// newApp loads the configuration and registers the services a model
// build needs. A logger that cannot be built falls back to a no-op one.
func newApp(opts *globalOptions, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprint(stderr, ui.ConfigError(err.Error(), opts.noColor))
		return nil, err
	}

	log, err := cfg.NewZapLogger()
	if err != nil {
		log = zap.NewNop()
	}

	diag, err := cfg.NewDiagnosticsLogger(log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		diag:     diag,
		registry: prometheus.NewRegistry(),
	}

	a.cache, err = modelcache.NewLRUCache(
		modelcache.WithMaxEntries(cfg.Cache.MaxEntries),
		modelcache.WithSizeLimit(cfg.Cache.SizeLimit),
		modelcache.WithRegisterer(a.registry, "cli"),
		modelcache.WithZap(log),
	)
	if err != nil {
		return nil, err
	}

	b := services.NewBuilder(nil)
	if err := a.register(b); err != nil {
		return nil, err
	}
	a.provider = b.Build()
	return a, nil
}

// register adds the CLI overrides ahead of the core defaults, which keep
// the first registration of every single service
func (a *app) register(b *services.Builder) error {
	steps := []error{
		services.Add(b, services.Scoped, func(services.Resolver) (*diagnostics.Logger, error) {
			return a.diag, nil
		}),
		services.Add(b, services.Singleton, func(services.Resolver) (modelcache.KeyFactory, error) {
			return definition.KeyFactory{}, nil
		}),
		services.Add(b, services.Singleton, func(services.Resolver) (modelcache.Cache, error) {
			return a.cache, nil
		}),
		services.Add(b, services.Singleton, func(r services.Resolver) (*modelsource.ModelSource, error) {
			cache, err := services.Resolve[modelcache.Cache](r)
			if err != nil {
				return nil, err
			}
			keys, err := services.Resolve[modelcache.KeyFactory](r)
			if err != nil {
				return nil, err
			}
			return modelsource.New(cache, keys,
				modelsource.WithRegisterer(a.registry),
				modelsource.WithZap(a.log),
			)
		}),
		b.TryAddCoreServices(),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

// model builds and validates the model of doc in a fresh scope
func (a *app) model(doc *definition.Document) (schema.ReadOnlyModel, error) {
	return services.GetModel(a.provider.CreateScope(), definition.NewContext(doc), false)
}

func (a *app) close() {
	_ = a.log.Sync()
}
