package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/collectfs/collectfs/internal/adapter/inbound/httpapi"
	"github.com/collectfs/collectfs/internal/adapter/inbound/natsbridge"
	"github.com/collectfs/collectfs/internal/adapter/outbound/localdisk"
	"github.com/collectfs/collectfs/internal/adapter/outbound/memback"
	"github.com/collectfs/collectfs/internal/adapter/outbound/memstore"
	"github.com/collectfs/collectfs/internal/adapter/outbound/natspub"
	"github.com/collectfs/collectfs/internal/adapter/outbound/redistore"
	"github.com/collectfs/collectfs/internal/adapter/outbound/s3store"
	"github.com/collectfs/collectfs/internal/config"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/service"
	"github.com/collectfs/collectfs/internal/worker"
)

// App assembles the metadata store, storage backends, collections,
// replication worker, and inbound surfaces from one configuration.
type App struct {
	cfg       *config.Config
	registry  *service.Registry
	server    *httpapi.Server
	worker    *worker.FileWorker
	publisher *natspub.Publisher
	bridge    *natsbridge.Bridge
	natsConn  *nats.Conn
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Metadata store
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	// 4. Storage backends
	adapters, err := buildBackends(context.Background(), cfg.Backends)
	if err != nil {
		return nil, err
	}

	// 5. Collections
	registry := service.NewRegistry()
	for _, colCfg := range cfg.Collections {
		collection, err := buildCollection(colCfg, store, adapters)
		if err != nil {
			return nil, err
		}
		registry.Register(collection)
	}

	// 6. Replication worker
	fileWorker, err := worker.New(registry, worker.Config{
		Lanes:         cfg.Worker.Lanes,
		QueueSize:     cfg.Worker.QueueSize,
		MaxAttempts:   cfg.Worker.MaxAttempts,
		SweepInterval: time.Duration(cfg.Worker.SweepIntervalMS) * time.Millisecond,
		SpoolDir:      cfg.Worker.SpoolDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init replication worker: %w", err)
	}

	// 7. NATS (optional)
	var natsConn *nats.Conn
	var publisher *natspub.Publisher
	var bridge *natsbridge.Bridge
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.Name("collectfs"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		publisher = natspub.New(natsConn)
		bridge = natsbridge.New(natsConn, registry)
	}

	// 8. HTTP Server
	httpServer := httpapi.NewServer(httpapi.Config{
		Addr:               cfg.Server.Addr,
		BodyLimit:          int(cfg.Server.MaxUploadSize),
		AuthSecret:         cfg.Auth.Secret,
		AnonymousPrincipal: cfg.Auth.Anonymous,
	}, registry)

	return &App{
		cfg:       cfg,
		registry:  registry,
		server:    httpServer,
		worker:    fileWorker,
		publisher: publisher,
		bridge:    bridge,
		natsConn:  natsConn,
	}, nil
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())

	// The worker must be running before it observes commits.
	a.worker.Start(ctx)
	for _, collection := range a.registry.All() {
		collection.Observe(a.worker)
		if a.publisher != nil {
			collection.Observe(a.publisher)
		}
	}

	// Backend watchers feed external changes into the collections.
	for _, collection := range a.registry.All() {
		if err := collection.StartSync(ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to start sync for collection %s: %w", collection.Name(), err)
		}
	}

	if a.bridge != nil {
		if err := a.bridge.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to start nats bridge: %w", err)
		}
	}

	// Start HTTP
	logger.Infow("collectfs starting", "addr", a.cfg.Server.Addr, "collections", a.registry.Names())
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server failed: %w", err)
		logger.Errorw("HTTP server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down")
	cancel()
	if a.bridge != nil {
		a.bridge.Close()
	}
	if err := a.server.Stop(context.Background()); err != nil {
		logger.Errorw("HTTP shutdown error", "error", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	a.worker.Close()
	if a.natsConn != nil {
		a.natsConn.Close()
	}

	return runErr
}

// buildStore selects the metadata store from configuration.
func buildStore(cfg *config.Config) (port.MetadataStore, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return memstore.New(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		return redistore.New(client, "collectfs"), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildBackends constructs every declared storage backend, keyed by name.
func buildBackends(ctx context.Context, cfgs []config.BackendConfig) (map[string]port.StorageAdapter, error) {
	adapters := make(map[string]port.StorageAdapter, len(cfgs))
	for _, backendCfg := range cfgs {
		if backendCfg.Name == "" {
			return nil, fmt.Errorf("backend with empty name")
		}
		if _, dup := adapters[backendCfg.Name]; dup {
			return nil, fmt.Errorf("duplicate backend name %s", backendCfg.Name)
		}

		var adapter port.StorageAdapter
		var err error
		switch backendCfg.Kind {
		case "disk":
			adapter, err = localdisk.New(localdisk.Config{
				Name:  backendCfg.Name,
				Root:  backendCfg.Disk.Root,
				FSync: backendCfg.Disk.FSync,
			})
		case "s3":
			adapter, err = s3store.New(ctx, s3store.Config{
				Name:      backendCfg.Name,
				Endpoint:  backendCfg.S3.Endpoint,
				AccessKey: backendCfg.S3.AccessKey,
				SecretKey: backendCfg.S3.SecretKey,
				Bucket:    backendCfg.S3.Bucket,
				UseSSL:    backendCfg.S3.UseSSL,
			})
		case "memory":
			adapter = memback.New(backendCfg.Name)
		default:
			err = fmt.Errorf("unknown backend kind %q", backendCfg.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build backend %s: %w", backendCfg.Name, err)
		}
		adapters[backendCfg.Name] = adapter
	}
	return adapters, nil
}

// buildCollection resolves the collection's backend references and
// translates its declarative access policy into predicate lists.
func buildCollection(colCfg config.CollectionConfig, store port.MetadataStore, adapters map[string]port.StorageAdapter) (*service.Collection, error) {
	placed := make([]port.StorageAdapter, 0, len(colCfg.Backends))
	for _, backend := range colCfg.Backends {
		adapter, ok := adapters[backend]
		if !ok {
			return nil, fmt.Errorf("collection %s references unknown backend %s", colCfg.Name, backend)
		}
		placed = append(placed, adapter)
	}

	return service.New(colCfg.Name, service.Config{
		Store:     store,
		Adapters:  placed,
		Filter:    colCfg.Filter,
		Access:    buildAccessRules(colCfg.Access),
		ChunkSize: colCfg.ChunkSize,
		Sync:      service.SyncOptions{PartialCopyRemove: colCfg.PartialCopyRemove},
	})
}

// buildAccessRules translates policy entries into predicate lists.
func buildAccessRules(cfg config.AccessConfig) *service.AccessRules {
	rules := service.NewAccessRules()
	appendPolicies(&rules.Insert, cfg.Insert)
	appendPolicies(&rules.Update, cfg.Update)
	appendPolicies(&rules.Remove, cfg.Remove)
	appendPolicies(&rules.Download, cfg.Download)
	appendPolicies(&rules.Fetch, cfg.Fetch)
	return rules
}

func appendPolicies(list *service.PredicateList, entries []string) {
	for _, entry := range entries {
		switch {
		case entry == "anyone":
			list.Append(service.AllowAnyone())
		case entry == "authenticated":
			list.Append(service.AllowAuthenticated())
		case strings.HasPrefix(entry, "!"):
			list.Append(service.DenyPrincipals(strings.TrimPrefix(entry, "!")))
		case entry != "":
			list.Append(service.AllowPrincipals(entry))
		}
	}
}
