package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/internal/api"
	"github.com/imamik/stratus/internal/config"
	"github.com/imamik/stratus/internal/instances"
	"github.com/imamik/stratus/internal/logging"
	"github.com/imamik/stratus/internal/orchestration"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/platform/docker"
	hcloudplatform "github.com/imamik/stratus/internal/platform/hcloud"
	"github.com/imamik/stratus/internal/platform/s3"
	"github.com/imamik/stratus/internal/plugin/vanilla"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
	"github.com/imamik/stratus/internal/util/naming"
)

// Factory function variables for serve - can be replaced in tests.
var (
	loadConfig = config.Load
	newLogger  = logging.NewStderr
	listen     = func(addr string) (net.Listener, error) {
		return net.Listen("tcp", addr)
	}
)

// Serve runs the API server until ctx is canceled.
func Serve(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	ctx = logr.NewContext(ctx, log)

	handler, cleanup, err := buildServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ln, err := listen(cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return logr.NewContext(context.Background(), log) },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("stratus API listening",
			"address", ln.Addr().String(),
			"store", cfg.Store.Backend,
			"substrate", cfg.Substrate.Provider,
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}

// buildServer wires store, substrate, engines and orchestrator behind the
// HTTP handler. cleanup waits for background operations and closes the store.
func buildServer(ctx context.Context, cfg *config.Config, log logr.Logger) (http.Handler, func(), error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	engine, err := vanilla.New(cfg.Plugins.Vanilla)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to build vanilla plugin: %w", err)
	}
	registry, err := provisioning.NewRegistry(engine)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	events := provisioning.NewEventLog(cfg.Server.EventHistory)
	observer := provisioning.Observers{provisioning.NewLogObserver(log.WithName("events")), events}

	substrate, images, managerOpts, err := openSubstrate(cfg, engine)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	managerOpts = append(managerOpts, instances.WithObserver(observer))
	manager := instances.NewManager(platform.Instrument(cfg.Substrate.Provider, substrate), st, managerOpts...)

	orchOpts := []orchestration.Option{
		orchestration.WithObserver(observer),
		orchestration.WithMetrics(cfg.Metrics.Enabled),
	}
	if images != nil {
		orchOpts = append(orchOpts, orchestration.WithImageRegistry(images))
	}
	orch := orchestration.New(st, registry, manager, orchOpts...)

	srv := api.New(orch,
		api.WithEvents(events),
		api.WithLogger(log.WithName("api")),
		api.WithMetrics(cfg.Metrics.Enabled),
	)

	cleanup := func() {
		// Background operations finish against the store before it closes.
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := orch.Shutdown(waitCtx); err != nil {
			log.Error(err, "background operations did not finish")
		}
		if err := st.Close(); err != nil {
			log.Error(err, "failed to close store")
		}
	}
	return srv.Handler(), cleanup, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Documents, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return store.NewMemory(), nil

	case config.StorePostgres:
		pg, err := store.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return store.New(pg), nil

	case config.StoreS3:
		c, err := s3.NewClient(ctx, s3.Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		}, cfg.S3.Bucket)
		if err != nil {
			return nil, err
		}
		if err := c.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store.New(store.NewS3Backend(c, cfg.S3.Prefix)), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// openSubstrate returns the substrate, its image registry when it has one,
// and the instance manager options it needs.
func openSubstrate(cfg *config.Config, engine *vanilla.Plugin) (platform.Substrate, platform.ImageRegistry, []instances.Option, error) {
	switch cfg.Substrate.Provider {
	case config.SubstrateHCloud:
		hc := cfg.Substrate.HCloud
		opts := []hcloudplatform.ClientOption{hcloudplatform.WithDefaults(hc.Location, hc.SSHKeys)}
		if cfg.Timeouts != nil {
			opts = append(opts, hcloudplatform.WithTimeouts(cfg.Timeouts))
		}
		c := hcloudplatform.NewRealClient(hc.Token, opts...)
		return c, c, nil, nil

	case config.SubstrateDocker:
		d := cfg.Substrate.Docker
		sub, err := docker.New(d.Host, docker.WithNetwork(d.Network), docker.WithDefaultImage(d.DefaultImage))
		if err != nil {
			return nil, nil, nil, err
		}
		return sub, nil, []instances.Option{
			instances.WithNamePrefix(naming.ContainerPrefix),
			instances.WithSSHKeys(engine.PublicKey()),
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown substrate %q", cfg.Substrate.Provider)
}
