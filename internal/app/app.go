package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/cart"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/catalog"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/session"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/handler"
	"github.com/Unknumb/SneakerStoreMobile/internal/remote/mindicador"
	"github.com/Unknumb/SneakerStoreMobile/internal/remote/sneakerapi"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/fixture"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/memory"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/postgres"
	"github.com/Unknumb/SneakerStoreMobile/pkg/health"
	"github.com/Unknumb/SneakerStoreMobile/pkg/httpmiddleware"
	"github.com/Unknumb/SneakerStoreMobile/pkg/ratelimit"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("catalog", cfg.Catalog.Source),
	)

	healthSvc := health.New()

	// Persistence.
	var (
		store        kv.Store
		users        user.Repository
		checkoutOpts []order.ServiceOption
	)
	switch cfg.Storage {
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		store = postgres.NewKVStore(pool)
		users = postgres.NewUserRepository(pool)
		checkoutOpts = append(checkoutOpts, order.WithLedger(postgres.NewOrderLedger(pool)))
	default:
		lg.Warn("Using in-memory storage, state is lost on restart")
		store = memory.NewKVStore()
		users = memory.NewUserRepository()
	}

	// Domain stores.
	source, err := catalogSource(cfg, store, lg, m)
	if err != nil {
		return err
	}
	catalogStore, err := catalog.New(source, catalog.Options{
		Logger:         lg.Named("catalog"),
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create catalog")
	}

	var loginLimiter *ratelimit.Limiter
	if cfg.Login.MaxAttempts > 0 {
		loginLimiter = ratelimit.New(ratelimit.Config{Max: cfg.Login.MaxAttempts, Window: cfg.Login.Window})
		loginLimiter.StartCleanup(ctx)
	}
	sessionStore := session.New(store, users, session.Options{
		Logger:  lg.Named("session"),
		Limiter: loginLimiter,
	})
	cartStore := cart.New(cart.WithLogger(lg.Named("cart")))
	checkout := order.NewService(cartStore, sessionStore, cfg.ShippingCost(), lg.Named("checkout"), checkoutOpts...)

	rates := mindicador.NewCache(
		mindicador.NewClient(cfg.Indicator.URL, cfg.Indicator.Timeout, m.TracerProvider()),
		cfg.Indicator.CacheTTL,
	)

	// Warm up: first catalog load, dollar rate and persisted session. None of
	// them is fatal; /readyz reports a catalog that never loaded.
	var g errgroup.Group
	g.Go(func() error {
		if err := catalogStore.Load(ctx); err != nil {
			lg.Error("Initial catalog load failed, serving empty catalog", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if _, err := rates.DollarRate(ctx); err != nil {
			lg.Warn("Dollar rate unavailable", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		restored, err := sessionStore.Restore(ctx)
		switch {
		case err != nil:
			lg.Error("Session restore failed, starting logged out", zap.Error(err))
		case restored:
			lg.Info("Resumed session", zap.String("username", sessionStore.State().Username))
		}
		return nil
	})
	_ = g.Wait()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sessionStore.LoginPrompts():
				lg.Info("Login required for requested action")
			}
		}
	}()

	// Health checks.
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("catalog", time.Second, health.LoadedCheck(func() (time.Time, error) {
		st := catalogStore.Status()
		if st.Count == 0 && st.Err != nil {
			return time.Time{}, st.Err
		}
		return st.At, nil
	}))
	healthSvc.Add(health.Readiness, health.Check{
		Name:             "session-writes",
		Func:             health.BacklogCheck(func() int { return int(sessionStore.Pending()) }, 1000),
		FailureThreshold: 2,
	})
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP.
	h := handler.New(handler.Deps{
		Catalog:  catalogStore,
		Cart:     cartStore,
		Session:  sessionStore,
		Checkout: checkout,
		Rates:    rates,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.Instrument("sneakerstore-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		if err := sessionStore.Close(shutdownCtx); err != nil {
			lg.Error("Session writes not drained", zap.Int64("pending", sessionStore.Pending()), zap.Error(err))
		}
		if n := sessionStore.FailedWrites(); n > 0 {
			lg.Warn("Some session writes failed", zap.Int64("failed", n))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// catalogSource builds the configured product source. With Fallback set,
// failures before the first successful load are answered with the built-in
// catalog.
func catalogSource(cfg *Config, store kv.Store, lg *zap.Logger, m *app.Telemetry) (product.Source, error) {
	var src product.Source
	switch cfg.Catalog.Source {
	case SourceFixture:
		return fixture.Builtin, nil
	case SourceFile:
		src = fixture.File(cfg.Catalog.FixturePath)
	case SourceStored:
		src = fixture.Stored(store)
	default:
		client, err := sneakerapi.NewClient(cfg.Catalog.RemoteURL, sneakerapi.Options{
			Timeout:        cfg.Catalog.Timeout,
			Logger:         lg.Named("sneakerapi"),
			MeterProvider:  m.MeterProvider(),
			TracerProvider: m.TracerProvider(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "create sneaker client")
		}
		src = client
	}
	if !cfg.Catalog.Fallback {
		return src, nil
	}
	return withFallback(src, fixture.Builtin, lg), nil
}

func withFallback(primary, fallback product.Source, lg *zap.Logger) product.Source {
	var loaded atomic.Bool
	return product.SourceFunc(func(ctx context.Context) ([]product.Product, error) {
		products, err := primary.Products(ctx)
		if err == nil {
			loaded.Store(true)
			return products, nil
		}
		if loaded.Load() {
			return nil, err
		}
		lg.Warn("Catalog source failed, using built-in catalog", zap.Error(err))
		return fallback.Products(ctx)
	})
}
