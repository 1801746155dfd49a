package router

import (
	"net/http"

	"med-reminder/internal/adapters/storage/redisstore"
	"med-reminder/internal/adapters/storage/sqlite"
	"med-reminder/internal/domain/medications"
	"med-reminder/internal/domain/status"
	"med-reminder/internal/middleware"
	"med-reminder/internal/platform/config"
	"med-reminder/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Config config.Config
	Logger logger.Logger

	// Opcional: adapter ya construido (tests). Si viene nil se elige
	// por Config.Store.Backend.
	Adapter medications.Store
}

// App agrupa el handler HTTP y las piezas cuyo ciclo de vida maneja
// main: el service (Init/Close) y el engine (para el notifier).
type App struct {
	Handler http.Handler
	Service *medications.Service
	Engine  *status.Engine
}

// New arma la aplicación completa. El backend se elige una sola vez
// acá; después del arranque no hay fallback dinámico entre backends.
func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	adapter := opts.Adapter
	if adapter == nil {
		var err error
		adapter, err = buildAdapter(opts.Config.Store, log)
		if err != nil {
			return nil, err
		}
	}

	svc := medications.NewService(adapter, medications.ServiceOptions{
		Attempts:    opts.Config.Retry.Attempts,
		BaseDelay:   opts.Config.Retry.BaseDelay,
		InitTimeout: opts.Config.Retry.InitTimeout,
		Logger:      log,
	})
	engine := status.NewEngine(svc, status.Options{Logger: log})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Mount("/swagger", httpSwagger.WrapHandler)

	medications.RegisterRoutes(r, svc)
	status.RegisterRoutes(r, engine)

	return &App{Handler: r, Service: svc, Engine: engine}, nil
}

func buildAdapter(cfg config.StoreConfig, log logger.Logger) (medications.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath, sqlite.Options{Logger: log}), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.New(client, redisstore.Options{Logger: log}), nil
	default:
		return nil, medications.NewErrorf(medications.CodePlatformNotSupported,
			"unknown storage backend %q", cfg.Backend)
	}
}
