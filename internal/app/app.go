package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapp "github.com/lostmyescape/opsconsole/internal/app/http"
	"github.com/lostmyescape/opsconsole/internal/config"
	"github.com/lostmyescape/opsconsole/internal/domain/models"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/dashboard"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/health"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/listing"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/searches"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/create"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/get"
	"github.com/lostmyescape/opsconsole/internal/http-server/handlers/tickets/update"
	"github.com/lostmyescape/opsconsole/internal/http-server/middleware/adminauth"
	mwLogger "github.com/lostmyescape/opsconsole/internal/http-server/middleware/logger"
	"github.com/lostmyescape/opsconsole/internal/lib/kafka"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
	"github.com/lostmyescape/opsconsole/internal/services/metrics"
	"github.com/lostmyescape/opsconsole/internal/services/notify"
	"github.com/lostmyescape/opsconsole/internal/services/query"
	"github.com/lostmyescape/opsconsole/internal/services/tickets"
	"github.com/lostmyescape/opsconsole/internal/storage/clickhouse"
	"github.com/lostmyescape/opsconsole/internal/storage/memory"
	"github.com/lostmyescape/opsconsole/internal/storage/postgres"
	redisstore "github.com/lostmyescape/opsconsole/internal/storage/redis"
)

// Store is everything the API needs from the primary record store.
type Store interface {
	query.Store
	metrics.Source
	tickets.Store
	searches.DetailsProvider
	health.Pinger
}

const kafkaReadyTimeout = 60 * time.Second

type App struct {
	HTTPSrv *httpapp.App
	Handler http.Handler

	log     *slog.Logger
	closers []func() error
}

// New connects every backend cfg asks for and assembles the HTTP API.
// Unreachable required backends panic, the same as a bad config.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	a := &App{log: log}

	var store Store
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		store = memory.New()
	default:
		pg := postgres.MustConnect(ctx, cfg, log)
		a.closers = append(a.closers, pg.Close)
		store = pg
	}

	var source metrics.Source = store
	if cfg.Clickhouse.Enabled {
		conn := clickhouse.MustConnect(ctx, log, cfg.Clickhouse)
		a.closers = append(a.closers, conn.Close)
		source = clickhouse.NewSource(conn)
	}

	var marks notify.Marker
	if cfg.RedisStorage.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, cfg)
		if err != nil {
			// marks fall back to process-local dedupe
			log.Error("redis unavailable", sl.Err(err))
		} else {
			a.closers = append(a.closers, rdb.Close)
			marks = redisstore.NewDispatchMarks(rdb, cfg.RedisStorage.DedupeTTL)
		}
	}

	var transport notify.Transport
	switch cfg.Notify.Transport {
	case config.TransportKafka:
		kafka.MustWaitReady(ctx, log, cfg.Kafka.Brokers, kafkaReadyTimeout)
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Notify.SendTimeout)
		a.closers = append(a.closers, producer.Close)
		transport = notify.NewKafkaTransport(producer)
	default:
		transport = notify.NewLogTransport(log)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	clock := clockwork.NewRealClock()
	loc := cfg.Metrics.Location()

	listOpts := query.Options{
		DefaultPerPage: cfg.Pagination.DefaultPerPage,
		MaxPerPage:     cfg.Pagination.MaxPerPage,
		Location:       loc,
	}

	engine := query.New(log, store, listOpts)
	aggregator := metrics.New(log, source, clock, metrics.Options{
		TopN:             cfg.Metrics.TopN,
		DailyDays:        cfg.Metrics.DailyDays,
		WeeklyDays:       cfg.Metrics.WeeklyDays,
		DefaultRangeDays: cfg.Metrics.DefaultRangeDays,
		Location:         loc,
	})
	dispatcher := notify.New(log, transport, marks, cfg.Notify.SendTimeout, reg)
	manager := tickets.New(log, store, dispatcher, clock)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/health", health.New(log, store))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	router.Route("/admin", func(r chi.Router) {
		if cfg.Admin.JWTSecret != "" {
			r.Use(adminauth.New(cfg.Admin.JWTSecret, log).Handler)
		} else {
			log.Warn("admin.jwt_secret is empty, /admin is unauthenticated")
		}

		r.Get("/dashboard", dashboard.New(log, aggregator, loc))
		r.Get("/partners", dashboard.Partners(log, aggregator, loc, listOpts))

		r.Get("/searches", listing.New(log, models.KindSearches, engine, listOpts))
		r.Get("/searches/{id}", searches.Details(log, store))
		r.Get("/clicks", listing.New(log, models.KindClicks, engine, listOpts))
		r.Get("/users", listing.New(log, models.KindUsers, engine, listOpts))
		r.Get("/tickets", listing.New(log, models.KindTickets, engine, listOpts))
		r.Get("/tickets/{id}", get.New(log, manager))
		r.Put("/tickets/{id}", update.New(log, manager, cfg.Notify.ReportTimeout))
	})

	router.Route("/users/{id}", func(r chi.Router) {
		r.Get("/tickets", listing.UserTickets(log, engine))
		r.Post("/tickets", create.New(log, manager))
	})

	a.Handler = router
	a.HTTPSrv = httpapp.New(log, cfg.HTTPServer, router)

	return a
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("failed to close backend", sl.Err(err))
		}
	}
}
