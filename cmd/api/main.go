// Command api runs the GamersHub order service.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	_ "gamershub/docs"
	"gamershub/pkg/events"
	"gamershub/pkg/logger"
	"gamershub/pkg/metrics"
	"gamershub/pkg/product"
	"gamershub/pkg/shopapi"
	"gamershub/pkg/store"
	memstore "gamershub/pkg/store/memory"
	"gamershub/pkg/store/postgres"
)

// @title GamersHub API
// @version 1.0
// @description Order service for the GamersHub storefront
// @host localhost:5000
// @BasePath /
func main() {
	logger.Init()
	defer logger.Sync()
	log := logger.Log

	ctx := context.Background()

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(ctx)

	st, err := openStore(ctx, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	seedCatalog(ctx, st, log)

	var sessions shopapi.Sessions
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		sessions = shopapi.NewRedisSessions(redis.NewClient(&redis.Options{Addr: addr}), time.Hour)
	} else {
		log.Warn("REDIS_ADDR not set, admin endpoints disabled")
	}

	var pub events.Publisher = events.Nop{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		k := events.NewKafka(brokers, "orders.completed")
		defer k.Close()
		pub = k
	}

	m := metrics.New()
	api := shopapi.New(st, sessions, pub, m, log)

	r := api.Router()
	r.Handle("/metrics", metrics.Handler())
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":5000"
	}
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("server closed", zap.Error(err))
	}
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// the in-memory store otherwise.
func openStore(ctx context.Context, log *zap.Logger) (store.Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return memstore.New(), nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pg := postgres.New(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// seedCatalog loads the built-in products into an empty catalog.
func seedCatalog(ctx context.Context, st store.Store, log *zap.Logger) {
	existing, err := st.Products(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	for _, p := range product.Seed() {
		if err := st.CreateProduct(ctx, p); err != nil && err != store.ErrDuplicate {
			log.Warn("seed product", zap.String("id", p.ID), zap.Error(err))
		}
	}
	log.Info("catalog seeded", zap.Int("products", len(product.Seed())))
}
