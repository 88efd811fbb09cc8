package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/naileastudio/salonpos/internal/catalog"
	"github.com/naileastudio/salonpos/internal/config"
	"github.com/naileastudio/salonpos/internal/customers"
	"github.com/naileastudio/salonpos/internal/httpx"
	kafkax "github.com/naileastudio/salonpos/internal/kafka"
	"github.com/naileastudio/salonpos/internal/orders"
	"github.com/naileastudio/salonpos/internal/postgres"
	"github.com/naileastudio/salonpos/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pCompleted := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCompleted, 1024)
	pCompleted.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	// Core
	engine := &orders.Engine{
		Store: &orders.Repo{DB: db},
		Producers: orders.Producers{
			Created:   pCreated,
			Completed: pCompleted,
			Cancelled: pCancelled,
		},
		ServiceName: cfg.ServiceName,
	}
	cache := catalog.NewServicesCache(cfg.ServiceCacheTTL)

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Engine: engine, Redis: rdb}).Register(router)
	(&httpx.CatalogHandler{Store: &catalog.Repo{DB: db}, Cache: cache}).Register(router)
	(&httpx.CustomersHandler{Store: &customers.Repo{DB: db}}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pCompleted, pCancelled} {
		p.Close() // close inbox -> flush & close writer
		p.WaitClosed()
	}
	cancel()
}
