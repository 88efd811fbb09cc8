package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/naileastudio/salonpos/internal/config"
	kafkax "github.com/naileastudio/salonpos/internal/kafka"
	"github.com/naileastudio/salonpos/internal/orders"
	"github.com/naileastudio/salonpos/internal/redisx"
	"github.com/naileastudio/salonpos/internal/statusproj"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &statusproj.Service{
		Cache:       statusproj.RedisCache{C: rdb},
		ServiceName: cfg.ServiceName + "-statusproj",
	}

	group := getenv("STATUSPROJ_GROUP", "statusproj-svc")
	workers := mustAtoi(os.Getenv("STATUSPROJ_WORKERS"), "4")

	topics := []string{
		orders.TopicOrderCreated,
		orders.TopicOrderCompleted,
		orders.TopicOrderCancelled,
	}

	var wg sync.WaitGroup
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			log.Printf("statusproj consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumers...")
	cancel()
	wg.Wait()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
