// Command relay publishes follow events from the outbox table to Kafka.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/Keril-png/hw05-final/internal/config"
	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error.Fatalf("load config: %v", err)
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Error.Fatalf("connect database: %v", err)
	}

	var sender service.Sender = service.LogSender
	if len(cfg.Kafka.Brokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn.Printf("close kafka producer: %v", err)
			}
		}()
		sender = service.KafkaSender(producer)
	} else {
		log.Warn.Printf("no kafka brokers configured, events are only logged")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info.Printf("outbox relay started (batch=%d interval=%s topic=%s)", cfg.Outbox.BatchSize, cfg.Outbox.Interval, cfg.Kafka.Topic)
	service.NewOutboxRelayer(db, cfg.Outbox.BatchSize, cfg.Outbox.Interval, sender).Run(ctx)
	log.Info.Printf("outbox relay stopped")
}
