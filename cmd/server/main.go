package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/tsegai/nexbank/internal/api"
	"github.com/tsegai/nexbank/internal/config"
	"github.com/tsegai/nexbank/internal/infrastructure/kafka"
	"github.com/tsegai/nexbank/internal/infrastructure/redis"
	"github.com/tsegai/nexbank/internal/notifications"
	"github.com/tsegai/nexbank/internal/observability"
	"github.com/tsegai/nexbank/internal/otp"
	core "github.com/tsegai/nexbank/internal/repository/postgres"
	service "github.com/tsegai/nexbank/internal/services"
	"github.com/tsegai/nexbank/internal/session"
	"github.com/tsegai/nexbank/internal/statements"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, _ := observability.Setup("nexbank", cfg.LogLevel, cfg.AppEnv)
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	userRepo := core.NewPostgresUserRepository(db)
	accountRepo := core.NewPostgresAccountRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	producer := kafka.NewProducer([]string{cfg.KafkaBroker})
	defer producer.Close()

	notifier := notifications.NewKafkaNotifier(producer)
	exporter := statements.NewKafkaExporter(producer)
	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	codes := otp.NewService(redisClient, cfg.OTPTTL)

	svc := service.NewTransferService(userRepo, accountRepo, transactionRepo, sessions, codes, notifier, exporter)

	// Email and statement workers run in-process, off the request path.
	mailer := notifications.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail, cfg.SiteName)
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	notificationConsumer := kafka.NewConsumer([]string{cfg.KafkaBroker}, notifications.Topic, "nexbank-notifications", notifications.NewEmailHandler(mailer))
	statementConsumer := kafka.NewConsumer([]string{cfg.KafkaBroker}, statements.Topic, "nexbank-statements",
		statements.NewJobHandler(userRepo, accountRepo, transactionRepo, mailer))
	go notificationConsumer.Consume(consumerCtx)
	go statementConsumer.Consume(consumerCtx)
	defer notificationConsumer.Close()
	defer statementConsumer.Close()

	router := api.SetupRouter(svc, redisClient, cfg.JWTSecret)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
