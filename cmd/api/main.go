package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rapidopay/card-gateway/internal/barcode"
	"github.com/rapidopay/card-gateway/internal/config"
	"github.com/rapidopay/card-gateway/internal/events"
	"github.com/rapidopay/card-gateway/internal/handlers"
	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/repository"
	"github.com/rapidopay/card-gateway/internal/services"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
	"github.com/rapidopay/card-gateway/pkg/logger"
	"github.com/rapidopay/card-gateway/pkg/pg"
	"github.com/rapidopay/card-gateway/pkg/prom"
	"github.com/rapidopay/card-gateway/pkg/redis"
	"github.com/rapidopay/card-gateway/pkg/worker"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	if ns := config.Get().PromNamespace; ns != "" {
		host, _ := os.Hostname()
		if err := prom.Create(host, config.Get().AppEnv, ns); err != nil {
			logger.Error("failed creating metrics", "error", err)
		}
		if addr := config.Get().AppDebugMetricsAddr; addr != "" {
			go prom.ListenAndServer(addr, config.Get().AppDebugMetricsURI)
		}
	}

	stream, err := events.NewStream(redisAdap, events.StreamConfig{
		Name:          config.Get().EventStreamName,
		ConsumerGroup: config.Get().EventConsumerGroup,
		ConsumerName:  config.Get().EventConsumerName,
		PollInterval:  config.Get().EventPollInterval,
		BatchSize:     config.Get().EventBatchSize,
		MaxLen:        config.Get().EventStreamMaxLen,
	})
	if err != nil {
		logger.Error("failed creating event stream", "error", err)
		return
	}

	// Event consumer: committed ledger rows are fanned out to a worker
	// pool that feeds the metrics.
	wm := worker.NewWorkerManager(1024, 4, nil)
	wm.SetWorker(func(workerIndex int, job interface{}) {
		txn, ok := job.(*model.Transaction)
		if !ok {
			return
		}
		kind := "top_up"
		amount := txn.Amount
		if amount < 0 {
			kind = "purchase"
			amount = -amount
		}
		prom.ObserveTransaction(kind, float64(amount))
	})
	go func() {
		if err := wm.Start(); err != nil {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	if err := stream.Consume(func(ctx context.Context, txn *model.Transaction) error {
		wm.Enqueue(txn)
		return nil
	}); err != nil {
		logger.Error("failed starting event consumer", "error", err)
	}

	cardRepo := repository.NewCardRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	cardTypeRepo := repository.NewCardTypeRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	generator := barcode.NewGenerator(rand.NewSource(time.Now().UnixNano()))

	// services
	cardService := services.NewCardService(cardRepo, transactionRepo, cardTypeRepo, generator, stream, nil)
	transferService := services.NewTransferService(cardRepo, cardService)
	cardTypeService := services.NewCardTypeService(cardTypeRepo, cardRepo)
	reportService := services.NewReportService(transactionRepo, cardRepo, nil)
	accountService := services.NewAccountService(accountRepo)
	healthService := services.NewHealthService()

	var guard handlers.IdempotencyGuard
	if !config.Get().IdempotencyDisabled {
		idemConf := services.DefaultIdempotencyConfig()
		if ttl := config.Get().IdempotencyTTL; ttl > 0 {
			idemConf.ProcessedTTL = ttl
		}
		guard = services.NewIdempotencyService(redisAdap, idemConf)
	}

	// v1 handlers
	cardHandler := handlers.NewCardHandler(cardService, transferService, guard)
	cardTypeHandler := handlers.NewCardTypeHandler(cardTypeService)
	reportHandler := handlers.NewReportHandler(reportService)
	accountHandler := handlers.NewAccountHandler(accountService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterCardRoutes(g, cardHandler)
	handlers.RegisterCardTypeRoutes(g, cardTypeHandler)
	handlers.RegisterReportRoutes(g, reportHandler)
	handlers.RegisterAccountRoutes(g, accountHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	stream.Stop()
	wm.Exit()
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
