package main

import (
	"context"
	"net/http"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/config"
	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/httpx"
	"github.com/nayeem-islam/linguadesk/libs/kafkax"
	otelx "github.com/nayeem-islam/linguadesk/libs/otel"
	"github.com/nayeem-islam/linguadesk/libs/runtime"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/consumer"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/handlers"
	"github.com/nayeem-islam/linguadesk/services/directory-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv(nil)

	service := config.String("SERVICE_NAME", "directory-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	repo := storage.NewRepository(pool)
	outboxRepo := eventbox.NewOutboxRepository(pool)
	inboxRepo := eventbox.NewInboxRepository(pool)

	outboxPublisher := eventbox.NewPublisher(pool, outboxRepo, logger, eventbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "directory-service")
	if brokers != "" {
		topics := map[string]eventbox.Handler{
			"schedule.trial.created.v1": consumer.TrialCreated(repo, outboxRepo, logger),
			"auth.school.registered.v1": consumer.SchoolRegistered(repo, logger),
		}
		for topic, handler := range topics {
			c := eventbox.NewConsumer(logger, inboxRepo, eventbox.ConsumerConfig{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			}, handler)
			go c.Run(ctx)
		}
	}

	if err := startGrpcServer(ctx, logger, pool, repo); err != nil {
		logger.Error("grpc server start failed", "err", err)
	}

	directoryHandler := handlers.NewDirectoryHandler(repo, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/directory/profile", directoryHandler.Profile)
	mux.HandleFunc("/api/v1/directory/teachers", directoryHandler.Teachers)
	mux.HandleFunc("/api/v1/directory/courses", directoryHandler.Courses)
	mux.HandleFunc("/api/v1/directory/students", directoryHandler.Students)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "directory")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
