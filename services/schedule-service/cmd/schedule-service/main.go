package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/config"
	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/httpx"
	"github.com/nayeem-islam/linguadesk/libs/kafkax"
	otelx "github.com/nayeem-islam/linguadesk/libs/otel"
	"github.com/nayeem-islam/linguadesk/libs/runtime"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/consumer"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/handlers"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/profile"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/reminders"
	"github.com/nayeem-islam/linguadesk/services/schedule-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv(nil)

	service := config.String("SERVICE_NAME", "schedule-service")
	port, err := config.Port("PORT", "8082")
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

	repo := storage.NewScheduleRepository(pool)
	outboxRepo := eventbox.NewOutboxRepository(pool)
	inboxRepo := eventbox.NewInboxRepository(pool)
	reminderRepo := reminders.NewRepository()

	outboxPublisher := eventbox.NewPublisher(pool, outboxRepo, logger, eventbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	backoffSeconds, err := strconv.Atoi(config.String("REMINDER_BACKOFF_SECONDS", "60"))
	if err != nil || backoffSeconds <= 0 {
		backoffSeconds = 60
	}
	reminderWorker := reminders.NewWorker(pool, reminderRepo, outboxRepo, logger, reminders.WorkerConfig{
		Interval:  5 * time.Second,
		BatchSize: 50,
		Backoff:   time.Duration(backoffSeconds) * time.Second,
	})
	go reminderWorker.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "schedule-service")
	if brokers != "" {
		directoryTopics := map[string]eventbox.Handler{
			"directory.teacher.upserted.v1": consumer.TeacherUpserted(repo, logger),
			"directory.student.upserted.v1": consumer.StudentUpserted(repo, logger),
			"directory.course.upserted.v1":  consumer.CourseUpserted(repo, logger),
		}
		for topic, handler := range directoryTopics {
			c := eventbox.NewConsumer(logger, inboxRepo, eventbox.ConsumerConfig{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			}, handler)
			go c.Run(ctx)
		}
	}

	profileProvider, err := profile.NewProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Warn("directory grpc dial failed; grid defaults apply", "err", err)
	}

	scheduleHandler := handlers.NewScheduleHandler(repo, logger, profileProvider)
	availabilityHandler := handlers.NewAvailabilityHandler(repo, outboxRepo, logger)
	classHandler := handlers.NewClassHandler(repo, outboxRepo, logger)

	reminderHours := config.Int("TRIAL_REMINDER_HOURS", 24)
	trialHandler := handlers.NewTrialHandler(repo, outboxRepo, reminderRepo, logger, []time.Duration{
		time.Duration(reminderHours) * time.Hour,
		1 * time.Hour,
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/api/v1/schedule/weekly", scheduleHandler.Weekly)
	mux.HandleFunc("/api/v1/schedule/grid", scheduleHandler.Grid)
	mux.HandleFunc("/api/v1/schedule/availability", availabilityHandler.Put)
	mux.HandleFunc("/api/v1/schedule/classes", classHandler.Create)
	mux.HandleFunc("/api/v1/schedule/trials", trialHandler.Create)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "schedule")
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
