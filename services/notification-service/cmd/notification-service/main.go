package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/config"
	"github.com/nayeem-islam/linguadesk/libs/db"
	"github.com/nayeem-islam/linguadesk/libs/eventbox"
	"github.com/nayeem-islam/linguadesk/libs/httpx"
	"github.com/nayeem-islam/linguadesk/libs/kafkax"
	otelx "github.com/nayeem-islam/linguadesk/libs/otel"
	"github.com/nayeem-islam/linguadesk/libs/runtime"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/dispatch"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/email"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/storage"
	"github.com/nayeem-islam/linguadesk/services/notification-service/internal/whatsapp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv(nil)

	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	notificationsRepo := storage.NewRepository(pool)
	inboxRepo := eventbox.NewInboxRepository(pool)
	outboxRepo := eventbox.NewOutboxRepository(pool)

	outboxPublisher := eventbox.NewPublisher(pool, outboxRepo, logger, eventbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(email.Config{
		Host:     config.String("SMTP_HOST", "mailpit"),
		Port:     config.String("SMTP_PORT", "1025"),
		From:     config.String("SMTP_FROM", "no-reply@linguadesk.local"),
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
	})

	waProvider := strings.ToLower(config.String("WHATSAPP_PROVIDER", "noop"))
	waWebhookURL := config.String("WHATSAPP_WEBHOOK_URL", "")
	waWebhookToken := config.String("WHATSAPP_WEBHOOK_TOKEN", "")
	var whatsappSender whatsapp.Sender
	switch waProvider {
	case "webhook":
		whatsappSender = whatsapp.NewWebhookSender(waWebhookURL, waWebhookToken)
	default:
		whatsappSender = whatsapp.NewNoopSender()
	}

	dispatcher := dispatch.NewDispatcher(pool, notificationsRepo, outboxRepo, emailSender, whatsappSender, logger, dispatch.Config{
		FailSuffix: config.String("NOTIFICATION_FAIL_SUFFIX", ""),
	})

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	if brokers != "" {
		topics := map[string]eventbox.Handler{
			"schedule.reminder.due.v1":  dispatcher.ReminderDue,
			"schedule.trial.created.v1": dispatcher.TrialCreated,
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

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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
