// README: Entry point; loads config, wires gateways and services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"epsilon/internal/clock"
	"epsilon/internal/config"
	httptransport "epsilon/internal/http"
	"epsilon/internal/infra"
	"epsilon/internal/mail"
	"epsilon/internal/maps"
	"epsilon/internal/modules/bid"
	"epsilon/internal/modules/order"
	"epsilon/internal/modules/payment"
	"epsilon/internal/modules/user"
	"epsilon/internal/notify"
	"epsilon/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := infra.NewLogger(cfg.Environment == "development")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("EPSILON_FIREBASE_PROJECT_ID is required")
	}
	messagingClient, err := infra.NewMessaging(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	geocoder, err := maps.NewGeocodeService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps init: %v", err)
	}

	userStore := user.NewStore(dbPool)
	bidStore := bid.NewStore(dbPool)
	orderStore := order.NewStore(dbPool)
	paymentStore := payment.NewStore(dbPool)

	quickpay := payment.NewQuickPayClient(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.Version, cfg.Payment.TestMode)
	settler := payment.NewService(paymentStore, quickpay, cfg.Payment.CutPercentage, logger)

	dialer := mail.NewSMTPDialer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password)
	mailer := mail.NewMailer(dialer, cfg.Mail.Sender, cfg.Mail.OperatorRecipient, logger)

	notifier := notify.NewFCMNotifier(messagingClient, logger)

	orderSvc := order.NewService(order.Deps{
		Store:     orderStore,
		Bids:      bidStore,
		Users:     userStore,
		Notifier:  notifier,
		Mailer:    mailer,
		Settler:   settler,
		Scheduler: order.TimerScheduler{},
		Tracker:   order.NewRedisTracker(redisClient),
		Geocoder:  geocoder,
		Clock:     clock.System{},
		Config: order.Config{
			GeofenceRadiusMeters: cfg.Coordinator.GeofenceRadiusMeters,
			AutoCancelDelay:      cfg.Coordinator.AutoCancelDelay,
			DeliveryReminder:     cfg.Coordinator.DeliveryReminder,
		},
		Log: logger,
	})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:      orderSvc,
		Credentials: userStore,
		Validator:   validate.New(),
		Clock:       clock.System{},
		Log:         logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
