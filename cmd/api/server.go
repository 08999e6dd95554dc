package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billbuddy/internal/api/handlers/auth"
	"billbuddy/internal/api/handlers/groups"
	"billbuddy/internal/api/handlers/notifications"
	mw "billbuddy/internal/api/middlewares"
	"billbuddy/internal/api/routers"
	"billbuddy/internal/config"
	"billbuddy/internal/metrics"
	"billbuddy/internal/notifier"
	"billbuddy/internal/repositories/groupstore"
	"billbuddy/internal/repositories/ledgerstore"
	"billbuddy/internal/repositories/sessionstore"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/internal/repositories/userstore"
	groupsvc "billbuddy/internal/services/groups"
	"billbuddy/internal/services/identity"
	"billbuddy/internal/services/ledger"
	"billbuddy/pkg/cron"
	"billbuddy/pkg/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		utils.Logger.Fatal("invalid configuration: ", err)
	}

	if err := sqlconnect.RunMigrations(cfg.DB); err != nil {
		utils.Logger.Fatal("migrations failed: ", err)
	}

	db, err := sqlconnect.ConnectDb(cfg.DB)
	if err != nil {
		utils.Logger.Fatal("DB connection failed: ", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	sessions := sessionstore.New(ctx, cfg.RedisURL)
	if closer, ok := sessions.(io.Closer); ok {
		defer closer.Close()
	}

	sender, err := newSender(cfg)
	if err != nil {
		utils.Logger.Fatal("notifier setup failed: ", err)
	}
	if closer, ok := sender.(io.Closer); ok {
		defer closer.Close()
	}

	dispatcher := notifier.NewDispatcher(sender, notifier.Options{
		Workers:     cfg.Notifier.Workers,
		QueueSize:   cfg.Notifier.QueueSize,
		MaxAttempts: cfg.Notifier.MaxAttempts,
		Metrics:     m,
	})
	dispatcher.Start(context.Background())

	users := userstore.New()
	gstore := groupstore.New()

	identitySvc := identity.NewService(db, users, sessions, dispatcher, identity.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		TokenSecret:    cfg.TokenSecret,
		VerifyTokenTTL: cfg.VerifyTokenTTL,
		ResetTokenTTL:  cfg.ResetTokenTTL,
		AppURL:         cfg.AppURL,
	})
	ledgerSvc := ledger.NewService(db, ledgerstore.New(), gstore, users, dispatcher,
		ledger.WithMetrics(m),
		ledger.WithSelfSettlementOnly(cfg.SelfSettlementOnly),
	)
	groupSvc := groupsvc.NewService(db, gstore, users)

	scheduler, err := cron.StartCronJob(cfg.ReminderCron, cron.NewReminder(ledgerSvc, dispatcher, cfg.Notifier.Workers))
	if err != nil {
		utils.Logger.Fatal("cron setup failed: ", err)
	}

	handler := routers.Handler(routers.Handlers{
		Auth:          &auth.Handler{Identity: identitySvc, SecureCookie: cfg.CertFile != "" || cfg.IsProduction()},
		Groups:        &groups.GroupHandler{Groups: groupSvc},
		Expenses:      &groups.ExpenseHandler{Ledger: ledgerSvc},
		Settlements:   &groups.SettlementHandler{Ledger: ledgerSvc},
		Notifications: &notifications.Handler{Ledger: ledgerSvc},
		DB:            db,
		Metrics:       m,
		AuthLimiter:   mw.NewRateLimiter(5, 10),
	}, identitySvc)

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "off" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           routers.MetricsRouter(m),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			utils.Logger.WithField("addr", cfg.MetricsAddr).Info("Metrics listener is running")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				utils.Logger.WithError(err).Error("metrics listener stopped")
			}
		}()
	}

	go func() {
		utils.Logger.WithField("addr", cfg.ServerPort).Info("Server is running")
		var err error
		if cfg.CertFile != "" {
			err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Error starting the server: ", err)
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("server shutdown")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			utils.Logger.WithError(err).Error("metrics listener shutdown")
		}
	}
	<-scheduler.Stop().Done()
	dispatcher.Stop()
}

// newSender picks where queued emails go: straight to the mail backend, or
// onto the broker for cmd/notifier-worker to deliver.
func newSender(cfg *config.Config) (notifier.Sender, error) {
	if cfg.Notifier.Transport == "amqp" {
		return notifier.NewAMQPClient(cfg.Notifier)
	}
	return notifier.NewMailer(cfg.Mail)
}
