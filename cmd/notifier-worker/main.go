// Command notifier-worker delivers emails that the API published to the
// broker when NOTIFIER_TRANSPORT=amqp.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"billbuddy/internal/config"
	"billbuddy/internal/notifier"
	"billbuddy/pkg/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.Env, cfg.LogLevel)

	mailer, err := notifier.NewMailer(cfg.Mail)
	if err != nil {
		utils.Logger.Fatal("mailer setup failed: ", err)
	}

	client, err := notifier.NewAMQPClient(cfg.Notifier)
	if err != nil {
		utils.Logger.Fatal("AMQP setup failed: ", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Consume(ctx, mailer); err != nil && !errors.Is(err, context.Canceled) {
		utils.Logger.WithError(err).Error("email consumer stopped")
		os.Exit(1)
	}
}
