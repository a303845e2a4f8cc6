package main

import (
	"context"
	"errors"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/backend"
	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify/smtp"
	"budgetbuddy/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting budgetbuddy mail worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}

	smtpConfig := backendConfig.SMTPConfig()
	if !smtpConfig.Configured() {
		cli.Fatal(logger, "SMTP is not configured, refusing to consume queued emails", errors.New("missing SMTP_HOST or SMTP_FROM"))
	}
	mailWorker := worker.NewMailWorker(smtp.New(smtpConfig), cfg.NotifySendTimeout)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Consuming notification emails",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeEmails(ctx, mailWorker.HandleEmail); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err)
	}

	cli.WaitForShutdown(ctx, done)
	if err := amqpClient.Close(); err != nil {
		logger.Error("AMQP close error", log.FieldError, err)
	}
	logger.Info("Mail worker stopped gracefully")
}
