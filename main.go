package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/yolink-integration/cmd"
	"github.com/anicoll/yolink-integration/internal/pkg/config"
)

func main() {
	app := &cli.App{
		Name:   "yolink-integration",
		Usage:  "polls yolink sensors and publishes their state",
		Action: cmd.YolinkCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "yolink user access id (uaid)",
				EnvVars: []string{"YOLINK_UAID"},
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "yolink secret key",
				EnvVars: []string{"YOLINK_SECRET_KEY"},
			},
			&cli.StringSliceFlag{
				Name:    "device-ids",
				Usage:   "only poll these device ids, all devices when empty",
				EnvVars: []string{"YOLINK_DEVICE_IDS"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   config.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:    "request-delay",
				Usage:   "pause between device state requests",
				EnvVars: []string{"REQUEST_DELAY"},
				Value:   0,
			},
			&cli.StringFlag{
				Name:    "api-host",
				EnvVars: []string{"YOLINK_API_HOST"},
				Value:   config.DefaultAPIHost,
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				EnvVars: []string{"HTTP_TIMEOUT"},
				Value:   config.DefaultHTTPTimeout,
			},
			&cli.StringFlag{
				Name:    "listen-addr",
				EnvVars: []string{"LISTEN_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
