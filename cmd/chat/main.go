package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/okian/rehabchat/internal/app"
	"github.com/okian/rehabchat/internal/chatcli"
	"github.com/okian/rehabchat/internal/config"
	"github.com/okian/rehabchat/pkg/logger"
)

const defaultTurnTimeout = 2 * time.Minute

func main() {
	var (
		serverURL = flag.String("url", "", "Base URL of a running server; empty runs in process")
		showData  = flag.Bool("data", false, "Print the answer data as JSON")
		timeout   = flag.Duration("timeout", defaultTurnTimeout, "Per-question timeout")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		chatcli.ShowHelp()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := chatcli.SetupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	var chat chatcli.Chatter
	if *serverURL != "" {
		chat = chatcli.NewRemote(*serverURL, *timeout)
	} else {
		svc, err := app.FromConfig(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "failed to build chat service", logger.Error(err))
			os.Exit(1)
		}
		if err := svc.Start(ctx); err != nil {
			log.Error(ctx, "failed to start chat service", logger.Error(err))
			os.Exit(1)
		}
		defer svc.Stop()
		chat = svc
	}

	os.Stdout.WriteString("Rehab chat. Type 'reset' to start over, 'quit' or 'exit' to leave.\n")
	err = chatcli.Run(ctx, chat, chatcli.Config{
		In:       os.Stdin,
		Out:      os.Stdout,
		Prompt:   "> ",
		ShowData: *showData,
		Timeout:  *timeout,
		Logger:   log.Named("cli"),
	})
	if err != nil && ctx.Err() == nil {
		log.Error(ctx, "chat session failed", logger.Error(err))
	}
}
