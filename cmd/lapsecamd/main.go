package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"lapsecam/internal/config"
	"lapsecam/internal/daemon"
	"lapsecam/internal/framestore"
	"lapsecam/internal/ipc"
	"lapsecam/internal/logging"
	"lapsecam/internal/session"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := framestore.Open(cfg, logger)
	if err != nil {
		log.Fatalf("open frame store: %v", err)
	}

	controller, err := session.New(cfg, store, logger)
	if err != nil {
		log.Fatalf("create session controller: %v", err)
	}

	d, err := daemon.New(cfg, store, logger, controller)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPathOrDefault(), d, logger)
	if err != nil {
		log.Fatalf("start IPC server: %v", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("lapsecamd shutting down")
}
