package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"serialscan/internal/config"
	"serialscan/internal/daemon"
	"serialscan/internal/ipc"
	"serialscan/internal/logging"
	"serialscan/internal/pipeline"
	"serialscan/internal/sessions"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	socketPath := flag.String("socket", "", "override the IPC socket path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := sessions.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return
	}
	defer store.Close()

	pipe, err := pipeline.New(cfg)
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		return
	}
	pipe.Attach("log", pipeline.NewSlogObserver(logging.NewComponentLogger(logger, "pipeline")))

	d, err := daemon.New(cfg, store, pipe, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Stop()

	ipcServer, err := ipc.NewServer(ctx, buildSocketPath(cfg, *socketPath), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("serialscand shutting down")
}
