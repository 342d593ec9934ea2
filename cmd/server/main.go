package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternalApril/moonmock/internal/config"
	"github.com/eternalApril/moonmock/internal/logger"
	"github.com/eternalApril/moonmock/internal/server"
	"github.com/eternalApril/moonmock/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("FAILED TO INIT LOGGER: " + err.Error() + "\n") //nolint:errcheck
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("moonmock starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("stream_chunk_size", cfg.Store.StreamChunkSize),
	)

	store := storage.New(
		storage.WithChunkSize(cfg.Store.StreamChunkSize),
		storage.WithLogger(log.Named("storage")),
	)
	engine := server.NewEngine(store, log.Named("engine"))
	srv := server.NewServer(engine, log.Named("server"), cfg.Server.ShutdownTimeout)

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		return
	}
	log.Info("listening on", zap.String("address", address))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx, listener); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}

	log.Info("moonmock stopped", zap.Int("keys", store.Len()))
}
