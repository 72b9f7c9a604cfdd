// @title SmartCamera Hub API
// @version 1.0.0
// @description Ingests AI detection results, fans them out to live viewers over websockets and publishes camera lifecycle events to the message broker
// @BasePath /
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"smartcamera-hub/internal/api"
	"smartcamera-hub/internal/api/grpchealth"
	"smartcamera-hub/internal/config"
	"smartcamera-hub/internal/logging"
	"smartcamera-hub/internal/services"
)

func main() {
	// Bootstrap logging before config so load errors are readable
	logging.Setup(os.Stderr, "info", "console")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var extra []io.Writer
	if cfg.LogdyEnabled {
		w, _, err := logging.StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy UI disabled")
		} else {
			extra = append(extra, w)
		}
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat, extra...)

	log.Info().
		Str("instance_id", cfg.InstanceID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("exchange", cfg.BrokerExchange).
		Msg("Starting SmartCamera hub")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BrokerConnectTimeout)
	sc, err := services.NewServiceContainer(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	server := api.NewServer(cfg, sc)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	var health *grpchealth.Server
	if cfg.GRPCHealthEnabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCHealthPort))
		if err != nil {
			log.Fatal().Err(err).Int("port", cfg.GRPCHealthPort).Msg("Failed to listen for gRPC health")
		}
		health = grpchealth.New(sc, cfg.GRPCHealthInterval, logging.NewServiceLogger(cfg, "grpc-health"))
		go func() {
			if err := health.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error().Err(err).Msg("gRPC health server stopped")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if health != nil {
		health.Stop()
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
