package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	v1handlers "github.com/formpilot/gateway/internal/api/v1/handlers"
	v1mware "github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/services"
	"github.com/formpilot/gateway/pkg/httpext"
	"github.com/formpilot/gateway/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init()

	svcs, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svcs.Close()

	server := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           setupRouter(svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func setupRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	r.Use(v1mware.RequestLogger)
	r.Use(v1mware.RateLimit("global"))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpext.JsonResponse(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"connections": svcs.GetConnectionManager().GetConnectionCount(),
		})
	}).Methods("GET")

	v1handlers.RegisterV1Routes(r, svcs)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpext.JsonError(w, "Not found", http.StatusNotFound)
	})
	return r
}
