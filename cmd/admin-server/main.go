package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier-admin/internal/admin"
	"github.com/atelierhq/atelier-admin/internal/auth"
	"github.com/atelierhq/atelier-admin/internal/events"
	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/internal/orderform"
	"github.com/atelierhq/atelier-admin/internal/records"
	"github.com/atelierhq/atelier-admin/internal/websocket"
)

func main() {
	godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(parseLevel(getEnv("LOG_LEVEL", "info")))

	port := getEnv("ADMIN_PORT", "8080")
	gatewayURL := getEnv("GATEWAY_URL", "http://localhost:8090")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	sessionTTL := parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour)

	gatewayClient := gateway.NewClient(gatewayURL, logger)
	store := records.NewStore(gatewayClient, logger)
	controller := orderform.NewController(store, logger)

	sessions := auth.NewSessionStore(sessionTTL)
	authService := auth.NewService(store, sessions, logger)

	handler := admin.NewHandler(store, controller, authService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	handler.SetBroadcaster(hub)

	// Kafka is optional: without brokers the server still works, saves just
	// broadcast directly to local dashboards.
	var producer *events.Producer
	var consumer *events.Consumer
	if kafkaBrokers != "" {
		var err error
		producer, err = events.NewProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		handler.SetPublisher(producer)

		consumer, err = events.NewConsumer(kafkaBrokers, "atelier-admin-dashboards", hub, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka consumer")
		}
		go func() {
			logger.WithField("brokers", kafkaBrokers).Info("Starting order event consumer")
			if err := consumer.Start(ctx); err != nil {
				logger.WithError(err).Error("Order event consumer stopped")
			}
		}()
	} else {
		logger.Info("KAFKA_BROKERS not set - order events disabled, using direct broadcast")
	}

	router := mux.NewRouter()
	handler.Register(router)
	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    port,
			"gateway": gatewayURL,
		}).Info("Starting atelier admin server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.WithError(err).Error("Failed to close Kafka consumer")
		}
	}

	logger.Info("Server gracefully stopped")
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func corsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
