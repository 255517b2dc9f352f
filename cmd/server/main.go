package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/research-review/internal/app"
	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/events"
	"github.com/ignatzorin/research-review/internal/http/router"
	"github.com/ignatzorin/research-review/internal/interface/http/handler"
	"github.com/ignatzorin/research-review/internal/logger"
	"github.com/ignatzorin/research-review/internal/metrics"
	"github.com/ignatzorin/research-review/internal/service"
	"github.com/ignatzorin/research-review/internal/storage"
	"github.com/ignatzorin/research-review/internal/usecase/evaluator"
	"github.com/ignatzorin/research-review/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}
	mainLog := logger.Component("main")

	policy, err := config.LoadWorkflowPolicy(cfg.WorkflowPolicyPath)
	if err != nil {
		mainLog.WithError(err).Fatal("ошибка загрузки политики процесса")
	}

	// Хранилище и миграции.
	stores, err := app.OpenStores(ctx, cfg, true)
	if err != nil {
		mainLog.WithError(err).Fatal("ошибка подключения к хранилищу")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			mainLog.WithError(err).Warn("ошибка закрытия базы")
		}
	}()

	m := metrics.New()

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	notifications := service.NewNotificationService(stores.Notifications)

	// Получатели событий.
	sinks := []events.Sink{
		events.NewAuditSink(logger.Component("audit")),
		events.NewHubSink(hub),
		events.NewNotificationSink(notifications),
	}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			mainLog.WithError(err).Fatal("ошибка подключения к NATS")
		}
		defer nc.Close()
		sinks = append(sinks, events.NewNATSSink(nc.JetStream(), cfg.NATSSubjectPrefix))
	}
	dispatcher := events.NewDispatcher(m, sinks...)

	proposals, err := app.NewProposalUseCases(policy, stores, dispatcher, m, time.Now)
	if err != nil {
		mainLog.WithError(err).Fatal("ошибка сборки операций")
	}
	directory := evaluator.NewDirectoryUseCase(stores.Evaluators, time.Now)

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	documents, err := storage.NewDocumentStorage(cfg.DocumentStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		mainLog.WithError(err).Fatal("не удалось подготовить хранилище документов")
	}

	healthChecks := map[string]handler.Pinger{}
	if stores.DB != nil {
		healthChecks["database"] = stores.DB
	}

	engine := router.SetupRouter(cfg, router.Handlers{
		Proposals:     handler.NewProposalHandler(proposals),
		Evaluators:    handler.NewEvaluatorHandler(directory),
		Maintenance:   handler.NewMaintenanceHandler(proposals),
		Documents:     handler.NewDocumentHandler(documents),
		Notifications: handler.NewNotificationHandler(notifications),
		WS:            handler.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		Health:        handler.NewHealthHandler(healthChecks),
		Metrics:       m.Handler(),
	}, tokens)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLog.WithError(err).Warn("ошибка остановки http сервера")
		}
	}()

	mainLog.WithField("port", cfg.HTTPPort).WithField("storage", cfg.StorageDriver).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLog.WithError(err).Fatal("сервер завершился с ошибкой")
	}

	// события, принятые до остановки, доставляются до закрытия NATS и базы
	dispatcher.Wait()
	mainLog.Info("сервер остановлен")
}
