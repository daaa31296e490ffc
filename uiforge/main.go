package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/routes"
	"uiforge/uiforge/services/codegen"
	"uiforge/uiforge/services/events"
	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/services/worker"
	"uiforge/uiforge/sources/psql"
	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/sources/storage"
	"uiforge/uiforge/utils/logging"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()

	if err := cfg.Validate(); err != nil {
		logging.ErrorLogger.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	catalog, err := llm.LoadCatalog(cfg.ModelCatalogPath)
	if err != nil {
		logging.ErrorLogger.Error("model catalog error", zap.Error(err))
		os.Exit(1)
	}
	generator := codegen.NewGenerator(codegen.ConfigFrom(cfg), catalog, llm.NewProviders(cfg)...)

	var archive storage.ComponentArchive
	if cfg.ArchiveEnabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		archive = minioClient
	}

	userDAO := dao.NewUserDAO(db.DB)
	sessionDAO := dao.NewSessionDAO(db.DB)
	messageDAO := dao.NewMessageDAO(db.DB)
	componentDAO := dao.NewComponentDAO(db.DB)
	broker := events.NewBroker()

	processor := worker.NewProcessor(worker.ProcessorDeps{
		Sessions:   sessionDAO,
		Messages:   messageDAO,
		Components: componentDAO,
		Generator:  generator,
		Archive:    archive,
		Broker:     broker,
		Window:     cfg.ContextWindow,
	})

	var dispatcher worker.Dispatcher
	if cfg.DurableWorkflows {
		dctx, err := dbos.NewDBOSContext(context.Background(), dbos.Config{
			DatabaseURL: cfg.DatabaseURL,
			AppName:     "uiforge",
		})
		if err != nil {
			logging.ErrorLogger.Error("dbos init error", zap.Error(err))
			os.Exit(1)
		}
		// workflows must be registered before launch so pending ones resume
		dispatcher = worker.NewDBOSDispatcher(dctx, processor)
		if err := dbos.Launch(dctx); err != nil {
			logging.ErrorLogger.Error("dbos launch error", zap.Error(err))
			os.Exit(1)
		}
		defer dbos.Shutdown(dctx, 5*time.Second)
	} else {
		// in-memory jobs did not survive the last exit
		n, err := messageDAO.FailStuck(ctx, time.Now(), map[string]interface{}{
			"text":          worker.ApologyText,
			"error_kind":    models.ErrorKindInternal,
			"error_message": "Generation was interrupted by a restart. Please try again.",
		})
		if err != nil {
			logging.ErrorLogger.Error("fail stuck messages", zap.Error(err))
		} else if n > 0 {
			logging.AppLogger.Warn("failed messages left processing by a previous run", zap.Int64("count", n))
		}
		dispatcher = worker.NewLocalDispatcher(processor, cfg.WorkerCount, cfg.WorkerQueueSize)
	}

	r := routes.NewRouter(cfg, routes.Controllers{
		Auth:       controllers.NewAuthController(userDAO, cfg),
		User:       controllers.NewUserController(userDAO),
		Health:     controllers.NewHealthController(db),
		Chat:       controllers.NewChatController(sessionDAO, messageDAO, dispatcher, catalog, broker, cfg.DefaultModel),
		Sessions:   controllers.NewSessionController(sessionDAO, messageDAO),
		Components: controllers.NewComponentController(componentDAO, archive),
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", cfg.ServerAddr),
			zap.Bool("durable_workflows", cfg.DurableWorkflows), zap.Bool("archive", archive != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// the slowest in-flight job makes two provider calls
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*cfg.ProviderTimeout+5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("worker shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
