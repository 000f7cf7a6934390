// Package main is the Operation Worker process: it drains the Operations
// Queue and dispatches each row to the executor for its target backend,
// following the same signal.Notify/graceful-stop shape as cmd/controlplane.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/R3E-Network/service_layer/internal/rpc/codec"

	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/internal/config"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/ops"
	"github.com/R3E-Network/service_layer/internal/platform/database"
	"github.com/R3E-Network/service_layer/internal/platform/k8sclient"
	"github.com/R3E-Network/service_layer/internal/platform/lifecycle"
	"github.com/R3E-Network/service_layer/internal/queue"
	"github.com/R3E-Network/service_layer/internal/worker"
	"github.com/R3E-Network/service_layer/internal/worker/executor"
	"github.com/R3E-Network/service_layer/pkg/authz"
	"github.com/R3E-Network/service_layer/pkg/hoop"
	"github.com/R3E-Network/service_layer/pkg/pangolin"
	"github.com/R3E-Network/service_layer/pkg/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("operationworker", cfg.LogLevel, cfg.LogFormat)
	m := metrics.New("operationworker")

	ctx := context.Background()

	sqlDB, err := database.OpenPool(ctx, cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBConnMaxLifetime)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer sqlDB.Close()

	q, err := queue.New(sqlDB, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("open operations queue")
	}
	defer q.Close()

	azClient, err := authz.New(authz.Config{
		Target:       cfg.AuthServerURL,
		PresharedKey: cfg.SpiceDBPresharedKey,
		Insecure:     cfg.IsDevelopment(),
	})
	if err != nil {
		logger.WithError(err).Fatal("dial authorization store")
	}
	defer azClient.Close()

	executors := map[domain.TargetBackend]executor.Executor{
		domain.BackendSpiceDb: &executor.SpiceDb{Client: azClient},
	}

	if cfg.PangolinBaseURL != "" {
		pangolinClient, err := pangolin.New(pangolin.Config{BaseURL: cfg.PangolinBaseURL, APIKey: cfg.PangolinAPIKey})
		if err != nil {
			logger.WithError(err).Fatal("build pangolin client")
		}
		executors[domain.BackendPangolin] = &executor.Pangolin{Client: pangolinClient}
	}

	if cfg.HoopBaseURL != "" {
		hoopClient, err := hoop.New(hoop.Config{BaseURL: cfg.HoopBaseURL, APIKey: cfg.HoopAPIKey})
		if err != nil {
			logger.WithError(err).Fatal("build hoop client")
		}
		executors[domain.BackendHoop] = &executor.Hoop{Client: hoopClient}
	}

	if clientset, err := k8sclient.New(cfg.KubeconfigPath); err != nil {
		logger.WithError(err).Warn("kubernetes client unavailable; namespace-access operations will fail")
	} else {
		executors[domain.BackendKubernetes] = &executor.Kubernetes{Clientset: clientset}
	}

	w := &worker.Worker{
		Queue:     q,
		Executors: executors,
		Log:       logger.Logger,
		Metrics:   m,
	}

	manager := lifecycle.NewManager()
	if err := manager.Register(w); err != nil {
		logger.WithError(err).Fatal("register worker")
	}
	if err := manager.Start(ctx); err != nil {
		logger.WithError(err).Fatal("start worker")
	}

	opsServer := ops.NewServer(cfg.WorkerOpsAddr, "operationworker", version.FullVersion(), sqlDB, m, logger)
	go func() {
		logger.WithField("addr", cfg.WorkerOpsAddr).Info("ops surface listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops serve")
		}
	}()

	logger.Logger.Info("operation worker running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("ops shutdown")
	}
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("stop worker")
	}
}
