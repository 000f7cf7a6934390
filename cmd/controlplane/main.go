// Package main is the control plane's gRPC server entry point: it wires the
// repositories, the Authorization Engine, the Operations Queue, the Instance
// Service/Synchronizer, and the RPC surface together, then serves until a
// shutdown signal arrives — following the teacher's cmd/gateway/main.go
// signal.Notify/Shutdown(ctx) pattern.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"google.golang.org/grpc"

	_ "github.com/R3E-Network/service_layer/internal/rpc/codec"

	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/internal/config"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/ops"
	"github.com/R3E-Network/service_layer/internal/platform/database"
	"github.com/R3E-Network/service_layer/internal/platform/lifecycle"
	"github.com/R3E-Network/service_layer/internal/queue"
	"github.com/R3E-Network/service_layer/internal/repository"
	"github.com/R3E-Network/service_layer/internal/rpc"
	"github.com/R3E-Network/service_layer/internal/service"
	"github.com/R3E-Network/service_layer/pkg/authz"
	"github.com/R3E-Network/service_layer/pkg/identity"
	"github.com/R3E-Network/service_layer/pkg/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("controlplane", cfg.LogLevel, cfg.LogFormat)
	m := metrics.New("controlplane")
	ctx := context.Background()

	sqlDB, err := database.OpenPool(ctx, cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBConnMaxLifetime)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

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
	azEngine := authz.NewEngine(azClient)
	azEngine.Metrics = m

	organizations := repository.New[domain.Organization](db, "organizations", "id", "name", "parent_organization_id", "created_at", "updated_at")
	projects := repository.New[domain.Project](db, "projects", "id", "name", "organization_id", "created_at", "updated_at")
	zones := repository.New[domain.Zone](db, "zones", "id", "name", "provider", "created_at", "updated_at")
	hypervisors := repository.New[domain.Hypervisor](db, "hypervisors", "id", "url", "authorization_token", "storage_name", "node", "organization_id", "zone_id", "created_at", "updated_at")
	instances := repository.New[domain.Instance](db, "instances", "id", "hypervisor_id", "project_id", "distant_id", "name", "status", "cpu_max", "memory_max_bytes", "disk_max_bytes", "cpu_usage", "memory_usage_bytes", "disk_usage_bytes", "ipv4", "created_at", "updated_at")
	networkTypes := repository.New[domain.ZeroTrustNetworkType](db, "zero_trust_network_types", "id", "name", "created_at", "updated_at")
	networks := repository.New[domain.ZeroTrustNetwork](db, "zero_trust_networks", "id", "organization_id", "network_type_id", "name", "created_at", "updated_at")
	invitations := repository.New[domain.Invitation](db, "invitations", "id", "organization_id", "user_id", "state", "created_at", "updated_at")
	serviceAccounts := repository.New[domain.ServiceAccount](db, "service_accounts", "id", "name", "key", "created_at", "updated_at")

	instanceSvc := service.NewInstance(hypervisors, instances, projects, azEngine, q)
	instanceSvc.Metrics = m
	invitationSvc := service.NewInvitation(invitations, azEngine)
	directorySvc := service.NewDirectory(organizations, projects, zones, networkTypes, networks, hypervisors, azEngine)

	var userValidator *identity.Client
	if cfg.AuthServerURL != "" {
		userValidator, err = identity.New(identity.Config{BaseURL: cfg.AuthServerURL})
		if err != nil {
			logger.WithError(err).Fatal("build identity client")
		}
	}
	resolver := &rpc.Resolver{ServiceAccounts: serviceAccounts, Users: userValidator}

	synchronizer := &service.Synchronizer{
		Hypervisors:  hypervisors,
		Instances:    instances,
		Period:       cfg.SynchronizerPeriod,
		HeartbeatURL: cfg.HeartbeatURL,
		Log:          logger.Logger,
	}
	synchronizer.StatusSource = service.HypervisorStatusSource(instanceSvc)

	manager := lifecycle.NewManager()
	if err := manager.Register(synchronizer); err != nil {
		logger.WithError(err).Fatal("register synchronizer")
	}

	if err := manager.Start(ctx); err != nil {
		logger.WithError(err).Fatal("start services")
	}

	server := &rpc.Server{
		Instances:   instanceSvc,
		Invitations: invitationSvc,
		Directory:   directorySvc,
		Projects:    projects,
		Queue:       q,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(rpc.AuthInterceptor(resolver), rpc.ErrorInterceptor()),
	)
	grpcServer.RegisterService(&rpc.ServiceDesc, server)

	lis, err := net.Listen("tcp", cfg.ControlPlaneAddr)
	if err != nil {
		logger.WithError(err).Fatal("listen")
	}

	go func() {
		logger.WithField("addr", cfg.ControlPlaneAddr).Info("controlplane listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.WithError(err).Error("grpc serve")
		}
	}()

	opsServer := ops.NewServer(cfg.OpsAddr, "controlplane", version.FullVersion(), sqlDB, m, logger)
	go func() {
		logger.WithField("addr", cfg.OpsAddr).Info("ops surface listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("ops serve")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("ops shutdown")
	}
	grpcServer.GracefulStop()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("stop services")
	}
}
