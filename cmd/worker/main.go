package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/isoroute/internal/adapters/contour"
	natsadapter "github.com/samirrijal/isoroute/internal/adapters/nats"
	"github.com/samirrijal/isoroute/internal/adapters/osrm"
	"github.com/samirrijal/isoroute/internal/adapters/postgres"
	"github.com/samirrijal/isoroute/internal/adapters/valkey"
	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
	"github.com/samirrijal/isoroute/internal/core/usecases"
	"github.com/samirrijal/isoroute/internal/pkg/config"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
	"github.com/samirrijal/isoroute/internal/pkg/telemetry"
	"github.com/samirrijal/isoroute/internal/workflows"
)

func main() {
	cfg, err := config.Load("isoroute-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	router := osrm.NewClient(osrm.Config{
		BaseURL: cfg.OSRM.BaseURL,
		Profile: cfg.OSRM.Profile,
		Timeout: cfg.OSRMTimeout(),
	})

	var (
		archive ports.IsochroneRepository
		cache   ports.CacheService
		events  ports.EventPublisher
	)
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		archive = postgres.NewIsochroneRepo(db)
	}
	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer c.Close()
			cache = c
		}
	}
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	svc := usecases.NewIsochroneService(router, contour.New(), cache, events, archive)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		// Batches share one routing server; run them one at a time.
		MaxConcurrentActivityExecutionSize: 1,
	})
	w.RegisterWorkflow(workflows.IsochroneBatchWorkflow)
	w.RegisterActivity(&workflows.IsochroneActivities{Isochrones: svc})

	// Bridge queued batch requests from NATS into workflows.
	if cfg.NATS.Enabled {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer sub.Close()

		err = sub.SubscribeIsochroneJobs(ctx, func(ctx context.Context, job *domain.IsochroneJob) error {
			return startBatch(ctx, c, cfg.Temporal.TaskQueue, job)
		})
		if err != nil {
			log.Fatalf("subscribe jobs: %v", err)
		}
	}

	slog.Info("isochrone worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startBatch(ctx context.Context, c client.Client, taskQueue string, job *domain.IsochroneJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "isochrone-batch-" + job.ID,
		TaskQueue: taskQueue,
	}, workflows.IsochroneBatchWorkflow, workflows.BatchInput{
		JobID:   job.ID,
		Origins: job.Origins,
		Params:  job.Params,
	})
	if err != nil {
		return fmt.Errorf("start batch %s: %w", job.ID, err)
	}
	slog.Info("batch started", "job_id", job.ID, "workflow_id", run.GetID(), "run_id", run.GetRunID(), "origins", len(job.Origins))
	return nil
}
