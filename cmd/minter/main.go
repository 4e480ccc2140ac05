package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/geoquest/internal/adapters/minter"
	natsadapter "github.com/samirrijal/geoquest/internal/adapters/nats"
	"github.com/samirrijal/geoquest/internal/adapters/valkey"
	"github.com/samirrijal/geoquest/internal/bootstrap"
	"github.com/samirrijal/geoquest/internal/core/domain"
	"github.com/samirrijal/geoquest/internal/core/ports"
	"github.com/samirrijal/geoquest/internal/pkg/config"
	"github.com/samirrijal/geoquest/internal/pkg/logging"
	"github.com/samirrijal/geoquest/internal/pkg/telemetry"
	"github.com/samirrijal/geoquest/internal/workflows"
)

// The minter consumes committed-claim events and runs the mint saga on a
// Temporal worker: mint on the backend, release the claim if that fails.
func main() {
	cfg, err := config.Load("geoquest-minter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// The ledger may live in Valkey; connect only when it does.
	var cache *valkey.Cache
	if cfg.Ledger.Backend == "valkey" {
		if cache, err = valkey.New(cfg.Valkey.Addr); err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer cache.Close()
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, cache)
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer stores.Close()

	// Release events are best effort.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats publisher unavailable, release events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}
	svc := bootstrap.NewServices(cfg, stores, cache, events)

	// Temporal
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.MintClaimWorkflow)
	w.RegisterActivity(&workflows.MintActivities{
		Minter: minter.New(minter.Config{
			BaseURL: cfg.Minter.BaseURL,
			Timeout: cfg.Minter.Timeout,
			Rate:    cfg.Minter.Rate,
			Burst:   cfg.Minter.Burst,
		}),
		Claims: svc.Claims,
	})

	// NATS → workflow starts
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	dispatcher := &workflows.Dispatcher{Starter: tc, TaskQueue: cfg.Temporal.TaskQueue}
	handle := func(ctx context.Context, event *domain.ClaimEvent) error {
		err := dispatcher.HandleClaimCommitted(ctx, event)
		if errors.Is(err, workflows.ErrIncompleteEvent) {
			slog.Warn("dropping unmintable claim event", "metadata_id", event.Claim.MetadataID, "error", err)
			return nil
		}
		return err
	}
	if err := sub.SubscribeClaimCommitted(ctx, handle); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	stopWorker := make(chan interface{})
	g.Go(func() error {
		return w.Run(stopWorker)
	})
	g.Go(func() error {
		<-gctx.Done()
		close(stopWorker)
		return nil
	})

	slog.Info("minter started", "task_queue", cfg.Temporal.TaskQueue, "minter", cfg.Minter.BaseURL)
	if err := g.Wait(); err != nil {
		slog.Error("minter stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("minter stopped")
}
