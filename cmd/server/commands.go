package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MimoJanra/AuditPulse/internal/api"
	"github.com/MimoJanra/AuditPulse/internal/config"
	"github.com/MimoJanra/AuditPulse/internal/delivery"
)

var serveWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the recurring delivery trigger",
	RunE:  runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume scheduled delivery jobs from the queue",
	RunE:  runWorker,
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the administrator account from ADMIN_EMAIL and ADMIN_PASSWORD",
	RunE:  runSeedAdmin,
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Enqueue one delivery for every scheduled subscriber",
	RunE:  runTrigger,
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}

	sched, err := delivery.NewScheduler(a.delivery, cfg.Schedule.Interval, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.SetupRouter(a.router()),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		return sched.Stop()
	})
	if serveWorker || cfg.Queue.Backend == config.BackendMemory {
		g.Go(func() error {
			return a.queue.Consume(gctx, a.delivery)
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if cfg.Queue.Backend == config.BackendMemory {
		return errors.New("the memory queue is process-local, run `serve` or choose the amqp or nats backend")
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("worker started", zap.String("backend", cfg.Queue.Backend), zap.Int("workers", cfg.Queue.Workers))
	return a.queue.Consume(ctx, a.delivery)
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	if cfg.Admin.Password == "" {
		return errors.New("ADMIN_PASSWORD is not set")
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.SeedAdmin(cmd.Context(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin account %s is ready\n", cfg.Admin.Email)
	return nil
}

func runTrigger(cmd *cobra.Command, _ []string) error {
	if cfg.Queue.Backend == config.BackendMemory {
		logger.Warn("memory queue selected, jobs enqueued by this process are lost when it exits")
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.delivery.EnqueueDue(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d deliveries\n", n)
	return err
}
