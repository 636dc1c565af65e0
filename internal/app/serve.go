package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nara.lk/portal/internal/httpapi"
	"nara.lk/portal/internal/jobs"
	"nara.lk/portal/internal/logging"
)

type serveOptions struct {
	host            string
	port            int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Echo API server",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.port <= 0 || opts.port > 65535 {
				return usageErrorf("--port must be between 1 and 65535")
			}
			return runServe(flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "0.0.0.0", "Host interface to bind")
	cmd.Flags().IntVar(&opts.port, "port", 8090, "HTTP port")
	cmd.Flags().DurationVar(&opts.readTimeout, "read-timeout", 10*time.Second, "HTTP read timeout")
	cmd.Flags().DurationVar(&opts.writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	return cmd
}

func runServe(flags *globalFlags, opts *serveOptions) error {
	connectCtx, connectCancel := context.WithTimeout(context.Background(), flags.timeout)
	defer connectCancel()

	rt, err := newRuntime(connectCtx, flags, runtimeOptions{database: databaseOptional, migrate: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	tracker, err := jobs.NewTracker(rt.translator, rt.cfg.JobRetention, logging.Component(rt.logger, "jobs"))
	if err != nil {
		return err
	}
	defer tracker.Close()

	deps := httpapi.Deps{
		Translator: rt.translator,
		Jobs:       tracker,
		Providers:  rt.registry,
	}
	if rt.pool != nil {
		deps.Records = rt.manager
		deps.Database = rt.pool
	} else {
		rt.logger.Warn().Msg("DATABASE_URL not set; record routes disabled")
	}

	srv, err := httpapi.NewServer(deps, logging.Component(rt.logger, "http"), httpapi.Options{
		Host:            opts.host,
		Port:            opts.port,
		ReadTimeout:     opts.readTimeout,
		WriteTimeout:    opts.writeTimeout,
		ShutdownTimeout: opts.shutdownTimeout,
		AllowOrigins:    rt.cfg.CORSAllowedOriginsList(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		rt.logger.Error().Err(err).Str("host", opts.host).Int("port", opts.port).Msg("server failed")
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
