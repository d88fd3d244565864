package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"graft/internal/compiler"
	"graft/internal/config"
	"graft/internal/logging"
	"graft/internal/lsp"
	"graft/internal/lspcompiler"
	"graft/internal/metrics"
	"graft/internal/trace"
	"graft/internal/version"
	"graft/internal/watch"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, _ []string) error {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error("lsp: failed to load config", "error", err)
		return err
	}
	addr, err := cmd.Root().PersistentFlags().GetString("metrics-addr")
	if err != nil {
		return err
	}
	return serveLSP(cmd.Context(), cfg, lspIO{in: os.Stdin, out: os.Stdout}, log, addr)
}

type lspIO struct {
	in  io.Reader
	out io.Writer
}

// serveLSP runs the stdio server, the file watcher, the metrics endpoint and
// the compiler until the editor exits or ctx is cancelled.
func serveLSP(ctx context.Context, cfg *config.Config, stdio lspIO, log *logging.Logger, metricsAddr string) error {
	perf := trace.NewPerfLogger(trace.FromContext(ctx), log.Logger)
	setup := perf.CreateEvent("lsp_setup")
	state, err := compiler.LoadSchemas(cfg, log.Logger)
	if err != nil {
		return err
	}
	schemas := compiler.BuildSchemas(cfg, state, setup)
	for name, s := range schemas {
		if diags := s.Diagnostics(); len(diags) > 0 {
			log.Warn("schema has errors", "project", name.String(), "count", len(diags), "first", diags[0].String())
		}
	}

	sub, err := watch.Subscribe(cfg.WatchRoots(), watch.Options{Logger: log.Logger, InitialScan: true})
	if err != nil {
		return err
	}
	setup.Number("projects", len(cfg.Projects))
	perf.CompleteEvent(setup)

	conn := lsp.NewConnection(stdio.out, log.Logger)
	server := lsp.NewServer(stdio.in, conn, lsp.ServerOptions{
		Name:    "graft",
		Version: version.Version,
		Logger:  log.Logger,
	})
	m := metrics.New(metricsAddr != "")
	comp := lspcompiler.New(schemas, cfg, sub, state, server.Messages(), conn,
		lspcompiler.WithLogger(log),
		lspcompiler.WithPerfLogger(perf),
		lspcompiler.WithMetrics(m),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return sub.Run(gctx) })
	if metricsAddr != "" {
		g.Go(func() error {
			// The endpoint is optional; losing it must not stop the server.
			if err := m.Serve(gctx, metricsAddr, log.Logger); err != nil {
				log.Warn("lsp: metrics endpoint stopped", "addr", metricsAddr, "error", err)
			}
			return nil
		})
	}
	g.Go(func() error { return comp.Watch(gctx) })

	err = g.Wait()
	switch {
	case err == nil,
		errors.Is(err, lsp.ErrExit),
		errors.Is(err, lspcompiler.ErrRequestSourceClosed),
		errors.Is(err, context.Canceled) && ctx.Err() != nil:
		log.Info("lsp: stopped")
		return nil
	case errors.Is(err, lsp.ErrExitWithoutShutdown):
		return fmt.Errorf("lsp exit without shutdown")
	default:
		log.Error("lsp: stopped", "error", err)
		return err
	}
}
