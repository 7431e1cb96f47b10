package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-dibridge/framework/app"
	"github.com/km-arc/go-dibridge/framework/config"
	"github.com/km-arc/go-dibridge/framework/transform"
)

const usage = `usage: dibridge [-env file] <command>

commands:
  build   transform both graphs and print them
  serve   build, then serve the read-only inspector on INSPECT_ADDR
`

func main() {
	envFile := flag.String("env", ".env", "environment file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg := config.Load(*envFile)
	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger, flag.Arg(0)); err != nil {
		logger.Error("dibridge failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, command string) error {
	kernel, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		return err
	}

	switch command {
	case "build":
		if err := kernel.Build(); err != nil {
			return err
		}
		forward, backward := kernel.Results()
		report(logger, "forward", forward)
		report(logger, "backward", backward)

		for _, g := range []struct {
			title string
			dump  func() ([]byte, error)
		}{
			{"compiled", kernel.CompiledGraph().Dump},
			{"runtime", kernel.RuntimeGraph().Dump},
		} {
			out, err := g.dump()
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s\n", g.title, out)
		}
		return nil

	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return kernel.Serve(ctx, cfg.Inspect.Addr)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func report(logger *zap.Logger, direction string, r *transform.Result) {
	for _, w := range r.Warnings {
		logger.Warn("transform warning",
			zap.String("direction", direction),
			zap.String("service", w.Service),
			zap.String("position", w.Position),
			zap.String("message", w.Message),
		)
	}
	for _, a := range r.Ambiguities {
		logger.Info("ambiguous autowire type",
			zap.String("direction", direction),
			zap.String("type", a.Type),
			zap.Strings("candidates", a.Candidates),
		)
	}
}
