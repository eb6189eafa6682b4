package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-normalizer-mcp/internal/config"
	"github.com/ironsheep/image-normalizer-mcp/internal/server"
	"github.com/ironsheep/image-normalizer-mcp/internal/watcher"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flags    = flag.NewFlagSet("image-normalizer", flag.ExitOnError)
	confFile = flags.String("config", "", "path to YAML config file")
)

func usage() {
	fmt.Println("image-normalizer - MCP server and folder watcher for image conversion")
	fmt.Println()
	fmt.Println("Usage: image-normalizer [options] [serve|watch]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve            Run the MCP server on stdin/stdout (default)")
	fmt.Println("  watch            Convert images dropped into watch.input_dir")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE    Load settings from a YAML file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IMAGE_MCP_LOG_LEVEL=debug             Enable debug logging")
	fmt.Println("  IMAGE_NORMALIZER_RESAMPLER=linear     Resampling filter")
	fmt.Println("  IMAGE_NORMALIZER_TIMEOUT=30s          Conversion timeout")
	fmt.Println("  IMAGE_NORMALIZER_BACKGROUND=#000000   Fill for formats without alpha")
	fmt.Println("  IMAGE_NORMALIZER_OUTPUT_TYPE=image/jpeg Default output type")
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-normalizer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}
	flags.Parse(os.Args[1:])

	// Logging goes to stderr; stdout is for MCP protocol
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*confFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	log.SetLevel(cfg.Level())
	server.Version = Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("image normalizer starting")

	cmd := flags.Arg(0)
	switch cmd {
	case "", "serve":
		err = serve(ctx, cfg, log)
	case "watch":
		err = watch(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func watch(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	d, err := cfg.NewDispatcher(log)
	if err != nil {
		return err
	}
	w, err := watcher.NewWatcher(cfg.Watch, d, cfg.ConvertOptions(), log)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	go func() {
		for ev := range w.Events() {
			if ev.Err != nil {
				log.WithError(ev.Err).WithField("file", ev.Input).Error("conversion failed")
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	return w.Stop()
}
