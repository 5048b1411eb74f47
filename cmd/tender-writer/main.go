package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tender-writer/internal/config"
	"tender-writer/internal/httpapi"
	"tender-writer/internal/logging"
	"tender-writer/internal/scheduler"
	"tender-writer/internal/secrets"
)

func main() {
	cfgPath := flag.String("config", envOr("TENDER_WRITER_CONFIG", "config/writer.yml"), "path to the YAML config")
	once := flag.Bool("once", false, "drain the queue once and exit")
	setPassword := flag.Bool("set-store-password", false, "read the store password from stdin into the OS keychain and exit")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := loadConfig(*cfgPath, !*setPassword)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if *setPassword {
		if err := storePassword(cfg.Store.KeyringAccount); err != nil {
			log.Error("set store password failed", "err", err)
			os.Exit(1)
		}
		log.Info("store password saved", "service", secrets.KeyringService, "account", cfg.Store.KeyringAccount)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *once); err != nil {
		log.Error("tender-writer stopped", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string, validate bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := config.OverlayEnv(&cfg, os.Getenv); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	if !validate {
		return cfg, nil
	}
	cfg, res := config.NormalizeAndValidate(cfg)
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "config warning:", w)
	}
	return cfg, res.Err()
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, once bool) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if once {
		return a.drain(ctx)
	}

	if cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Handler:           httpapi.NewHandler(a.deps()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("ops server listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("ops server failed", "err", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if expr := strings.TrimSpace(cfg.Schedule.Cron); expr != "" {
		log.Info("draining on schedule", "cron", expr)
		return scheduler.Cron(ctx, log, expr, "drain", a.drain)
	}
	log.Info("draining on interval", "every", cfg.Schedule.Interval)
	scheduler.Every(ctx, log, cfg.Schedule.Interval, "drain", a.drain)
	return nil
}

func storePassword(account string) error {
	fmt.Fprint(os.Stderr, "store password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return err
	}
	return secrets.SetStorePassword(account, strings.TrimRight(line, "\r\n"))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
