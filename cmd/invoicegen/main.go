// Command invoicegen runs the document generation server: it opens the
// order database, warms the rendering engine lazily, and serves the
// document API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/brennholz24/invoicegen"
	"github.com/brennholz24/invoicegen/internal/blob"
	"github.com/brennholz24/invoicegen/internal/gormstore"
	"github.com/brennholz24/invoicegen/internal/httpapi"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("invoicegen", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to YAML config file")
	listen := fs.String("listen", "", "listen address (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	showVersion := fs.BoolP("version", "V", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println("invoicegen", Version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	applyEnv(&cfg)
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *debug {
		cfg.Debug = true
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS
	// env value, in which case runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))

	db, err := gormstore.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	store, err := gormstore.New(db)
	if err != nil {
		return err
	}

	blobs, err := blob.NewFileStore(cfg.DocumentDir)
	if err != nil {
		return err
	}

	opts := []invoicegen.Option{
		invoicegen.WithLogger(log),
		invoicegen.WithTimeout(cfg.Timeout),
	}
	if cfg.TemplateDir != "" {
		opts = append(opts, invoicegen.WithTemplateDir(cfg.TemplateDir))
	}
	if cfg.BrowserBin != "" {
		opts = append(opts, invoicegen.WithBrowserBin(cfg.BrowserBin))
	}
	if cfg.MaxSurfaces > 0 {
		opts = append(opts, invoicegen.WithMaxSurfaces(cfg.MaxSurfaces))
	}

	svc, err := invoicegen.New(store.Stores(blobs), opts...)
	if err != nil {
		return fmt.Errorf("creating document service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("closing document service", zap.Error(err))
		}
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	httpapi.NewHandler(svc, log).Register(router)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", cfg.Listen),
			zap.String("version", Version),
			zap.String("database", cfg.DatabasePath),
			zap.String("documents", blobs.Dir()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
