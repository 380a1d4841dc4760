// Command liveedit runs the live HTML editor server, or checks how well a document's
// rendered elements map back to its source.
//
//	liveedit serve [-config liveedit.yaml] [-log-level info]
//	liveedit check [-config liveedit.yaml] -file doc.html
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpotapov/go-liveedit"
	"github.com/dpotapov/go-liveedit/gemini"
	"github.com/dpotapov/go-liveedit/rodsurface"
	"github.com/dpotapov/go-liveedit/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s serve|check [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "check":
		err = check(ctx, os.Args[2:], os.Stdout)
	default:
		usage()
	}
	if err != nil {
		slog.Error("liveedit", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

// LoggerMiddleware logs every HTTP request.
func LoggerMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("HTTP request", "method", r.Method, "url", r.URL.Redacted(), "elapsed", time.Since(start))
	})
}

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	cfg, err := liveedit.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	gen := &gemini.Generator{
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
		Logger:  logger.With("component", "gemini"),
	}
	if cfg.Generation.APIKey == "" {
		logger.Warn("No default API key configured, generation needs a user key")
	}

	h := &liveedit.Handler{
		Store:      st,
		Generator:  liveedit.NewThrottle(gen, cfg.Generation.APIKey, cfg.Generation.RateLimit, cfg.Generation.RateWindow),
		Template:   cfg.Template,
		LineHeight: cfg.LineHeight,
		Logger:     logger,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           LoggerMiddleware(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", cfg.Addr, "database", cfg.Database)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func check(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	file := fs.String("file", "", "HTML document to check")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("check: -file is required")
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	cfg, err := liveedit.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	doc, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	b, err := rodsurface.Launch(ctx, cfg.Browser.Remote, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	surface, err := b.NewSurface(ctx, logger)
	if err != nil {
		return err
	}
	if err := surface.Load(string(doc)); err != nil {
		return err
	}
	sigs, err := surface.Signatures(ctx)
	if err != nil {
		return err
	}

	report := liveedit.Coverage(string(doc), sigs)
	return writeReport(out, *file, report)
}

func writeReport(w io.Writer, name string, r liveedit.CoverageReport) error {
	if _, err := fmt.Fprintf(w, "%s: %d of %d rendered elements located in source\n", name, r.Located, r.Total); err != nil {
		return err
	}
	for _, sig := range r.Missing {
		if _, err := fmt.Fprintf(w, "  not found: %s\n", sig); err != nil {
			return err
		}
	}
	return nil
}
