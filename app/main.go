package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brogede16/cinemateket-print-program/app/api"
	"github.com/Brogede16/cinemateket-print-program/app/cfg"
	"github.com/Brogede16/cinemateket-print-program/app/program"
	"github.com/Brogede16/cinemateket-print-program/app/proxy"
	"github.com/Brogede16/cinemateket-print-program/app/scrape"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Cinemateket program server", "version", appCfg.Version)

	allow := scrape.NewAllowlist(appCfg.AllowedHosts, appCfg.AllowedPathPrefixes)
	fetcher := scrape.NewFetcher(
		time.Duration(appCfg.UpstreamTimeout)*time.Second,
		time.Duration(appCfg.ScrapeDelayMs)*time.Millisecond,
		appCfg.UserAgent,
	)
	extractor := scrape.NewExtractor(appCfg.BaseUrl, appCfg.Brand, appCfg.SynopsisBlacklist)

	var calendar program.CalendarSource
	switch appCfg.CalendarStrategy {
	case "dayheader":
		calendar = scrape.NewDayHeaderCalendar(fetcher, extractor, appCfg.CalendarURL())
	default:
		calendar = scrape.NewListingCalendar(fetcher, extractor, allow, appCfg.CalendarURL())
	}
	slog.Info("Calendar strategy selected", "strategy", appCfg.CalendarStrategy)

	registry := scrape.NewRegistryBuilder(fetcher, extractor, allow,
		appCfg.SeriesIndexURL(), []string{appCfg.CalendarURL(), appCfg.EventsIndexURL()})
	details := scrape.NewDetailFetcher(fetcher, extractor)
	aggregator := program.NewAggregator(calendar, registry, details, allow)

	cache := proxy.NewCache(time.Duration(appCfg.CacheTTL)*time.Second, appCfg.CacheMaxSize)
	limiter := proxy.NewRateLimiter(appCfg.RateLimitRPM)
	upstreamProxy := proxy.NewProxy(allow, cache,
		time.Duration(appCfg.UpstreamTimeout)*time.Second, appCfg.UserAgent)

	handler := api.NewHandler(aggregator, upstreamProxy, limiter, appCfg.StaticDir)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
